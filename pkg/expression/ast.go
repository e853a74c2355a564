package expression

import (
	"fmt"
	"strings"
)

// ConditionNode is a node of a parsed expression tree.
type ConditionNode interface {
	Render() string
}

// AndNode represents an AND operation between two conditions
type AndNode struct {
	Left, Right ConditionNode
}

func (a *AndNode) Render() string {
	return fmt.Sprintf("(%s) && (%s)", a.Left.Render(), a.Right.Render())
}

// OrNode represents an OR operation between two conditions
type OrNode struct {
	Left, Right ConditionNode
}

func (o *OrNode) Render() string {
	return fmt.Sprintf("(%s) || (%s)", o.Left.Render(), o.Right.Render())
}

// NotNode represents a NOT operation on a condition
type NotNode struct {
	Child ConditionNode
}

func (n *NotNode) Render() string {
	return fmt.Sprintf("!(%s)", n.Child.Render())
}

// ComparisonNode represents comparison operations like ==, !=, <, >, <=, >=
type ComparisonNode struct {
	Left     ConditionNode
	Operator string
	Right    ConditionNode
}

func (c *ComparisonNode) Render() string {
	return fmt.Sprintf("%s %s %s", c.Left.Render(), c.Operator, c.Right.Render())
}

// FunctionCallNode represents a function call expression like contains(array, value)
type FunctionCallNode struct {
	FunctionName string
	Arguments    []ConditionNode
	Pos          int // offset of the function name
}

func (f *FunctionCallNode) Render() string {
	args := make([]string, 0, len(f.Arguments))
	for _, arg := range f.Arguments {
		args = append(args, arg.Render())
	}
	return fmt.Sprintf("%s(%s)", f.FunctionName, strings.Join(args, ", "))
}

// PropertyAccessNode is a context reference followed by dotted members,
// such as github.event.action or needs.*.result.
type PropertyAccessNode struct {
	Context string
	Path    []string
}

func (p *PropertyAccessNode) Render() string {
	if len(p.Path) == 0 {
		return p.Context
	}
	return p.Context + "." + strings.Join(p.Path, ".")
}

// MemberNode is member access on a value that is not a plain property path,
// such as fromJSON(x).field or steps['a'].outputs.
type MemberNode struct {
	Object   ConditionNode
	Property string
}

func (m *MemberNode) Render() string {
	return m.Object.Render() + "." + m.Property
}

// IndexNode is bracket access. A nil Index is the [*] filter.
type IndexNode struct {
	Object ConditionNode
	Index  ConditionNode
}

func (i *IndexNode) Render() string {
	if i.Index == nil {
		return i.Object.Render() + "[*]"
	}
	return i.Object.Render() + "[" + i.Index.Render() + "]"
}

// ParenthesesNode keeps explicit grouping from the source.
type ParenthesesNode struct {
	Child ConditionNode
}

func (p *ParenthesesNode) Render() string {
	return fmt.Sprintf("(%s)", p.Child.Render())
}

// StringLiteralNode represents a string literal value
type StringLiteralNode struct {
	Value string
}

func (s *StringLiteralNode) Render() string {
	return "'" + strings.ReplaceAll(s.Value, "'", "''") + "'"
}

// BooleanLiteralNode represents a boolean literal value
type BooleanLiteralNode struct {
	Value bool
}

func (b *BooleanLiteralNode) Render() string {
	if b.Value {
		return "true"
	}
	return "false"
}

// NumberLiteralNode represents a numeric literal value
type NumberLiteralNode struct {
	Value string
}

func (n *NumberLiteralNode) Render() string {
	return n.Value
}

// NullLiteralNode is the null literal.
type NullLiteralNode struct{}

func (NullLiteralNode) Render() string {
	return "null"
}

// VisitExpressionTree calls visit for node and every node below it,
// depth-first, stopping at the first error.
func VisitExpressionTree(node ConditionNode, visit func(ConditionNode) error) error {
	if node == nil {
		return nil
	}
	if err := visit(node); err != nil {
		return err
	}
	switch n := node.(type) {
	case *AndNode:
		return visitAll(visit, n.Left, n.Right)
	case *OrNode:
		return visitAll(visit, n.Left, n.Right)
	case *NotNode:
		return VisitExpressionTree(n.Child, visit)
	case *ComparisonNode:
		return visitAll(visit, n.Left, n.Right)
	case *FunctionCallNode:
		return visitAll(visit, n.Arguments...)
	case *MemberNode:
		return VisitExpressionTree(n.Object, visit)
	case *IndexNode:
		return visitAll(visit, n.Object, n.Index)
	case *ParenthesesNode:
		return VisitExpressionTree(n.Child, visit)
	}
	return nil
}

func visitAll(visit func(ConditionNode) error, nodes ...ConditionNode) error {
	for _, n := range nodes {
		if err := VisitExpressionTree(n, visit); err != nil {
			return err
		}
	}
	return nil
}
