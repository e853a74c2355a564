package expression

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/logger"
)

var parserLog = logger.New("expression:parser")

// KnownContexts are the identifiers an expression may start with, other than
// literals and function calls.
var KnownContexts = []string{
	"github", "matrix", "secrets", "vars", "needs", "inputs",
	"env", "job", "jobs", "steps", "runner", "strategy",
}

// ErrEmptyExpression is returned by ParseExpression for blank input.
var ErrEmptyExpression = errors.New("empty expression")

// ExpressionParser is a recursive-descent parser over the tokens of one
// expression body. Precedence from lowest to highest is ||, &&, comparison,
// unary !, then member access, indexing and calls.
type ExpressionParser struct {
	tokens []token
	pos    int
}

// ParseExpression parses the body of a ${{ }} expression, without the
// delimiters. Function names are not checked here; unknown root
// identifiers are a parse error.
func ParseExpression(text string) (ConditionNode, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyExpression
	}
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}

	parser := &ExpressionParser{tokens: tokens}
	node, err := parser.parseOr()
	if err != nil {
		parserLog.Printf("Failed to parse %q: %v", text, err)
		return nil, err
	}
	if tok := parser.current(); tok.kind != tokenEOF {
		return nil, fmt.Errorf("unexpected %s %q at position %d", tok.kind, tok.value, tok.pos)
	}
	return node, nil
}

// current returns the token at the cursor, or an EOF token with pos -1 past
// the end.
func (p *ExpressionParser) current() token {
	if p.pos >= len(p.tokens) {
		return token{kind: tokenEOF, pos: -1}
	}
	return p.tokens[p.pos]
}

func (p *ExpressionParser) peek(offset int) token {
	if p.pos+offset >= len(p.tokens) {
		return token{kind: tokenEOF, pos: -1}
	}
	return p.tokens[p.pos+offset]
}

func (p *ExpressionParser) advance() token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *ExpressionParser) expect(kind tokenKind) (token, error) {
	tok := p.current()
	if tok.kind != kind {
		return tok, unexpected(tok, kind.String())
	}
	p.pos++
	return tok, nil
}

func unexpected(tok token, want string) error {
	if tok.kind == tokenEOF {
		return fmt.Errorf("unexpected end of expression, expected %s", want)
	}
	return fmt.Errorf("unexpected %s %q at position %d, expected %s", tok.kind, tok.value, tok.pos, want)
}

func (p *ExpressionParser) parseOr() (ConditionNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().kind == tokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *ExpressionParser) parseAnd() (ConditionNode, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.current().kind == tokenAnd {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = &AndNode{Left: left, Right: right}
	}
	return left, nil
}

func (p *ExpressionParser) parseComparison() (ConditionNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.current().kind == tokenCompare {
		op := p.advance().value
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ComparisonNode{Left: left, Operator: op, Right: right}
	}
	return left, nil
}

func (p *ExpressionParser) parseUnary() (ConditionNode, error) {
	if p.current().kind == tokenNot {
		p.advance()
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotNode{Child: child}, nil
	}
	return p.parsePostfix()
}

func (p *ExpressionParser) parsePostfix() (ConditionNode, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().kind {
		case tokenDot:
			p.advance()
			tok := p.advance()
			var name string
			switch tok.kind {
			case tokenIdent:
				name = tok.value
			case tokenStar:
				name = "*"
			default:
				return nil, unexpected(tok, "property name")
			}
			if prop, ok := node.(*PropertyAccessNode); ok {
				prop.Path = append(prop.Path, name)
			} else {
				node = &MemberNode{Object: node, Property: name}
			}
		case tokenLeftBracket:
			p.advance()
			var index ConditionNode
			if p.current().kind == tokenStar {
				p.advance()
			} else {
				index, err = p.parseOr()
				if err != nil {
					return nil, err
				}
			}
			if _, err := p.expect(tokenRightBracket); err != nil {
				return nil, err
			}
			node = &IndexNode{Object: node, Index: index}
		default:
			return node, nil
		}
	}
}

func (p *ExpressionParser) parsePrimary() (ConditionNode, error) {
	tok := p.current()
	switch tok.kind {
	case tokenString:
		p.advance()
		return &StringLiteralNode{Value: unquote(tok.value)}, nil
	case tokenNumber:
		p.advance()
		return &NumberLiteralNode{Value: tok.value}, nil
	case tokenLeftParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokenRightParen); err != nil {
			return nil, err
		}
		return &ParenthesesNode{Child: inner}, nil
	case tokenIdent:
		if p.peek(1).kind == tokenLeftParen {
			return p.parseCall()
		}
		p.advance()
		switch tok.value {
		case "true":
			return &BooleanLiteralNode{Value: true}, nil
		case "false":
			return &BooleanLiteralNode{Value: false}, nil
		case "null":
			return &NullLiteralNode{}, nil
		}
		if !slices.Contains(KnownContexts, tok.value) {
			return nil, fmt.Errorf("unknown context %q at position %d", tok.value, tok.pos)
		}
		return &PropertyAccessNode{Context: tok.value}, nil
	}
	return nil, unexpected(tok, "a value")
}

func (p *ExpressionParser) parseCall() (ConditionNode, error) {
	name := p.advance()
	p.advance() // '('
	call := &FunctionCallNode{FunctionName: name.value, Pos: name.pos}
	if p.current().kind == tokenRightParen {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		call.Arguments = append(call.Arguments, arg)
		switch tok := p.advance(); tok.kind {
		case tokenComma:
			continue
		case tokenRightParen:
			return call, nil
		default:
			return nil, unexpected(tok, "',' or ')'")
		}
	}
}

func unquote(literal string) string {
	if len(literal) < 2 {
		return literal
	}
	quote := literal[:1]
	return strings.ReplaceAll(literal[1:len(literal)-1], quote+quote, quote)
}
