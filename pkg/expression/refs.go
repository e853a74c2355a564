package expression

import "strings"

// Reference is one context reference such as steps.build.outputs.sha.
// Path holds the segments after the context name; bracket segments like
// ['my-step'] are unquoted. Start and End are offsets into the scanned text.
type Reference struct {
	Context string
	Path    []string
	Start   int
	End     int
}

// Text renders the reference in dotted form.
func (r Reference) Text() string {
	if len(r.Path) == 0 {
		return r.Context
	}
	return r.Context + "." + strings.Join(r.Path, ".")
}

// ContextReferences returns every reference rooted at context in an
// expression body. A match must start at an identifier boundary, so
// "github.event.inputs.x" is not an inputs reference. Text inside string
// literals is ignored.
func ContextReferences(inner, context string) []Reference {
	code := stripStrings(inner)
	var refs []Reference
	from := 0
	for {
		idx := strings.Index(code[from:], context)
		if idx < 0 {
			return refs
		}
		start := from + idx
		from = start + len(context)
		if start > 0 && (isIdentPart(code[start-1]) || code[start-1] == '.') {
			continue
		}
		end := start + len(context)
		if end < len(code) && isIdentPart(code[end]) {
			continue
		}
		path, pathEnd := scanPath(inner, end)
		if len(path) == 0 {
			continue
		}
		refs = append(refs, Reference{Context: context, Path: path, Start: start, End: pathEnd})
		from = pathEnd
	}
}

// scanPath reads ".name", ".*" and "['name']" segments starting at i.
func scanPath(text string, i int) ([]string, int) {
	var path []string
	for i < len(text) {
		switch text[i] {
		case '.':
			j := i + 1
			if j < len(text) && text[j] == '*' {
				path = append(path, "*")
				i = j + 1
				continue
			}
			for j < len(text) && isIdentPart(text[j]) {
				j++
			}
			if j == i+1 {
				return path, i
			}
			path = append(path, text[i+1:j])
			i = j
		case '[':
			j := i + 1
			if j < len(text) && (text[j] == '\'' || text[j] == '"') {
				end, err := scanString(text, j)
				if err != nil || end >= len(text) || text[end] != ']' {
					return path, i
				}
				path = append(path, unquote(text[j:end]))
				i = end + 1
				continue
			}
			if j+1 < len(text) && text[j] == '*' && text[j+1] == ']' {
				path = append(path, "*")
				i = j + 2
				continue
			}
			return path, i
		default:
			return path, i
		}
	}
	return path, i
}

// FindReferences scans all closed ${{ }} regions of text for references
// rooted at context. Offsets are relative to text.
func FindReferences(text, context string) []Reference {
	var refs []Reference
	for _, r := range FindRegions(text) {
		if !r.Closed {
			continue
		}
		for _, ref := range ContextReferences(r.Inner(text), context) {
			ref.Start += r.InnerStart
			ref.End += r.InnerStart
			refs = append(refs, ref)
		}
	}
	return refs
}

// IsPotentiallyAlwaysTrue reports conditions that pass regardless of the
// run, such as "true" or "github.ref == 'x' || true". Comparisons against
// literals, as in "inputs.force == true", are not constant.
func IsPotentiallyAlwaysTrue(inner string) bool {
	value, known := constantTruth(inner)
	return known && value
}

// IsPotentiallyAlwaysFalse is the counterpart of IsPotentiallyAlwaysTrue.
func IsPotentiallyAlwaysFalse(inner string) bool {
	value, known := constantTruth(inner)
	return known && !value
}

// constantTruth folds the boolean literals of a condition. known is false
// when the outcome depends on anything evaluated at run time.
func constantTruth(inner string) (value, known bool) {
	node, err := ParseExpression(inner)
	if err != nil {
		switch strings.ToLower(strings.TrimSpace(inner)) {
		case "true", "!false":
			return true, true
		case "false", "!true":
			return false, true
		}
		return false, false
	}
	return foldTruth(node)
}

func foldTruth(node ConditionNode) (value, known bool) {
	switch n := node.(type) {
	case *BooleanLiteralNode:
		return n.Value, true
	case *ParenthesesNode:
		return foldTruth(n.Child)
	case *NotNode:
		v, ok := foldTruth(n.Child)
		return !v, ok
	case *OrNode:
		l, lok := foldTruth(n.Left)
		r, rok := foldTruth(n.Right)
		switch {
		case (lok && l) || (rok && r):
			return true, true
		case lok && rok:
			return false, true
		}
	case *AndNode:
		l, lok := foldTruth(n.Left)
		r, rok := foldTruth(n.Right)
		switch {
		case (lok && !l) || (rok && !r):
			return false, true
		case lok && rok:
			return true, true
		}
	}
	return false, false
}
