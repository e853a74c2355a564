package cst

import (
	"strings"
	"unicode"
)

// Unwrap descends through block_node and flow_node wrappers, skipping comment
// children, until it reaches a content node. It returns n unchanged when n is
// not a wrapper or the wrapper holds nothing but comments.
func Unwrap(n *Node) *Node {
	current := n
	for current != nil && (current.Kind == KindBlockNode || current.Kind == KindFlowNode) {
		var inner *Node
		for _, child := range current.Children {
			if !child.IsComment() {
				inner = child
				break
			}
		}
		if inner == nil {
			break
		}
		current = inner
	}
	return current
}

// IsPair reports whether n is a block or flow mapping pair.
func IsPair(n *Node) bool {
	return n != nil && (n.Kind == KindBlockMappingPair || n.Kind == KindFlowPair)
}

// IsMapping reports whether n, once unwrapped, is a block or flow mapping.
func IsMapping(n *Node) bool {
	n = Unwrap(n)
	return n != nil && (n.Kind == KindBlockMapping || n.Kind == KindFlowMapping)
}

// IsSequence reports whether n, once unwrapped, is a block or flow sequence.
func IsSequence(n *Node) bool {
	n = Unwrap(n)
	return n != nil && (n.Kind == KindBlockSequence || n.Kind == KindFlowSequence)
}

// IsScalar reports whether n, once unwrapped, is a scalar of any style.
func IsScalar(n *Node) bool {
	n = Unwrap(n)
	if n == nil {
		return false
	}
	switch n.Kind {
	case KindPlainScalar, KindDoubleQuoteScalar, KindSingleQuoteScalar, KindBlockScalar:
		return true
	}
	return false
}

// PairKey returns the key node of a mapping pair.
func PairKey(pair *Node) *Node {
	if !IsPair(pair) {
		return nil
	}
	return pair.Child(0)
}

// PairValue returns the value node of a mapping pair: the last child after
// the key that is neither a comment nor the ':' separator. It returns nil for
// key-only pairs such as "workflow_dispatch:".
func PairValue(pair *Node) *Node {
	if !IsPair(pair) {
		return nil
	}
	for i := len(pair.Children) - 1; i >= 1; i-- {
		child := pair.Children[i]
		if child.Kind != KindComment && child.Kind != KindColon {
			return child
		}
	}
	return nil
}

// Pairs returns the direct pairs of a mapping. Nested mappings are not
// searched and non-mappings yield nil.
func Pairs(mapping *Node) []*Node {
	mapping = Unwrap(mapping)
	if !IsMapping(mapping) {
		return nil
	}
	var pairs []*Node
	for _, child := range mapping.Children {
		if IsPair(child) {
			pairs = append(pairs, child)
		}
	}
	return pairs
}

// Items returns the value nodes of a sequence's entries in order. Empty block
// entries ("- " with nothing after it) are omitted.
func Items(sequence *Node) []*Node {
	sequence = Unwrap(sequence)
	if sequence == nil {
		return nil
	}
	var items []*Node
	switch sequence.Kind {
	case KindBlockSequence:
		for _, child := range sequence.Children {
			if child.Kind != KindBlockSequenceItem {
				continue
			}
			for i := len(child.Children) - 1; i >= 1; i-- {
				value := child.Children[i]
				if value.Kind != KindComment {
					items = append(items, value)
					break
				}
			}
		}
	case KindFlowSequence:
		for _, child := range sequence.Children {
			switch child.Kind {
			case KindFlowNode, KindBlockNode, KindFlowPair:
				items = append(items, child)
			}
		}
	}
	return items
}

// CleanText returns the text of n with surrounding whitespace and quote
// characters removed.
func CleanText(doc *Document, n *Node) string {
	return strings.TrimFunc(doc.Text(n), isQuoteOrSpace)
}

// CleanKey is CleanText with any trailing ':' removed, for key nodes.
func CleanKey(doc *Document, n *Node) string {
	return strings.TrimRight(CleanText(doc, n), ":")
}

// ScalarText returns the value of a scalar as YAML reads it. Exactly one pair
// of outer quotes is removed from quoted scalars: '' unescapes to ' in
// single-quoted text, and \" and \\ unescape in double-quoted text. Plain
// scalars are trimmed. Other nodes fall back to CleanText.
func ScalarText(doc *Document, n *Node) string {
	n = Unwrap(n)
	if n == nil {
		return ""
	}
	text := doc.Text(n)
	switch n.Kind {
	case KindPlainScalar:
		return strings.TrimSpace(text)
	case KindSingleQuoteScalar:
		return strings.ReplaceAll(trimQuotePair(text, '\''), "''", "'")
	case KindDoubleQuoteScalar:
		return unescapeDoubleQuoted(trimQuotePair(text, '"'))
	}
	return CleanText(doc, n)
}

func trimQuotePair(text string, quote byte) string {
	text = strings.TrimSpace(text)
	if len(text) >= 2 && text[0] == quote && text[len(text)-1] == quote {
		return text[1 : len(text)-1]
	}
	return strings.TrimPrefix(text, string(quote))
}

func unescapeDoubleQuoted(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		switch s[i] {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case '"', '\\', '/':
			sb.WriteByte(s[i])
		default:
			sb.WriteByte('\\')
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func isQuoteOrSpace(r rune) bool {
	return r == '"' || r == '\'' || unicode.IsSpace(r)
}

// FindValueForKey searches the subtree rooted at n depth-first for the first
// pair whose cleaned key equals key and returns its value. A matching
// key-only pair yields nil. Pairs whose key does not match are not entered.
func FindValueForKey(doc *Document, n *Node, key string) *Node {
	if n == nil {
		return nil
	}
	if IsPair(n) {
		if CleanKey(doc, n.Child(0)) == key {
			return PairValue(n)
		}
		return nil
	}
	for _, child := range n.Children {
		if child.IsComment() {
			continue
		}
		if value := FindValueForKey(doc, child, key); value != nil {
			return value
		}
	}
	return nil
}

// KeyExists is FindValueForKey that also accepts key-only pairs.
func KeyExists(doc *Document, n *Node, key string) bool {
	if n == nil {
		return false
	}
	if IsPair(n) {
		return CleanKey(doc, n.Child(0)) == key
	}
	for _, child := range n.Children {
		if child.IsComment() {
			continue
		}
		if KeyExists(doc, child, key) {
			return true
		}
	}
	return false
}

// LookupPair returns the direct pair of mapping whose key is key.
func LookupPair(doc *Document, mapping *Node, key string) *Node {
	for _, pair := range Pairs(mapping) {
		if CleanKey(doc, PairKey(pair)) == key {
			return pair
		}
	}
	return nil
}

// MappingValue looks key up among the direct pairs of mapping. found is true
// when the key is present, even if its value is nil.
func MappingValue(doc *Document, mapping *Node, key string) (value *Node, found bool) {
	pair := LookupPair(doc, mapping, key)
	if pair == nil {
		return nil, false
	}
	return PairValue(pair), true
}

// Body returns the content node of the first YAML document in the stream,
// unwrapped. It is the top-level mapping for any workflow.
func Body(doc *Document) *Node {
	if doc == nil || doc.Root == nil {
		return nil
	}
	current := doc.Root
	for current != nil && (current.Kind == KindStream || current.Kind == KindDocument) {
		var next *Node
		for _, child := range current.Children {
			if child.Named && !child.IsComment() {
				next = child
				break
			}
		}
		current = next
	}
	return Unwrap(current)
}

// TopLevel looks key up in the document's top-level mapping.
func TopLevel(doc *Document, key string) (value *Node, found bool) {
	return MappingValue(doc, Body(doc), key)
}

// JobsNode returns the unwrapped value of the top-level "jobs" key.
func JobsNode(doc *Document) *Node {
	jobs, _ := TopLevel(doc, "jobs")
	return Unwrap(jobs)
}

// IsGitHubWorkflow reports whether the document has an "on" or "jobs" key
// within the first few levels of the tree. The comparison ignores case.
func IsGitHubWorkflow(doc *Document) bool {
	if doc == nil || doc.Root == nil {
		return false
	}
	var found bool
	var check func(n *Node, depth int)
	check = func(n *Node, depth int) {
		if found || depth > 4 {
			return
		}
		if IsPair(n) {
			key := CleanKey(doc, n.Child(0))
			if strings.EqualFold(key, "on") || strings.EqualFold(key, "jobs") {
				found = true
			}
			return
		}
		for _, child := range n.Children {
			check(child, depth+1)
		}
	}
	check(doc.Root, 0)
	return found
}
