package cst

// Visitor is called for each node reached by Visit with the node's nesting
// depth. Returning false skips the node's children.
type Visitor func(n *Node, depth int) bool

// Visit walks the subtree rooted at n in document order, skipping comments.
//
// Depth counts the mappings and sequences on the path from n down to and
// including the visited node, so wrapper nodes, pairs and scalars do not add
// to it. A mapping or sequence that would exceed maxDepth is not visited and
// Visit reports truncated = true.
func Visit(n *Node, maxDepth int, fn Visitor) (truncated bool) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		if n == nil || n.IsComment() {
			return
		}
		if isCollection(n) {
			depth++
			if depth > maxDepth {
				truncated = true
				return
			}
		}
		if !fn(n, depth) {
			return
		}
		for _, child := range n.Children {
			walk(child, depth)
		}
	}
	walk(n, 0)
	return truncated
}

// Walk visits every non-comment node of the subtree rooted at n without a
// depth bound. It is meant for flat scans such as locating error nodes.
func Walk(n *Node, fn func(n *Node) bool) {
	if n == nil || n.IsComment() {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, fn)
	}
}

func isCollection(n *Node) bool {
	switch n.Kind {
	case KindBlockMapping, KindFlowMapping, KindBlockSequence, KindFlowSequence:
		return true
	}
	return false
}
