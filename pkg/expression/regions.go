// Package expression scans text for ${{ }} regions and validates the
// expression language embedded in them.
package expression

import "strings"

// Region is one ${{ ... }} occurrence in a source text. All offsets are byte
// offsets into the scanned text.
type Region struct {
	Start      int // offset of '$'
	End        int // offset just past the closing "}}", or len(text) when unclosed
	InnerStart int // offset just past "${{"
	InnerEnd   int // offset of the closing "}}", or len(text) when unclosed
	Closed     bool
}

// Inner returns the untrimmed text between the delimiters.
func (r Region) Inner(text string) string {
	if r.InnerStart > r.InnerEnd || r.InnerEnd > len(text) {
		return ""
	}
	return text[r.InnerStart:r.InnerEnd]
}

// FindRegions returns the ${{ }} regions of text in order.
//
// Braces are counted so that "{" and "}" inside the expression, as in
// format('{0}', x), stay part of the region: the opening marker counts two,
// every "}}" pair subtracts two and single braces count one. A marker on a
// line whose text before it starts with '#' is a YAML comment and is
// skipped. An unclosed region extends to the end of text and ends the scan.
func FindRegions(text string) []Region {
	var regions []Region
	i := 0
	for i+2 < len(text) {
		if text[i] != '$' || text[i+1] != '{' || text[i+2] != '{' {
			i++
			continue
		}
		if inComment(text, i) {
			i += 3
			continue
		}

		j := i + 3
		depth := 2
		closed := false
		for j < len(text) && !closed {
			switch {
			case text[j] == '}' && j+1 < len(text) && text[j+1] == '}':
				depth -= 2
				j += 2
				closed = depth <= 0
			case text[j] == '{':
				depth++
				j++
			case text[j] == '}':
				depth--
				j++
			default:
				j++
			}
		}

		if !closed {
			regions = append(regions, Region{
				Start:      i,
				End:        len(text),
				InnerStart: i + 3,
				InnerEnd:   len(text),
			})
			break
		}
		innerEnd := max(j-2, i+3)
		regions = append(regions, Region{
			Start:      i,
			End:        j,
			InnerStart: i + 3,
			InnerEnd:   innerEnd,
			Closed:     true,
		})
		i = j
	}
	return regions
}

func inComment(text string, at int) bool {
	lineStart := strings.LastIndexByte(text[:at], '\n') + 1
	return strings.HasPrefix(strings.TrimLeft(text[lineStart:at], " \t"), "#")
}

// IsExpression reports whether text, ignoring surrounding whitespace, starts
// with "${{".
func IsExpression(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "${{")
}

// ContainsExpression reports whether text has any ${{ marker.
func ContainsExpression(text string) bool {
	return strings.Contains(text, "${{")
}

// StripDelimiters removes surrounding whitespace and, when present, the
// "${{" and "}}" delimiters from text.
func StripDelimiters(text string) string {
	text = strings.TrimSpace(text)
	if rest, ok := strings.CutPrefix(text, "${{"); ok {
		text = strings.TrimSuffix(rest, "}}")
	}
	return strings.TrimSpace(text)
}
