package expression

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

var validateLog = logger.New("expression:validate")

// ValidFunctions lists the functions expressions may call.
var ValidFunctions = []string{
	"contains", "startsWith", "endsWith", "format", "join",
	"toJSON", "fromJSON", "hashFiles",
	"success", "failure", "cancelled", "always",
}

// IsValidFunction reports whether name is an allowed function. toJSON and
// fromJSON are also accepted in any letter case.
func IsValidFunction(name string) bool {
	if slices.Contains(ValidFunctions, name) {
		return true
	}
	lower := strings.ToLower(name)
	return lower == "tojson" || lower == "fromjson"
}

// Validate checks every ${{ }} region of source and returns diagnostics with
// spans relative to source. RuleID is left for the caller to stamp.
func Validate(source string) []validation.Diagnostic {
	var diags []validation.Diagnostic
	regions := FindRegions(source)
	validateLog.Printf("Validating %d expression regions", len(regions))
	for _, r := range regions {
		diags = append(diags, ValidateRegion(source, r)...)
	}
	return diags
}

// ValidateRegion checks a single region found in source.
func ValidateRegion(source string, r Region) []validation.Diagnostic {
	n := len(source)
	if !r.Closed {
		return []validation.Diagnostic{{
			Message:  "unclosed expression",
			Severity: validation.Error,
			Span:     validation.NewSpan(r.Start, n, n),
		}}
	}

	raw := r.Inner(source)
	inner := strings.TrimSpace(raw)
	span := validation.NewSpan(r.Start, r.End, n)

	var diags []validation.Diagnostic
	switch {
	case inner == "":
		return []validation.Diagnostic{{
			Message:  "Empty expression",
			Severity: validation.Error,
			Span:     span,
		}}
	case strings.Contains(inner, "===") || strings.Contains(inner, "!=="):
		diags = append(diags, validation.Diagnostic{
			Message: fmt.Sprintf("Invalid operator in expression: '%s'. GitHub Actions expressions use '==' and '!=' for equality, not '===' or '!=='.",
				inner),
			Severity: validation.Error,
			Span:     span,
		})
	case hasAssignment(inner):
		diags = append(diags, validation.Diagnostic{
			Message: fmt.Sprintf("Potentially invalid operator in expression: '%s'. Expressions are read-only and cannot use assignment operators.",
				inner),
			Severity: validation.Warning,
			Span:     span,
		})
	default:
		if _, err := ParseExpression(raw); err != nil {
			diags = append(diags, validation.Diagnostic{
				Message:  fmt.Sprintf("Invalid expression syntax: '%s'", inner),
				Severity: validation.Error,
				Span:     span,
			})
		}
	}

	for _, call := range FunctionCalls(raw) {
		if IsValidFunction(call.Name) {
			continue
		}
		start := r.InnerStart + call.Pos
		diags = append(diags, validation.Diagnostic{
			Message: fmt.Sprintf("Unknown function in expression: '%s'. Valid functions are: %s.",
				call.Name, strings.Join(ValidFunctions, ", ")),
			Severity: validation.Warning,
			Span:     validation.NewSpan(start, start+len(call.Name), n),
		})
	}
	return diags
}

// hasAssignment reports whether text contains exactly one '=' that is not
// part of a comparison operator, outside string literals.
func hasAssignment(text string) bool {
	code := stripStrings(text)
	if strings.Count(code, "=") != 1 {
		return false
	}
	i := strings.IndexByte(code, '=')
	if i > 0 && strings.ContainsRune("=!<>", rune(code[i-1])) {
		return false
	}
	return true
}

// stripStrings blanks out the contents of quoted literals so operator scans
// do not match text inside them. Offsets are preserved.
func stripStrings(text string) string {
	b := []byte(text)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case quote == 0 && (c == '\'' || c == '"'):
			quote = c
		case quote != 0 && c == quote:
			if i+1 < len(b) && b[i+1] == quote {
				b[i], b[i+1] = ' ', ' '
				i++
				continue
			}
			quote = 0
		case quote != 0:
			b[i] = ' '
		}
	}
	return string(b)
}

// Call is a function-call-shaped token in an expression body.
type Call struct {
	Name string
	Pos  int // offset of the name within the scanned text
}

// FunctionCalls returns every identifier immediately followed by '(' in
// text. It works on tokens, so names inside string literals are ignored;
// when text cannot be tokenized it returns nil.
func FunctionCalls(text string) []Call {
	tokens, err := tokenize(text)
	if err != nil {
		return nil
	}
	var calls []Call
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].kind != tokenIdent || tokens[i+1].kind != tokenLeftParen {
			continue
		}
		if i > 0 && tokens[i-1].kind == tokenDot {
			continue
		}
		calls = append(calls, Call{Name: tokens[i].value, Pos: tokens[i].pos})
	}
	return calls
}

// Identifier is an identifier token that starts a value, as opposed to a
// property name following a dot.
type Identifier struct {
	Name string
	Pos  int
	// Member is the property name after a following '.', if any.
	Member string
	End    int // offset just past Member, or past Name
}

// RootIdentifiers returns the value-starting identifiers of text. Like
// FunctionCalls it returns nil when text cannot be tokenized.
func RootIdentifiers(text string) []Identifier {
	tokens, err := tokenize(text)
	if err != nil {
		return nil
	}
	var idents []Identifier
	for i, tok := range tokens {
		if tok.kind != tokenIdent || (i > 0 && tokens[i-1].kind == tokenDot) {
			continue
		}
		id := Identifier{Name: tok.value, Pos: tok.pos, End: tok.pos + len(tok.value)}
		if i+2 < len(tokens) && tokens[i+1].kind == tokenDot && tokens[i+2].kind == tokenIdent {
			id.Member = tokens[i+2].value
			id.End = tokens[i+2].pos + len(id.Member)
		}
		idents = append(idents, id)
	}
	return idents
}
