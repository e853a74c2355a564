package expression

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenAnd
	tokenOr
	tokenNot
	tokenCompare
	tokenLeftParen
	tokenRightParen
	tokenLeftBracket
	tokenRightBracket
	tokenDot
	tokenComma
	tokenStar
)

func (k tokenKind) String() string {
	switch k {
	case tokenEOF:
		return "end of expression"
	case tokenIdent:
		return "identifier"
	case tokenString:
		return "string"
	case tokenNumber:
		return "number"
	case tokenAnd:
		return "'&&'"
	case tokenOr:
		return "'||'"
	case tokenNot:
		return "'!'"
	case tokenCompare:
		return "comparison"
	case tokenLeftParen:
		return "'('"
	case tokenRightParen:
		return "')'"
	case tokenLeftBracket:
		return "'['"
	case tokenRightBracket:
		return "']'"
	case tokenDot:
		return "'.'"
	case tokenComma:
		return "','"
	case tokenStar:
		return "'*'"
	}
	return "token"
}

// token is one lexical element. pos is the byte offset of its first
// character in the tokenized text.
type token struct {
	kind  tokenKind
	value string
	pos   int
}

// tokenize splits an expression body into tokens. Whitespace separates
// tokens and is otherwise ignored.
func tokenize(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '\'' || c == '"':
			end, err := scanString(text, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokenString, text[i:end], i})
			i = end
		case isDigit(c) || (c == '-' && i+1 < len(text) && (isDigit(text[i+1]) || text[i+1] == '.')) ||
			(c == '.' && i+1 < len(text) && isDigit(text[i+1]) && !afterValue(tokens)):
			end, err := scanNumber(text, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{tokenNumber, text[i:end], i})
			i = end
		case isIdentStart(c):
			end := i + 1
			for end < len(text) && isIdentPart(text[end]) {
				end++
			}
			tokens = append(tokens, token{tokenIdent, text[i:end], i})
			i = end
		case strings.HasPrefix(text[i:], "&&"):
			tokens = append(tokens, token{tokenAnd, "&&", i})
			i += 2
		case strings.HasPrefix(text[i:], "||"):
			tokens = append(tokens, token{tokenOr, "||", i})
			i += 2
		case strings.HasPrefix(text[i:], "=="), strings.HasPrefix(text[i:], "!="),
			strings.HasPrefix(text[i:], "<="), strings.HasPrefix(text[i:], ">="):
			tokens = append(tokens, token{tokenCompare, text[i : i+2], i})
			i += 2
		case c == '<' || c == '>':
			tokens = append(tokens, token{tokenCompare, string(c), i})
			i++
		case c == '!':
			tokens = append(tokens, token{tokenNot, "!", i})
			i++
		case c == '(':
			tokens = append(tokens, token{tokenLeftParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokenRightParen, ")", i})
			i++
		case c == '[':
			tokens = append(tokens, token{tokenLeftBracket, "[", i})
			i++
		case c == ']':
			tokens = append(tokens, token{tokenRightBracket, "]", i})
			i++
		case c == '.':
			tokens = append(tokens, token{tokenDot, ".", i})
			i++
		case c == ',':
			tokens = append(tokens, token{tokenComma, ",", i})
			i++
		case c == '*':
			tokens = append(tokens, token{tokenStar, "*", i})
			i++
		default:
			return nil, fmt.Errorf("unexpected character %q at position %d", c, i)
		}
	}
	return tokens, nil
}

// scanString returns the offset just past the string literal starting at
// start. A doubled quote inside the literal is an escaped quote.
func scanString(text string, start int) (int, error) {
	quote := text[start]
	i := start + 1
	for i < len(text) {
		if text[i] == quote {
			if i+1 < len(text) && text[i+1] == quote {
				i += 2
				continue
			}
			return i + 1, nil
		}
		i++
	}
	return 0, fmt.Errorf("unterminated string starting at position %d", start)
}

// scanNumber accepts decimal numbers with optional sign, fraction and
// exponent, and 0x-prefixed hexadecimal integers.
func scanNumber(text string, start int) (int, error) {
	i := start
	if text[i] == '-' {
		i++
	}
	if strings.HasPrefix(text[i:], "0x") || strings.HasPrefix(text[i:], "0X") {
		j := i + 2
		for j < len(text) && isHexDigit(text[j]) {
			j++
		}
		if _, err := strconv.ParseInt(text[i+2:j], 16, 64); err != nil {
			return 0, fmt.Errorf("invalid hexadecimal number %q at position %d", text[start:j], start)
		}
		return j, nil
	}

	for i < len(text) && isDigit(text[i]) {
		i++
	}
	if i < len(text) && text[i] == '.' {
		i++
		for i < len(text) && isDigit(text[i]) {
			i++
		}
	}
	if i < len(text) && (text[i] == 'e' || text[i] == 'E') {
		j := i + 1
		if j < len(text) && (text[j] == '+' || text[j] == '-') {
			j++
		}
		if j < len(text) && isDigit(text[j]) {
			for j < len(text) && isDigit(text[j]) {
				j++
			}
			i = j
		}
	}
	if _, err := strconv.ParseFloat(text[start:i], 64); err != nil {
		return 0, fmt.Errorf("invalid number %q at position %d", text[start:i], start)
	}
	return i, nil
}

// afterValue reports whether the previous token ends a value, in which case
// a '.' is member access rather than the start of a number.
func afterValue(tokens []token) bool {
	if len(tokens) == 0 {
		return false
	}
	switch tokens[len(tokens)-1].kind {
	case tokenIdent, tokenString, tokenNumber, tokenRightParen, tokenRightBracket, tokenStar:
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '-'
}
