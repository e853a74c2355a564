package xref

import (
	"slices"
	"strings"
	"unicode"
)

// OutputInferrer derives the output names a step's run script writes.
// Returning no names means the outputs are unknown and references to them
// are not checked.
type OutputInferrer interface {
	InferOutputs(script string) []string
}

// ShellOutputInferrer recognizes the common shell idioms for step outputs:
//
//	echo "name=value" >> $GITHUB_OUTPUT
//	echo name=value >> "$GITHUB_OUTPUT"
//	printf 'name=%s\n' "$v" >> $GITHUB_OUTPUT
//	echo "name<<EOF" >> $GITHUB_OUTPUT
//	echo "::set-output name=name::value"
//
// Lines inside a "{ ... } >> $GITHUB_OUTPUT" group count as well. A script
// that writes to GITHUB_OUTPUT in a form none of these match, such as
// "cat file >> $GITHUB_OUTPUT", yields no names so that its real outputs are
// not reported as missing.
type ShellOutputInferrer struct{}

// InferOutputs implements OutputInferrer.
func (ShellOutputInferrer) InferOutputs(script string) []string {
	var names []string
	lines := strings.Split(script, "\n")
	groupStart := -1
	delim := ""

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.Contains(line, "::set-output") {
			if name, ok := setOutputName(line); ok {
				names = append(names, name)
			}
		}

		switch {
		case trimmed == "{":
			groupStart = i
			continue
		case strings.HasPrefix(trimmed, "}") && groupStart >= 0:
			if strings.Contains(line, "GITHUB_OUTPUT") {
				for _, inner := range lines[groupStart+1 : i] {
					found, _, _ := commandOutputs(inner)
					names = append(names, found...)
				}
			}
			groupStart = -1
			continue
		}

		if !strings.Contains(line, "GITHUB_OUTPUT") || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if delim != "" {
			// Body of a name<<DELIM block, up to the closing delimiter.
			if args, ok := commandArgs(line); ok && strings.Trim(args, `"'`) == delim {
				delim = ""
			}
			continue
		}
		found, heredoc, recognized := commandOutputs(line)
		if !recognized {
			return nil
		}
		names = append(names, found...)
		delim = heredoc
	}
	return names
}

// commandOutputs extracts output names from the echo and printf commands of
// one shell line. heredoc is the delimiter of a name<<DELIM opener, if any.
// recognized is false when no command on the line yields a name.
func commandOutputs(line string) (names []string, heredoc string, recognized bool) {
	for _, segment := range splitCommands(line) {
		args, ok := commandArgs(segment)
		if !ok {
			continue
		}
		if heredoc != "" && strings.Trim(args, `"'`) == heredoc {
			heredoc = ""
			continue
		}
		if name, delim, ok := assignmentName(args); ok {
			names = append(names, name)
			heredoc = delim
		}
	}
	return names, heredoc, len(names) > 0
}

// splitCommands cuts a line at ';', '&&' and '||' outside quotes.
func splitCommands(line string) []string {
	var parts []string
	var quote byte
	start := 0
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == ';':
			parts = append(parts, line[start:i])
			start = i + 1
		case (c == '&' || c == '|') && i+1 < len(line) && line[i+1] == c:
			parts = append(parts, line[start:i])
			start = i + 2
			i++
		}
	}
	return append(parts, line[start:])
}

// commandArgs returns what follows a leading echo or printf command, with the
// output redirection and any pipe removed.
func commandArgs(segment string) (string, bool) {
	fields := strings.TrimSpace(segment)
	for _, keyword := range []string{"{ ", "then ", "else ", "do ", "! "} {
		fields = strings.TrimSpace(strings.TrimPrefix(fields, keyword))
	}
	var rest string
	switch {
	case strings.HasPrefix(fields, "echo "):
		rest = fields[len("echo "):]
	case strings.HasPrefix(fields, "printf "):
		rest = fields[len("printf "):]
	default:
		return "", false
	}
	for _, stop := range []string{">>", "|"} {
		if i := indexUnquoted(rest, stop); i >= 0 {
			rest = rest[:i]
		}
	}
	rest = strings.TrimSpace(rest)
	for strings.HasPrefix(rest, "-") {
		flag, after, _ := strings.Cut(rest, " ")
		if strings.ContainsAny(flag, "=<") {
			break
		}
		rest = strings.TrimSpace(after)
	}
	return rest, rest != ""
}

// assignmentName reads the output name from the first argument of an echo
// or printf: "name=value", 'name=value', name=value or name<<DELIM. For
// the last form delim is DELIM.
func assignmentName(args string) (name, delim string, ok bool) {
	arg := args
	if q := args[0]; q == '"' || q == '\'' {
		end := strings.IndexByte(args[1:], q)
		if end < 0 {
			return "", "", false
		}
		arg = args[1 : end+1]
	} else if i := strings.IndexFunc(args, unicode.IsSpace); i >= 0 {
		arg = args[:i]
	}

	eq := strings.IndexByte(arg, '=')
	heredoc := strings.Index(arg, "<<")
	switch {
	case heredoc >= 0 && (eq < 0 || heredoc < eq):
		name = arg[:heredoc]
		delim = strings.TrimSpace(arg[heredoc+2:])
		delim = strings.TrimSuffix(delim, `\n`)
	case eq >= 0:
		name = arg[:eq]
	default:
		return "", "", false
	}
	name = strings.Trim(name, `"'`)
	if !ValidOutputName(name) {
		return "", "", false
	}
	return name, delim, true
}

func setOutputName(line string) (string, bool) {
	_, after, ok := strings.Cut(line, "::set-output")
	if !ok {
		return "", false
	}
	_, after, ok = strings.Cut(after, "name=")
	if !ok {
		return "", false
	}
	name, _, ok := strings.Cut(after, "::")
	if !ok {
		return "", false
	}
	name = strings.TrimFunc(name, func(r rune) bool { return r == '"' || r == '\'' || unicode.IsSpace(r) })
	return name, name != ""
}

func indexUnquoted(s, substr string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case strings.HasPrefix(s[i:], substr):
			return i
		}
	}
	return -1
}

// ValidOutputName reports whether name uses only letters, digits, '-' and
// '_'.
func ValidOutputName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return false
		}
	}
	return true
}

// normalize sorts and deduplicates names; an empty result is nil.
func normalize(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return slices.Compact(names)
}
