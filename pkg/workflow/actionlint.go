package workflow

import (
	"io"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/rhysd/actionlint"
)

var actionlintLog = logger.New("workflow:actionlint")

// ActionlintRuleName is the rule id of diagnostics reported by actionlint.
const ActionlintRuleName = "actionlint"

// actionlintRule runs actionlint over the document source as a second
// opinion. Its findings are reported as warnings, since they overlap with
// the built-in rules and use actionlint's own wording.
type actionlintRule struct {
	opts actionlint.LinterOptions
}

// NewActionlintRule returns a rule that runs actionlint in-process. External
// checkers such as shellcheck are not invoked.
func NewActionlintRule() validation.Rule {
	return &actionlintRule{opts: actionlint.LinterOptions{StdinFileName: "workflow.yml"}}
}

func (r *actionlintRule) Name() string { return ActionlintRuleName }

func (r *actionlintRule) RequiresWorkflow() bool { return true }

func (r *actionlintRule) Validate(doc *cst.Document) []validation.Diagnostic {
	linter, err := actionlint.NewLinter(io.Discard, &r.opts)
	if err != nil {
		actionlintLog.Printf("Failed to create linter: %v", err)
		return nil
	}
	errs, err := linter.Lint("<stdin>", []byte(doc.Source), nil)
	if err != nil {
		actionlintLog.Printf("Lint failed: %v", err)
		return nil
	}

	lines := lineOffsets(doc.Source)
	diags := make([]validation.Diagnostic, 0, len(errs))
	for _, e := range errs {
		start := offsetOf(lines, len(doc.Source), e.Line, e.Column)
		end := len(doc.Source)
		if i := strings.IndexByte(doc.Source[start:], '\n'); i >= 0 {
			end = start + i
		}
		diags = append(diags, newDiagnostic(validation.Warning, validation.NewSpan(start, end, doc.Len()),
			e.Message+" ["+e.Kind+"]"))
	}
	actionlintLog.Printf("actionlint reported %d findings", len(diags))
	return diags
}

// lineOffsets returns the byte offset of the start of every line.
func lineOffsets(source string) []int {
	offsets := []int{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// offsetOf converts a 1-based line and column to a byte offset, clamped to
// the source.
func offsetOf(lines []int, size, line, column int) int {
	if line < 1 {
		return 0
	}
	if line > len(lines) {
		return size
	}
	return min(lines[line-1]+max(column-1, 0), size)
}
