// This file reports workflow commands that GitHub has disabled.
//
// The ::set-output, ::save-state, ::set-env and ::add-path stdout commands
// were replaced by writes to the files named in $GITHUB_OUTPUT, $GITHUB_STATE,
// $GITHUB_ENV and $GITHUB_PATH.

package workflow

import (
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var deprecatedCommands = []struct {
	Command     string
	Replacement string
}{
	{"::set-output", "Use `echo \"name=value\" >> $GITHUB_OUTPUT` instead"},
	{"::save-state", "Use `echo \"name=value\" >> $GITHUB_STATE` instead"},
	{"::set-env", "Use `echo \"name=value\" >> $GITHUB_ENV` instead"},
	{"::add-path", "Use `echo \"path\" >> $GITHUB_PATH` instead"},
}

// validateDeprecatedCommands reports the first use of each deprecated
// command in every run script.
func validateDeprecatedCommands(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		if step.RunNode == nil {
			return
		}
		for _, dc := range deprecatedCommands {
			idx := strings.Index(step.Run, dc.Command)
			if idx < 0 {
				continue
			}
			start := step.RunNode.Start + idx
			diags = append(diags, newDiagnostic(validation.Warning,
				validation.NewSpan(start, start+len(dc.Command), doc.Len()),
				fmt.Sprintf("Deprecated workflow command '%s' detected. %s", dc.Command, dc.Replacement)))
		}
	})
	return diags
}
