// This file provides validation for individual steps.
//
// # Validation Functions
//
//   - validateSteps() - A step runs exactly one of 'uses' or 'run'
//   - validateStepIDs() - Step ids are unique within a job and use the identifier charset
//   - validateStepTimeout() - Step 'timeout-minutes' must be a positive number
//   - validateStepContinueOnError() - Step 'continue-on-error' must be a boolean
//   - validateStepWorkingDirectory() - Step 'working-directory' must be a usable path
//   - validateStepShell() - Step 'shell' must be a known shell or a custom template
//   - validateDefaults() - defaults.run at workflow and job level
//
// Values written as ${{ }} expressions pass every check in this file.

package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var stepValidationLog = logger.New("workflow:step_validation")

// knownShells are the shell keywords the runner understands.
var knownShells = []string{"bash", "pwsh", "python", "sh", "cmd", "powershell"}

const shellHint = "Valid shells are: bash, pwsh, python, sh, cmd, powershell, or a custom command with {0} placeholder."

func validateSteps(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		usesKey := fieldKey(doc, step.Node, "uses")
		runKey := fieldKey(doc, step.Node, "run")
		switch {
		case usesKey == nil && runKey == nil:
			diags = append(diags, newError(doc, step.Node, "Step must have either 'uses' or 'run' field"))
		case usesKey != nil && runKey != nil:
			diags = append(diags, newError(doc, runKey, "Step cannot have both 'uses' and 'run' fields"))
		}
	})
	return diags
}

func validateStepIDs(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		seen := make(map[string]bool)
		for _, step := range job.Steps {
			if !step.HasID() {
				continue
			}
			if seen[step.ID] {
				diags = append(diags, newError(doc, step.IDNode, fmt.Sprintf(
					"Job '%s' has duplicate step ID: '%s'. Step IDs must be unique within a job.", job.Name, step.ID)))
				continue
			}
			seen[step.ID] = true
			if !isIdentifier(step.ID) {
				diags = append(diags, newWarning(doc, step.IDNode, fmt.Sprintf(
					"Job '%s' has step ID '%s' with invalid format. Step IDs must contain only alphanumeric characters, hyphens, and underscores.",
					job.Name, step.ID)))
			}
		}
	})
	return diags
}

func validateStepTimeout(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		timeout, found := cst.MappingValue(doc, step.Node, "timeout-minutes")
		if !found {
			return
		}
		if value, reason, bad := positiveNumberProblem(doc, timeout, false); bad {
			diags = append(diags, newError(doc, timeout, fmt.Sprintf(
				"Step has invalid timeout-minutes: '%s'. Timeout must be %s.", value, reason)))
		}
	})
	return diags
}

func validateStepContinueOnError(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		value, found := cst.MappingValue(doc, step.Node, "continue-on-error")
		if !found {
			return
		}
		if text, reason, bad := booleanProblem(doc, value); bad {
			diags = append(diags, newError(doc, value, fmt.Sprintf(
				"Step has invalid continue-on-error: '%s'. continue-on-error must be %s.", text, reason)))
		}
	})
	return diags
}

func validateStepWorkingDirectory(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		dir, found := cst.MappingValue(doc, step.Node, "working-directory")
		if !found {
			return
		}
		if isEmptyValue(doc, dir) {
			diags = append(diags, newError(doc, spanNode(dir, fieldKey(doc, step.Node, "working-directory")),
				"Step has empty working-directory. working-directory must be a valid path."))
			return
		}
		v, ok := readScalar(doc, dir)
		if !ok || v.Expr {
			return
		}
		path := v.Text
		switch {
		case strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "/home") && !strings.HasPrefix(path, "/github"):
			diags = append(diags, newWarning(doc, dir, fmt.Sprintf(
				"Step working-directory '%s' is an absolute path that may not exist in the GitHub Actions runner environment. Consider using a relative path.",
				path)))
		case strings.Contains(path, "..") && path != ".." && !strings.HasPrefix(path, "../"):
			diags = append(diags, newWarning(doc, dir, fmt.Sprintf(
				"Step working-directory '%s' contains '..' in an unusual position. Verify the path is correct.", path)))
		}
	})
	return diags
}

func validateStepShell(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		shell, found := cst.MappingValue(doc, step.Node, "shell")
		if !found {
			return
		}
		if isEmptyValue(doc, shell) {
			diags = append(diags, newError(doc, spanNode(shell, fieldKey(doc, step.Node, "shell")),
				"Step has empty shell value. Shell must be a valid shell name or custom command."))
			return
		}
		if value, bad := shellProblem(doc, shell); bad {
			diags = append(diags, newError(doc, shell, fmt.Sprintf("Step has invalid shell: '%s'. %s", value, shellHint)))
		}
	})
	return diags
}

// shellProblem reports a shell value that is neither a known shell nor a
// custom command template containing {0}.
func shellProblem(doc *cst.Document, n *cst.Node) (string, bool) {
	v, ok := readScalar(doc, n)
	if !ok || v.Expr || v.Text == "" {
		return "", false
	}
	if slices.Contains(knownShells, v.Text) || strings.Contains(v.Text, "{0}") {
		return "", false
	}
	return v.Text, true
}

func validateDefaults(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	if defaults, found := cst.TopLevel(doc, "defaults"); found {
		diags = append(diags, validateRunDefaults(doc, defaults, "Workflow")...)
	}
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		if defaults, found := cst.MappingValue(doc, job.Node, "defaults"); found {
			diags = append(diags, validateRunDefaults(doc, defaults, fmt.Sprintf("Job '%s'", job.Name))...)
		}
	})
	if len(diags) > 0 {
		stepValidationLog.Printf("Found %d defaults problems", len(diags))
	}
	return diags
}

func validateRunDefaults(doc *cst.Document, defaults *cst.Node, owner string) []validation.Diagnostic {
	run, _ := cst.MappingValue(doc, defaults, "run")
	var diags []validation.Diagnostic
	if shell, found := cst.MappingValue(doc, run, "shell"); found {
		if value, bad := shellProblem(doc, shell); bad {
			diags = append(diags, newError(doc, shell, fmt.Sprintf(
				"%s defaults.run.shell has invalid value: '%s'. %s", owner, value, shellHint)))
		}
	}
	if dir, found := cst.MappingValue(doc, run, "working-directory"); found && isEmptyValue(doc, dir) {
		diags = append(diags, newError(doc, spanNode(dir, fieldKey(doc, run, "working-directory")), fmt.Sprintf(
			"%s defaults.run.working-directory is empty. working-directory must be a valid path.", owner)))
	}
	return diags
}
