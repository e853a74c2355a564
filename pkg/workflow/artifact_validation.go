package workflow

import (
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var compressionLevelNames = []string{"fastest", "fast", "default", "best"}

// validateArtifacts checks the inputs of actions/upload-artifact and
// actions/download-artifact steps.
func validateArtifacts(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		upload := strings.HasPrefix(step.Uses, "actions/upload-artifact")
		if !upload && !strings.HasPrefix(step.Uses, "actions/download-artifact") {
			return
		}
		with, found := cst.MappingValue(doc, step.Node, "with")
		if !found || !cst.IsMapping(with) {
			return
		}
		action := step.Uses

		if name, found := cst.MappingValue(doc, with, "name"); found {
			v, _ := readScalar(doc, name)
			switch {
			case isEmptyValue(doc, name):
				diags = append(diags, newError(doc, spanNode(name, fieldKey(doc, with, "name")), fmt.Sprintf(
					"Artifact action '%s' has empty name. Artifact name cannot be empty.", action)))
			case !v.Expr && !isArtifactName(v.Text):
				diags = append(diags, newWarning(doc, name, fmt.Sprintf(
					"Artifact action '%s' has invalid name format: '%s'. Artifact names should contain only alphanumeric characters, hyphens, underscores, dots, and spaces.",
					action, v.Text)))
			}
		}

		if path, found := cst.MappingValue(doc, with, "path"); upload && found && isEmptyValue(doc, path) {
			diags = append(diags, newError(doc, spanNode(path, fieldKey(doc, with, "path")), fmt.Sprintf(
				"Artifact action '%s' has empty path. Path is required for upload-artifact.", action)))
		}

		if days, found := cst.MappingValue(doc, with, "retention-days"); found {
			if value, reason, bad := intRangeProblem(doc, days, 1, 90); bad {
				diags = append(diags, newError(doc, days, fmt.Sprintf(
					"Artifact action '%s' has invalid retention-days: '%s'. retention-days must be %s.", action, value, reason)))
			}
		}

		if level, found := cst.MappingValue(doc, with, "compression-level"); found {
			if value, _, bad := intRangeProblem(doc, level, 0, 9, compressionLevelNames...); bad {
				diags = append(diags, newError(doc, level, fmt.Sprintf(
					"Artifact action '%s' has invalid compression-level: '%s'. compression-level must be between 0 and 9, or one of: %s.",
					action, value, strings.Join(compressionLevelNames, ", "))))
			}
		}
	})
	return diags
}

func isArtifactName(name string) bool {
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ' ':
		default:
			return false
		}
	}
	return true
}
