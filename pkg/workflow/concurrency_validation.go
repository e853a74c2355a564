// This file provides validation for concurrency settings.
//
// # Concurrency Validation
//
// Concurrency can be set at the workflow level and on each job, either as a
// plain group string or as a mapping with 'group' and 'cancel-in-progress'.
//
// # Validation Functions
//
//   - validateConcurrency() - Entry point, visits the workflow and every job
//   - validateConcurrencyBlock() - Checks one concurrency value
//   - validateConcurrencyGroup() - Checks the group string itself
//   - validateBalancedBraces() - Finds '}}' without a matching '${{'
//
// # Validation Coverage
//
// The validation detects:
//   - Mappings without the required 'group' field
//   - Groups given as numbers or left empty
//   - Non-boolean 'cancel-in-progress' values
//   - Unknown fields inside the mapping
//   - Stray closing braces in the group string
//
// Unclosed and malformed ${{ }} expressions inside the group are reported by
// the expression rule, which scans the whole document.

package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var concurrencyValidationLog = logger.New("workflow:concurrency_validation")

var concurrencyFields = []string{"group", "cancel-in-progress"}

func validateConcurrency(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	if value, found := cst.TopLevel(doc, "concurrency"); found {
		diags = append(diags, validateConcurrencyBlock(doc, value, fieldKey(doc, cst.Body(doc), "concurrency"), "workflow")...)
	}
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		if value, found := cst.MappingValue(doc, job.Node, "concurrency"); found {
			level := fmt.Sprintf("job '%s'", job.Name)
			diags = append(diags, validateConcurrencyBlock(doc, value, fieldKey(doc, job.Node, "concurrency"), level)...)
		}
	})
	return diags
}

// validateConcurrencyBlock checks one concurrency value. level names where
// it was found, as in "workflow" or "job 'build'".
func validateConcurrencyBlock(doc *cst.Document, value, key *cst.Node, level string) []validation.Diagnostic {
	value = cst.Unwrap(value)
	concurrencyValidationLog.Printf("Validating concurrency at %s level", level)

	if cst.IsScalar(value) || value == nil {
		return validateConcurrencyGroup(doc, value, key, level)
	}
	if !cst.IsMapping(value) {
		return []validation.Diagnostic{newError(doc, value, fmt.Sprintf(
			"Concurrency at %s level must be a string or a mapping with 'group' and 'cancel-in-progress'.", level))}
	}

	diags := checkAllowedFields(doc, value, concurrencyFields, func(name string) string {
		return fmt.Sprintf("Invalid field '%s' in concurrency at %s level. Valid fields are: %s",
			name, level, strings.Join(concurrencyFields, ", "))
	})

	group, hasGroup := cst.MappingValue(doc, value, "group")
	if !hasGroup {
		diags = append(diags, newError(doc, value, fmt.Sprintf(
			"Concurrency at %s level is missing required 'group' field.", level)))
	} else {
		diags = append(diags, validateConcurrencyGroup(doc, group, fieldKey(doc, value, "group"), level)...)
	}

	if cancel, found := cst.MappingValue(doc, value, "cancel-in-progress"); found {
		if _, reason, bad := booleanProblem(doc, cancel); bad {
			diags = append(diags, newError(doc, spanNode(cancel, fieldKey(doc, value, "cancel-in-progress")), fmt.Sprintf(
				"Concurrency 'cancel-in-progress' at %s level must be %s.", level, reason)))
		}
	}
	return diags
}

// validateConcurrencyGroup checks a group given as a scalar.
func validateConcurrencyGroup(doc *cst.Document, group, key *cst.Node, level string) []validation.Diagnostic {
	if isEmptyValue(doc, group) {
		return []validation.Diagnostic{newError(doc, spanNode(group, key), fmt.Sprintf(
			"Concurrency 'group' at %s level cannot be empty.", level))}
	}
	v, ok := readScalar(doc, group)
	if !ok {
		return []validation.Diagnostic{newError(doc, group, fmt.Sprintf(
			"Concurrency 'group' at %s level must be a string or expression.", level))}
	}
	if !v.Quoted {
		if _, err := strconv.ParseFloat(v.Text, 64); err == nil {
			return []validation.Diagnostic{newError(doc, group, fmt.Sprintf(
				"Concurrency 'group' at %s level must be a string or expression, not a number.", level))}
		}
	}
	if pos, ok := validateBalancedBraces(v.Text); !ok {
		return []validation.Diagnostic{newError(doc, group, fmt.Sprintf(
			"Concurrency 'group' at %s level has '}}' at position %d without a matching '${{'.", level, pos))}
	}
	return nil
}

// validateBalancedBraces scans group for a closing '}}' that no '${{' opened
// and returns its position. Braces inside an open expression, such as those
// of format('{0}'), are skipped.
func validateBalancedBraces(group string) (int, bool) {
	open := 0
	for i := 0; i < len(group); {
		switch {
		case strings.HasPrefix(group[i:], "${{"):
			open++
			i += 3
		case strings.HasPrefix(group[i:], "}}"):
			if open == 0 {
				concurrencyValidationLog.Printf("Unbalanced closing braces at position %d", i)
				return i, false
			}
			open--
			i += 2
		default:
			i++
		}
	}
	return 0, true
}
