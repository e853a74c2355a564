// This file provides validation for job strategies and build matrices.
//
// # Validation Functions
//
//   - validateJobStrategy() - 'strategy' needs a matrix; max-parallel and fail-fast types
//   - validateMatrix() - Matrix shape, include/exclude arrays and duplicate keys
//
// # Matrix Shape
//
// A matrix is a mapping whose values are arrays, plus the optional include
// and exclude arrays. A whole matrix, or any single value, may instead be an
// expression such as ${{ fromJSON(needs.setup.outputs.matrix) }}, which is
// only known at run time and therefore always passes.
//
// Nested include entries are walked with a bounded visitor. Matrices nested
// deeper than maxMatrixDepth are reported once with an Info diagnostic
// instead of being walked.

package workflow

import (
	"fmt"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var strategyValidationLog = logger.New("workflow:strategy_validation")

// maxMatrixDepth bounds the walk over nested matrix values.
const maxMatrixDepth = 10

func validateJobStrategy(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		strategy, found := cst.MappingValue(doc, job.Node, "strategy")
		if !found || !cst.IsMapping(strategy) {
			return
		}

		_, hasMatrix := cst.MappingValue(doc, strategy, "matrix")
		maxParallel, hasMaxParallel := cst.MappingValue(doc, strategy, "max-parallel")
		failFast, hasFailFast := cst.MappingValue(doc, strategy, "fail-fast")

		if !hasMatrix {
			key := fieldKey(doc, job.Node, "strategy")
			if hasMaxParallel || hasFailFast {
				diags = append(diags, newWarning(doc, key, fmt.Sprintf(
					"Job '%s' has a 'strategy' field with 'max-parallel' or 'fail-fast' but no 'matrix' field. Consider adding a matrix for better job distribution.",
					job.Name)))
			} else {
				diags = append(diags, newError(doc, key, fmt.Sprintf(
					"Job '%s' has a 'strategy' field but no 'matrix' field. Strategy requires a matrix to be defined.", job.Name)))
			}
		}

		if hasMaxParallel {
			if value, reason, bad := positiveNumberProblem(doc, maxParallel, true); bad {
				diags = append(diags, newError(doc, spanNode(maxParallel, fieldKey(doc, strategy, "max-parallel")), fmt.Sprintf(
					"Job '%s' has invalid max-parallel: '%s'. max-parallel must be %s.", job.Name, value, reason)))
			}
		}
		if hasFailFast {
			if value, reason, bad := booleanProblem(doc, failFast); bad {
				diags = append(diags, newError(doc, failFast, fmt.Sprintf(
					"Job '%s' has invalid fail-fast: '%s'. fail-fast must be %s.", job.Name, value, reason)))
			}
		}
	})
	return diags
}

func validateMatrix(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		strategy, _ := cst.MappingValue(doc, job.Node, "strategy")
		matrix, found := cst.MappingValue(doc, strategy, "matrix")
		if !found {
			return
		}
		diags = append(diags, validateJobMatrix(doc, job, matrix, fieldKey(doc, strategy, "matrix"))...)
	})
	return diags
}

func validateJobMatrix(doc *cst.Document, job *xref.Job, matrix, key *cst.Node) []validation.Diagnostic {
	matrix = cst.Unwrap(matrix)
	if isExpressionValue(doc, matrix) {
		return nil
	}
	at := spanNode(matrix, key)
	if isEmptyValue(doc, matrix) || (cst.IsMapping(matrix) && len(cst.Pairs(matrix)) == 0) ||
		(cst.IsSequence(matrix) && len(cst.Items(matrix)) == 0) {
		return []validation.Diagnostic{newError(doc, at, fmt.Sprintf("Job '%s' matrix cannot be empty", job.Name))}
	}
	if !cst.IsMapping(matrix) {
		return []validation.Diagnostic{newError(doc, at, fmt.Sprintf(
			"Job '%s' has invalid matrix syntax: matrix must contain keys or include/exclude", job.Name))}
	}

	var diags []validation.Diagnostic
	for _, pair := range cst.Pairs(matrix) {
		k := cst.PairKey(pair)
		name := cst.CleanKey(doc, k)
		value := cst.Unwrap(cst.PairValue(pair))
		if isExpressionValue(doc, value) || cst.IsSequence(value) {
			continue
		}
		switch {
		case name == "include" || name == "exclude":
			diags = append(diags, newError(doc, spanNode(value, k), fmt.Sprintf(
				"Job '%s' has invalid %s syntax: must be an array", job.Name, name)))
		case cst.IsMapping(value):
			diags = append(diags, newError(doc, value, fmt.Sprintf(
				"Matrix key '%s' has a mapping value. Matrix values must be arrays.", name)))
		default:
			diags = append(diags, newError(doc, spanNode(value, k), fmt.Sprintf(
				"Matrix key '%s' has a scalar value. Matrix values must be arrays.", name)))
		}
	}

	truncated := cst.Visit(matrix, maxMatrixDepth, func(n *cst.Node, _ int) bool {
		if cst.IsMapping(n) && n == cst.Unwrap(n) {
			diags = append(diags, duplicateKeys(doc, n)...)
		}
		return true
	})
	if truncated {
		strategyValidationLog.Printf("Matrix of job %s exceeds depth %d", job.Name, maxMatrixDepth)
		diags = append(diags, newDiagnostic(validation.Info, validation.NodeSpan(doc, matrix), fmt.Sprintf(
			"Job '%s' matrix is nested deeper than %d levels; deeper values were not validated", job.Name, maxMatrixDepth)))
	}
	return diags
}

// duplicateKeys reports every key of mapping that repeats an earlier key.
func duplicateKeys(doc *cst.Document, mapping *cst.Node) []validation.Diagnostic {
	seen := make(map[string]bool)
	var diags []validation.Diagnostic
	for _, pair := range cst.Pairs(mapping) {
		key := cst.PairKey(pair)
		name := cst.CleanKey(doc, key)
		if seen[name] {
			diags = append(diags, newError(doc, key, fmt.Sprintf("Duplicate key '%s' in matrix", name)))
			continue
		}
		seen[name] = true
	}
	return diags
}
