// This file provides validation for GITHUB_TOKEN permissions.
//
// Permissions may be set at the workflow level and on each job, either as one
// of the shorthand values read-all, write-all or none, or as a mapping of
// scopes to read, write or none. An empty mapping ({}) disables every scope
// and is valid.

package workflow

import (
	"fmt"
	"slices"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var permissionsValidationLog = logger.New("workflow:permissions_validation")

var permissionScopes = []string{
	"actions", "attestations", "checks", "contents", "deployments", "discussions",
	"id-token", "issues", "models", "packages", "pages", "pull-requests",
	"repository-projects", "security-events", "statuses",
}

var (
	permissionShorthands = []string{"read-all", "write-all", "none"}
	permissionLevels     = []string{"read", "write", "none"}
)

func validatePermissions(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	if value, found := cst.TopLevel(doc, "permissions"); found {
		diags = append(diags, validatePermissionsValue(doc, value)...)
	}
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		if value, found := cst.MappingValue(doc, job.Node, "permissions"); found {
			diags = append(diags, validatePermissionsValue(doc, value)...)
		}
	})
	if len(diags) > 0 {
		permissionsValidationLog.Printf("Found %d permission problems", len(diags))
	}
	return diags
}

func validatePermissionsValue(doc *cst.Document, value *cst.Node) []validation.Diagnostic {
	value = cst.Unwrap(value)
	if v, ok := readScalar(doc, value); ok {
		if v.Expr || slices.Contains(permissionShorthands, v.Text) {
			return nil
		}
		return []validation.Diagnostic{newError(doc, value, fmt.Sprintf(
			"Invalid permission value: '%s' (must be 'read-all', 'write-all', or 'none')", v.Text))}
	}

	var diags []validation.Diagnostic
	for _, pair := range cst.Pairs(value) {
		key := cst.PairKey(pair)
		scope := cst.CleanKey(doc, key)
		if !slices.Contains(permissionScopes, scope) {
			diags = append(diags, newError(doc, key, fmt.Sprintf("Invalid permission scope: '%s'", scope)))
			continue
		}
		level, ok := readScalar(doc, cst.PairValue(pair))
		if !ok || level.Expr || slices.Contains(permissionLevels, level.Text) {
			continue
		}
		diags = append(diags, newError(doc, level.Node, fmt.Sprintf(
			"Invalid permission value: '%s' (must be 'read', 'write', or 'none')", level.Text)))
	}
	return diags
}
