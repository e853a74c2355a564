package workflow

import (
	"fmt"
	"slices"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

var environmentFields = []string{"name", "url", "deployment"}

// validateEnvironments checks the deployment environment of each job. The
// value is either a name or a mapping with name and url.
func validateEnvironments(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		env, found := cst.MappingValue(doc, job.Node, "environment")
		if !found {
			return
		}
		env = cst.Unwrap(env)
		if cst.IsScalar(env) {
			diags = append(diags, checkEnvironmentName(doc, env)...)
			return
		}
		if !cst.IsMapping(env) {
			return
		}

		for _, pair := range cst.Pairs(env) {
			key := cst.PairKey(pair)
			switch name := cst.CleanKey(doc, key); {
			case name == "protection_rules":
				diags = append(diags, newError(doc, key, "environment protection_rules is not supported in workflow YAML"))
			case !slices.Contains(environmentFields, name):
				diags = append(diags, newError(doc, key, fmt.Sprintf(
					"Invalid field '%s' in job '%s' environment. Valid fields are: %s",
					name, job.Name, strings.Join(environmentFields, ", "))))
			}
		}
		if name, found := cst.MappingValue(doc, env, "name"); found {
			diags = append(diags, checkEnvironmentName(doc, name)...)
		}
		if url, found := cst.MappingValue(doc, env, "url"); found && isEmptyValue(doc, url) {
			diags = append(diags, newError(doc, spanNode(url, fieldKey(doc, env, "url")), fmt.Sprintf(
				"Job '%s' environment url cannot be empty.", job.Name)))
		}
	})
	return diags
}

func checkEnvironmentName(doc *cst.Document, n *cst.Node) []validation.Diagnostic {
	v, ok := readScalar(doc, n)
	if !ok || expression.ContainsExpression(v.Text) || !strings.Contains(v.Text, " ") {
		return nil
	}
	return []validation.Diagnostic{newError(doc, n, fmt.Sprintf("Invalid environment name format: '%s' (contains spaces)", v.Text))}
}
