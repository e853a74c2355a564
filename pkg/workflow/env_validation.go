package workflow

import (
	"fmt"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
)

// validateEnvNames checks the variable names of every env mapping: at the
// workflow, job and step level, and inside container and service
// definitions.
func validateEnvNames(doc *cst.Document) []validation.Diagnostic {
	var envs []*cst.Node
	if env, found := cst.TopLevel(doc, "env"); found {
		envs = append(envs, env)
	}
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		if env, found := cst.MappingValue(doc, job.Node, "env"); found {
			envs = append(envs, env)
		}
		container, _ := cst.MappingValue(doc, job.Node, "container")
		if env, found := cst.MappingValue(doc, container, "env"); found {
			envs = append(envs, env)
		}
		services, _ := cst.MappingValue(doc, job.Node, "services")
		for _, service := range cst.Pairs(services) {
			if env, found := cst.MappingValue(doc, cst.PairValue(service), "env"); found {
				envs = append(envs, env)
			}
		}
		for _, step := range job.Steps {
			if env, found := cst.MappingValue(doc, step.Node, "env"); found {
				envs = append(envs, env)
			}
		}
	})

	var diags []validation.Diagnostic
	for _, env := range envs {
		for _, pair := range cst.Pairs(env) {
			key := cst.PairKey(pair)
			name := cst.CleanKey(doc, key)
			if isEnvName(name) {
				continue
			}
			diags = append(diags, newError(doc, key, fmt.Sprintf(
				"Invalid environment variable name: '%s'. Environment variable names must start with a letter or underscore and contain only letters, numbers, and underscores.",
				name)))
		}
	}
	return diags
}

// isEnvName reports whether name matches [A-Za-z_][A-Za-z0-9_]*.
func isEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
