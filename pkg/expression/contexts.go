package expression

import "slices"

// documentedProperties lists the top-level properties of the contexts whose
// shape is fixed. Contexts like env, vars or matrix are user-defined and not
// listed.
var documentedProperties = map[string][]string{
	"github": {
		"action", "action_path", "action_ref", "action_repository", "action_status",
		"actor", "actor_id", "api_url", "base_ref", "env", "event", "event_name",
		"event_path", "graphql_url", "head_ref", "job", "output", "path", "ref",
		"ref_name", "ref_protected", "ref_type", "repository", "repository_id",
		"repository_owner", "repository_owner_id", "repositoryUrl", "retention_days",
		"run_attempt", "run_id", "run_number", "secret_source", "server_url", "sha",
		"state", "step_summary", "token", "triggering_actor", "workflow",
		"workflow_ref", "workflow_sha", "workspace",
	},
	"runner": {
		"arch", "debug", "environment", "name", "os", "temp", "tool_cache", "workspace",
	},
	"job": {
		"check_run_id", "container", "services", "status",
		"workflow_file_path", "workflow_ref", "workflow_repository", "workflow_sha",
	},
	"strategy": {
		"fail-fast", "job-index", "job-total", "max-parallel",
	},
}

// UnknownContextProperty returns the first github, runner, job or strategy
// reference in inner whose first property is not documented for that
// context, for example "github.nonexistent".
func UnknownContextProperty(inner string) (Reference, bool) {
	var found []Reference
	for context, props := range documentedProperties {
		for _, ref := range ContextReferences(inner, context) {
			if ref.Path[0] == "*" || slices.Contains(props, ref.Path[0]) {
				continue
			}
			found = append(found, ref)
		}
	}
	if len(found) == 0 {
		return Reference{}, false
	}
	first := slices.MinFunc(found, func(a, b Reference) int { return a.Start - b.Start })
	return first, true
}
