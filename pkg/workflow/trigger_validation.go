// This file provides validation for the workflow 'on' section.
//
// # Validation Functions
//
//   - validateWorkflowTrigger() - Checks that the trigger events are known
//   - validateEventPayload() - Checks the configuration of each event
//
// # Event Configuration
//
// Each event accepts a fixed set of filter fields (for example push accepts
// branches, paths and tags with their -ignore variants). The positive and
// -ignore variants of a filter are mutually exclusive. Activity types are
// checked for the events whose type list is stable, and schedule entries must
// carry a valid five-field cron expression.

package workflow

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/parser"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

var triggerValidationLog = logger.New("workflow:trigger_validation")

// knownEvents lists the events that can trigger a workflow.
var knownEvents = []string{
	"branch_protection_rule", "check_run", "check_suite", "create", "delete",
	"deployment", "deployment_status", "discussion", "discussion_comment", "fork",
	"gollum", "issue_comment", "issues", "label", "merge_group", "milestone",
	"page_build", "project", "project_card", "project_column", "public",
	"pull_request", "pull_request_review", "pull_request_review_comment",
	"pull_request_target", "push", "registry_package", "release",
	"repository_dispatch", "schedule", "status", "watch", "workflow_call",
	"workflow_dispatch", "workflow_run",
}

var (
	pushFields        = []string{"branches", "branches-ignore", "paths", "paths-ignore", "tags", "tags-ignore"}
	pullRequestFields = []string{"types", "branches", "branches-ignore", "paths", "paths-ignore"}
	typesOnly         = []string{"types"}
)

// eventFields maps each event to the configuration keys it accepts. Events
// missing from the map take no configuration.
var eventFields = map[string][]string{
	"push":                        pushFields,
	"pull_request":                pullRequestFields,
	"pull_request_target":         pullRequestFields,
	"workflow_dispatch":           {"inputs"},
	"workflow_call":               {"inputs", "secrets", "outputs"},
	"workflow_run":                {"workflows", "types", "branches", "branches-ignore"},
	"branch_protection_rule":      typesOnly,
	"check_run":                   typesOnly,
	"check_suite":                 typesOnly,
	"discussion":                  typesOnly,
	"discussion_comment":          typesOnly,
	"issue_comment":               typesOnly,
	"issues":                      typesOnly,
	"label":                       typesOnly,
	"merge_group":                 typesOnly,
	"milestone":                   typesOnly,
	"project":                     typesOnly,
	"project_card":                typesOnly,
	"project_column":              typesOnly,
	"pull_request_review":         typesOnly,
	"pull_request_review_comment": typesOnly,
	"registry_package":            typesOnly,
	"release":                     typesOnly,
	"repository_dispatch":         typesOnly,
	"watch":                       typesOnly,
}

var pullRequestTypes = []string{
	"opened", "closed", "synchronize", "reopened", "assigned", "unassigned",
	"labeled", "unlabeled", "review_requested", "review_request_removed",
	"edited", "ready_for_review", "converted_to_draft", "auto_merge_enabled",
	"auto_merge_disabled", "enqueued", "dequeued", "milestoned", "demilestoned",
	"locked", "unlocked",
}

// eventTypes maps events to their activity types. repository_dispatch
// accepts arbitrary types and is not listed.
var eventTypes = map[string][]string{
	"pull_request":        pullRequestTypes,
	"pull_request_target": pullRequestTypes,
	"issues": {
		"opened", "edited", "deleted", "closed", "reopened", "assigned",
		"unassigned", "labeled", "unlabeled", "locked", "unlocked", "transferred",
		"milestoned", "demilestoned", "pinned", "unpinned",
	},
	"issue_comment": {"created", "edited", "deleted"},
	"release": {
		"published", "unpublished", "created", "edited", "deleted",
		"prereleased", "released",
	},
	"workflow_run": {"completed", "requested", "in_progress"},
}

// exclusiveFilters are filter pairs that may not both be set on one event.
var exclusiveFilters = [][2]string{
	{"branches", "branches-ignore"},
	{"tags", "tags-ignore"},
	{"paths", "paths-ignore"},
}

func validateWorkflowTrigger(doc *cst.Document) []validation.Diagnostic {
	on, found := cst.TopLevel(doc, "on")
	if !found {
		// Reported by github_actions_schema.
		return nil
	}
	onKey := fieldKey(doc, cst.Body(doc), "on")
	on = cst.Unwrap(on)
	if isEmptyValue(doc, on) {
		return []validation.Diagnostic{newError(doc, onKey,
			"Workflow 'on' field cannot be empty. Specify at least one trigger event.")}
	}

	var diags []validation.Diagnostic
	checkEvent := func(n *cst.Node, event string) {
		if !slices.Contains(knownEvents, event) {
			diags = append(diags, newError(doc, n, fmt.Sprintf("Invalid event type: '%s'", event)))
		}
	}

	switch {
	case cst.IsScalar(on):
		checkEvent(on, cst.CleanText(doc, on))
	case cst.IsSequence(on):
		if text := doc.Text(on); strings.Contains(text, ",]") || strings.Contains(text, ", ]") || strings.Contains(text, ",,") {
			diags = append(diags, newError(doc, on, "Invalid trigger syntax: empty array item"))
		}
		for _, item := range cst.Items(on) {
			if event := cst.CleanText(doc, item); event != "" {
				checkEvent(item, event)
			}
		}
	case cst.IsMapping(on):
		for _, pair := range cst.Pairs(on) {
			key := cst.PairKey(pair)
			checkEvent(key, cst.CleanKey(doc, key))
		}
	}
	return diags
}

func validateEventPayload(doc *cst.Document) []validation.Diagnostic {
	on, _ := cst.TopLevel(doc, "on")
	var diags []validation.Diagnostic
	for _, pair := range cst.Pairs(on) {
		event := cst.CleanKey(doc, cst.PairKey(pair))
		if !slices.Contains(knownEvents, event) {
			// Reported by workflow_trigger.
			continue
		}
		value := cst.Unwrap(cst.PairValue(pair))
		if event == "schedule" {
			diags = append(diags, validateSchedule(doc, cst.PairKey(pair), value)...)
			continue
		}
		if !cst.IsMapping(value) {
			continue
		}

		allowed := eventFields[event]
		diags = append(diags, checkAllowedFields(doc, value, allowed, func(key string) string {
			return fmt.Sprintf("Invalid field '%s' for %s event. Valid fields are: %s", key, event, noneOr(allowed))
		})...)
		for _, p := range exclusiveFilters {
			diags = append(diags, checkMutuallyExclusive(doc, value, p[0], p[1])...)
		}
		if valid, ok := eventTypes[event]; ok {
			diags = append(diags, validateActivityTypes(doc, event, value, valid)...)
		}
	}
	if len(diags) > 0 {
		triggerValidationLog.Printf("Found %d event configuration problems", len(diags))
	}
	return diags
}

func validateActivityTypes(doc *cst.Document, event string, config *cst.Node, valid []string) []validation.Diagnostic {
	types, found := cst.MappingValue(doc, config, "types")
	if !found || isExpressionValue(doc, types) {
		return nil
	}
	var nodes []*cst.Node
	switch {
	case cst.IsSequence(types):
		nodes = cst.Items(types)
	case cst.IsScalar(types):
		nodes = []*cst.Node{types}
	}

	var diags []validation.Diagnostic
	for _, n := range nodes {
		v, ok := readScalar(doc, n)
		if !ok || v.Expr || slices.Contains(valid, v.Text) {
			continue
		}
		diags = append(diags, newError(doc, n, fmt.Sprintf("Invalid %s activity type: '%s'. Valid types are: %s",
			event, v.Text, strings.Join(valid, ", "))))
	}
	return diags
}

// validateSchedule checks every entry of a schedule sequence.
func validateSchedule(doc *cst.Document, key, schedule *cst.Node) []validation.Diagnostic {
	if !cst.IsSequence(schedule) {
		return []validation.Diagnostic{newError(doc, spanNode(schedule, key), "schedule event is missing required 'cron' field.")}
	}
	var diags []validation.Diagnostic
	for _, item := range cst.Items(schedule) {
		entry := cst.Unwrap(item)
		if !cst.IsMapping(entry) {
			continue
		}
		diags = append(diags, checkAllowedFields(doc, entry, []string{"cron"}, func(key string) string {
			return fmt.Sprintf("Invalid field '%s' for schedule event. Valid fields are: cron", key)
		})...)
		cron, found := cst.MappingValue(doc, entry, "cron")
		if !found {
			diags = append(diags, newError(doc, entry, "schedule event is missing required 'cron' field."))
			continue
		}
		diags = append(diags, validateCronValue(doc, cron)...)
	}
	return diags
}

func validateCronValue(doc *cst.Document, n *cst.Node) []validation.Diagnostic {
	v, ok := readScalar(doc, n)
	if !ok || v.Expr {
		return nil
	}
	fieldErrs, err := parser.ValidateCron(v.Text)
	if errors.Is(err, parser.ErrCronFieldCount) {
		return []validation.Diagnostic{newError(doc, v.Node, fmt.Sprintf(
			"Invalid cron expression: '%s'. Cron expression must have 5 space-separated fields (minute hour day month weekday).", v.Text))}
	}

	if len(fieldErrs) == 0 {
		return nil
	}
	// Only the first invalid field is reported.
	fe := fieldErrs[0]
	return []validation.Diagnostic{newError(doc, v.Node, fmt.Sprintf("Invalid cron %s: '%s' in '%s'. %s",
		fe.Field, fe.Value, v.Text, fe.Reason))}
}
