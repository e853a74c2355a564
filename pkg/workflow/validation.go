// Package workflow holds the built-in validation rules for GitHub Actions
// workflow files.
//
// # Validation Architecture
//
// Every rule is a plain function over a parsed document, registered under a
// stable rule id in catalog.go. The rules are organized into focused,
// domain-specific files:
//
//   - validation.go: This file - package documentation only
//   - catalog.go: Rule registration (DefaultRules, RuleNames)
//   - validation_helpers.go: Typed field checks and job/step iteration
//   - document_validation.go: Empty documents, syntax errors, required 'on'
//   - trigger_validation.go: Trigger events, event filters, schedules
//   - name_validation.go: Workflow, job and step names
//   - job_validation.go: needs, runs-on, runner labels, timeout, continue-on-error
//   - strategy_validation.go: strategy and matrix
//   - step_validation.go: uses/run, step ids, shells, working directories, defaults
//   - env_validation.go: Environment variable names
//   - concurrency_validation.go: Concurrency groups
//   - permissions_validation.go: GITHUB_TOKEN permissions
//   - environment_validation.go: Deployment environments
//   - container_validation.go: Job and service containers
//   - expression_validation.go: ${{ }} expressions and 'if' conditions
//   - script_injection_validation.go: Untrusted input in run scripts
//   - secrets_validation.go: Misspelled secrets references
//   - deprecated_commands_validation.go: Disabled workflow commands
//   - step_output_validation.go: Step and job output wiring
//   - workflow_call_validation.go: Reusable workflow inputs, secrets, outputs
//   - reusable_workflow_validation.go: Jobs that call reusable workflows
//   - artifact_validation.go: upload-artifact and download-artifact inputs
//   - action_reference_validation.go: Step 'uses' references
//   - actionlint.go: Optional second opinion from actionlint
//
// # Rule Contract
//
// A rule reads the document and returns diagnostics; it never mutates the
// tree and never panics on malformed input. Rules that need jobs, steps or
// the workflow_call contract build their own xref tables, so rules can run
// in parallel. Diagnostics carry no rule id; the rule set stamps it.
//
// Only non_empty and syntax run on documents that do not look like a
// workflow. All other rules assume a workflow and are skipped otherwise.
//
// # When to Add New Validation
//
// Add validation to an existing domain file when it checks a field that file
// already covers. Create a new file, and register a new rule id, when it is
// a distinct concern that users may want to disable on its own.

package workflow
