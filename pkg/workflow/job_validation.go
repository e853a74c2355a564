// This file provides validation for job-level fields.
//
// # Validation Functions
//
//   - validateJobNeeds() - Needs graph references and cycles (see xref.Tables.CheckNeeds)
//   - validateRunsOn() - Every job that runs steps needs a non-empty 'runs-on'
//   - validateRunnerLabels() - Flags GitHub-hosted looking labels that do not exist
//   - validateJobTimeout() - 'timeout-minutes' must be a positive number
//   - validateJobContinueOnError() - 'continue-on-error' must be a boolean
//
// Jobs that call a reusable workflow through 'uses' run on the callee's
// runners, so they are exempt from the runs-on checks.

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

var jobValidationLog = logger.New("workflow:job_validation")

// githubHostedRunners lists the labels of the GitHub-hosted runner images.
var githubHostedRunners = []string{
	"ubuntu-latest", "ubuntu-24.04", "ubuntu-22.04", "ubuntu-20.04",
	"ubuntu-24.04-arm", "ubuntu-22.04-arm", "ubuntu-slim",
	"windows-latest", "windows-2025", "windows-2022", "windows-2019", "windows-11-arm",
	"macos-latest", "macos-26", "macos-15", "macos-14", "macos-13",
	"macos-latest-large", "macos-15-large", "macos-14-large", "macos-13-large",
	"macos-latest-xlarge", "macos-15-xlarge", "macos-14-xlarge", "macos-13-xlarge",
	"macos-15-intel",
}

// githubHostedPrefixes identify labels that are meant to select a
// GitHub-hosted image. Other labels are assumed to be self-hosted or larger
// runner labels and are not checked.
var githubHostedPrefixes = []string{"ubuntu-", "windows-", "macos-"}

func validateJobNeeds(doc *cst.Document) []validation.Diagnostic {
	return xref.Build(doc).CheckNeeds()
}

func validateRunsOn(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		if cst.LookupPair(doc, job.Node, "uses") != nil {
			return
		}
		runsOn, found := cst.MappingValue(doc, job.Node, "runs-on")
		if !found {
			diags = append(diags, newError(doc, job.Key,
				fmt.Sprintf("Job '%s' is missing required 'runs-on' field.", job.Name)))
			return
		}
		if isEmptyValue(doc, runsOn) || (cst.IsSequence(runsOn) && len(cst.Items(runsOn)) == 0) {
			diags = append(diags, newError(doc, spanNode(runsOn, fieldKey(doc, job.Node, "runs-on")), fmt.Sprintf(
				"Job '%s' has empty 'runs-on' field. 'runs-on' is required and cannot be empty.", job.Name)))
		}
	})
	return diags
}

func validateRunnerLabels(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		runsOn, _ := cst.MappingValue(doc, job.Node, "runs-on")
		runsOn = cst.Unwrap(runsOn)

		var labels []*cst.Node
		switch {
		case cst.IsScalar(runsOn):
			labels = []*cst.Node{runsOn}
		case cst.IsSequence(runsOn):
			labels = cst.Items(runsOn)
			for _, item := range labels {
				if cst.CleanText(doc, item) == "self-hosted" {
					return
				}
			}
		default:
			// Mapping form (group/labels) selects runner groups.
			return
		}

		for _, label := range labels {
			v, ok := readScalar(doc, label)
			if !ok || v.Expr {
				continue
			}
			if v.Text == "" {
				if cst.IsSequence(runsOn) {
					diags = append(diags, newError(doc, label, fmt.Sprintf("Job '%s' has empty runs-on label.", job.Name)))
				}
				continue
			}
			if !looksGitHubHosted(v.Text) || slices.Contains(githubHostedRunners, v.Text) {
				continue
			}
			jobValidationLog.Printf("Job %s uses unknown hosted label %s", job.Name, v.Text)
			diags = append(diags, newWarning(doc, label, fmt.Sprintf(
				"Job '%s' uses unknown runner label: '%s'. This may be a valid self-hosted runner or custom label.", job.Name, v.Text)))
		}
	})
	return diags
}

func looksGitHubHosted(label string) bool {
	for _, prefix := range githubHostedPrefixes {
		if strings.HasPrefix(label, prefix) {
			return true
		}
	}
	return false
}

func validateJobTimeout(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		timeout, found := cst.MappingValue(doc, job.Node, "timeout-minutes")
		if !found {
			return
		}
		if value, reason, bad := positiveNumberProblem(doc, timeout, false); bad {
			diags = append(diags, newError(doc, timeout, fmt.Sprintf(
				"Job '%s' has invalid timeout-minutes: '%s'. Timeout must be %s.", job.Name, value, reason)))
		}
	})
	return diags
}

func validateJobContinueOnError(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		value, found := cst.MappingValue(doc, job.Node, "continue-on-error")
		if !found {
			return
		}
		if text, reason, bad := booleanProblem(doc, value); bad {
			diags = append(diags, newError(doc, value, fmt.Sprintf(
				"Job '%s' has invalid continue-on-error: '%s'. continue-on-error must be %s.", job.Name, text, reason)))
		}
	})
	return diags
}
