// This file provides validation for the 'uses' references of steps.
//
// # Action Reference Format
//
// A remote action is referenced as owner/repo@ref, optionally with a path
// inside the repository (owner/repo/path/to/action@ref). The ref is a tag,
// branch or commit SHA. Local actions (./path, ../path, /path) and Docker
// images (docker://image) take no ref and are not checked.
//
// # Validation Functions
//
//   - validateActionReferences() - Checks every step 'uses' value
//   - parseActionReference() - Splits a reference into owner, repo, path and ref
//   - isSemanticVersionTag() - Reports whether a ref is a valid semantic version
//
// Refs that look like version tags (v followed by a digit) must parse as
// semantic versions; a tag such as v1.2.3.4 or v1..2 is reported as a
// warning since it is usually a typo.

package workflow

import (
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
	"github.com/JuanMarchetto/truss/pkg/xref"
	"golang.org/x/mod/semver"
)

var actionReferenceLog = logger.New("workflow:action_reference_validation")

// actionReference is a parsed remote action reference.
type actionReference struct {
	Owner string
	Repo  string
	Path  string
	Ref   string
}

// isLocalOrDockerReference reports whether uses names a local action or a
// Docker image.
func isLocalOrDockerReference(uses string) bool {
	return strings.HasPrefix(uses, "./") || strings.HasPrefix(uses, "../") ||
		strings.HasPrefix(uses, "/") || strings.HasPrefix(uses, "docker://")
}

// parseActionReference splits a remote reference. The returned problem
// completes "action reference '<uses>' ..." when the reference is malformed.
func parseActionReference(uses string) (ref actionReference, problem string) {
	if !strings.Contains(uses, "@") {
		return ref, "is missing required '@ref'. Remote actions must specify a version, branch, or SHA (e.g., owner/repo@v1)."
	}
	if strings.Count(uses, "@") != 1 {
		return ref, "has invalid format. Expected format: owner/repo@ref"
	}
	target, version, _ := strings.Cut(uses, "@")
	ref.Ref = version
	if !strings.Contains(target, "/") {
		return ref, "is missing owner. Expected format: owner/repo@ref (e.g., actions/checkout@v3)"
	}
	parts := strings.SplitN(target, "/", 3)
	ref.Owner, ref.Repo = parts[0], parts[1]
	if len(parts) == 3 {
		ref.Path = parts[2]
	}
	switch {
	case ref.Owner == "" || strings.Contains(ref.Owner, " "):
		return ref, "has invalid owner format. Owner cannot contain spaces or be empty."
	case ref.Repo == "":
		return ref, "has invalid format. Repository name cannot be empty."
	case len(parts) == 3 && ref.Path == "":
		return ref, "has invalid format. Expected format: owner/repo@ref"
	case version == "":
		return ref, "has an empty ref after '@'. Remote actions must specify a version, branch, or SHA (e.g., owner/repo@v1)."
	}
	return ref, ""
}

// isSemanticVersionTag checks if a ref is a valid semantic version, with or
// without the leading 'v'. Shorthands such as v1 and v1.2 are valid.
func isSemanticVersionTag(ref string) bool {
	if !strings.HasPrefix(ref, "v") {
		ref = "v" + ref
	}
	return semver.IsValid(ref)
}

// looksLikeVersionTag reports refs of the form v<digit>...
func looksLikeVersionTag(ref string) bool {
	return len(ref) > 1 && ref[0] == 'v' && ref[1] >= '0' && ref[1] <= '9'
}

func validateActionReferences(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachStep(xref.Build(doc), func(_ *xref.Job, step *xref.Step) {
		usesNode, found := cst.MappingValue(doc, step.Node, "uses")
		if !found || step.Uses == "" || isLocalOrDockerReference(step.Uses) || isExpressionValue(doc, usesNode) {
			return
		}
		ref, problem := parseActionReference(step.Uses)
		if problem != "" {
			actionReferenceLog.Printf("Malformed action reference %q", step.Uses)
			diags = append(diags, newError(doc, usesNode, fmt.Sprintf("action reference '%s' %s", step.Uses, problem)))
			return
		}
		if looksLikeVersionTag(ref.Ref) && !isSemanticVersionTag(ref.Ref) {
			diags = append(diags, newWarning(doc, usesNode, fmt.Sprintf(
				"action reference '%s' uses ref '%s' that looks like a version tag but is not a valid semantic version (e.g., v1 or v1.2.3).",
				step.Uses, ref.Ref)))
		}
	})
	return diags
}
