// This file provides validation for job containers and service containers.
//
// # Validation Functions
//
//   - validateJobContainers() - Visits 'container' and every entry of 'services'
//   - validateContainer() - Checks the image and ports of one container
//
// A container may be given as a bare image string or as a mapping with an
// 'image' field. Ports are either a container port ("6379") or a
// host:container mapping ("8080:80"), optionally with a /tcp or /udp suffix.

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

var containerValidationLog = logger.New("workflow:container_validation")

func validateJobContainers(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	forEachJob(xref.Build(doc), func(job *xref.Job) {
		if container, found := cst.MappingValue(doc, job.Node, "container"); found {
			diags = append(diags, validateContainer(doc, job.Name, container, fieldKey(doc, job.Node, "container"))...)
		}
		services, _ := cst.MappingValue(doc, job.Node, "services")
		for _, pair := range cst.Pairs(services) {
			diags = append(diags, validateContainer(doc, job.Name, cst.PairValue(pair), cst.PairKey(pair))...)
		}
	})
	return diags
}

// validateContainer checks one container definition. key is the node to
// report on when the definition itself is missing.
func validateContainer(doc *cst.Document, job string, container, key *cst.Node) []validation.Diagnostic {
	container = cst.Unwrap(container)
	if container == nil || cst.IsScalar(container) {
		return checkContainerImage(doc, job, container, key)
	}
	if !cst.IsMapping(container) {
		return nil
	}

	var diags []validation.Diagnostic
	image, found := cst.MappingValue(doc, container, "image")
	if !found {
		diags = append(diags, newError(doc, key, fmt.Sprintf(
			"Job '%s' container is missing required 'image' field. Container must specify an image.", job)))
	} else {
		diags = append(diags, checkContainerImage(doc, job, image, fieldKey(doc, container, "image"))...)
	}

	ports, _ := cst.MappingValue(doc, container, "ports")
	for _, item := range cst.Items(ports) {
		v, ok := readScalar(doc, item)
		if !ok || v.Expr || v.Text == "" || isPortMapping(v.Text) {
			continue
		}
		containerValidationLog.Printf("Job %q has invalid port %q", job, v.Text)
		diags = append(diags, newError(doc, item, fmt.Sprintf(
			"Job '%s' container has invalid port format: '%s'. Ports should be in format 'host:container'.", job, v.Text)))
	}
	return diags
}

func checkContainerImage(doc *cst.Document, job string, image, key *cst.Node) []validation.Diagnostic {
	if isEmptyValue(doc, image) {
		return []validation.Diagnostic{newError(doc, spanNode(image, key), fmt.Sprintf(
			"Job '%s' container has empty image field. Container image is required.", job))}
	}
	v, ok := readScalar(doc, image)
	if !ok || v.Expr || strings.ContainsAny(v.Text, "/:@") {
		return nil
	}
	return []validation.Diagnostic{newWarning(doc, image, fmt.Sprintf(
		"Job '%s' container has potentially invalid image reference: '%s'. Image should be in format 'repository:tag' or 'registry/repository:tag'.",
		job, v.Text))}
}

// isPortMapping reports whether s is "port" or "host:container", each a
// number in 1-65535, with an optional /tcp or /udp suffix.
func isPortMapping(s string) bool {
	s = strings.TrimSuffix(strings.TrimSuffix(s, "/tcp"), "/udp")
	for part := range strings.SplitSeq(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 65535 {
			return false
		}
	}
	return strings.Count(s, ":") <= 1
}
