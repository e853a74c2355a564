// This file provides document-level validation that does not depend on the
// workflow structure.
//
// # Validation Functions
//
//   - validateNonEmpty() - Warns about documents with no content
//   - validateSyntax() - Reports parse errors recorded in the syntax tree
//   - validateWorkflowSchema() - Requires the top-level 'on' field
//
// non_empty and syntax run on every document, workflow or not, so that a
// broken file that no longer looks like a workflow is still reported.

package workflow

import (
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/logger"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

var documentValidationLog = logger.New("workflow:document_validation")

// maxSyntaxSnippet is the number of characters of offending text quoted in a
// syntax error.
const maxSyntaxSnippet = 50

func validateNonEmpty(doc *cst.Document) []validation.Diagnostic {
	for line := range strings.Lines(doc.Source) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || line == "---" || line == "..." {
			continue
		}
		return nil
	}
	return []validation.Diagnostic{newDiagnostic(validation.Warning, validation.Span{}, "Document is empty")}
}

// validateSyntax reports the outermost ERROR and missing nodes of the tree.
// When the tree is flagged but no such node can be located, one generic
// diagnostic covers the head of the document.
func validateSyntax(doc *cst.Document) []validation.Diagnostic {
	if !doc.HasError() {
		return nil
	}

	var diags []validation.Diagnostic
	cst.Walk(doc.Root, func(n *cst.Node) bool {
		switch {
		case n.Missing:
			diags = append(diags, newError(doc, n, fmt.Sprintf("Syntax error: missing '%s'", n.Kind)))
			return false
		case n.IsError():
			diags = append(diags, newError(doc, n, "Syntax error: "+syntaxSnippet(doc.Text(n))))
			return false
		}
		return n.HasError
	})

	if len(diags) == 0 {
		diags = append(diags, newDiagnostic(validation.Error, validation.HeadSpan(doc), "YAML syntax error detected"))
	}
	documentValidationLog.Printf("Found %d syntax errors", len(diags))
	return diags
}

func syntaxSnippet(text string) string {
	text = strings.TrimSpace(text)
	if runes := []rune(text); len(runes) > maxSyntaxSnippet {
		return string(runes[:maxSyntaxSnippet])
	}
	return text
}

func validateWorkflowSchema(doc *cst.Document) []validation.Diagnostic {
	if _, found := cst.TopLevel(doc, "on"); found {
		return nil
	}
	return []validation.Diagnostic{newDiagnostic(validation.Error, validation.HeadSpan(doc),
		"GitHub Actions workflow must have an 'on' field")}
}
