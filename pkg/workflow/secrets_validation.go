package workflow

import (
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/cst"
	"github.com/JuanMarchetto/truss/pkg/expression"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

// validateSecretReferences reports misspelled secrets context references
// inside expressions: the singular "secret.NAME" and the dotless
// "secretsNAME".
func validateSecretReferences(doc *cst.Document) []validation.Diagnostic {
	var diags []validation.Diagnostic
	for _, region := range expression.FindRegions(doc.Source) {
		if !region.Closed {
			continue
		}
		for _, id := range expression.RootIdentifiers(region.Inner(doc.Source)) {
			var message string
			end := id.End
			switch {
			case id.Name == "secret" && id.Member != "":
				message = fmt.Sprintf("Invalid secret reference: 'secret.%s' should be 'secrets.%s' (use plural 'secrets')",
					id.Member, id.Member)
			case len(id.Name) > len("secrets") && strings.HasPrefix(id.Name, "secrets"):
				rest := strings.TrimPrefix(id.Name, "secrets")
				message = fmt.Sprintf("Invalid secret reference: 'secrets%s' should be 'secrets.%s' (missing dot)",
					rest, strings.TrimLeft(rest, "_"))
				end = id.Pos + len(id.Name)
			default:
				continue
			}
			start := region.InnerStart + id.Pos
			diags = append(diags, newDiagnostic(validation.Error,
				validation.NewSpan(start, region.InnerStart+end, doc.Len()), message))
		}
	}
	return diags
}
