package config

import (
	"cmp"
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/JuanMarchetto/truss/pkg/logger"
)

var schemaLog = logger.New("config:schema")

//go:embed schemas/config_schema.json
var configSchemaJSON string

const configSchemaURL = "https://github.com/JuanMarchetto/truss/config.json"

// compiledSchema compiles the embedded schema once per process.
var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(configSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(configSchemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add config schema resource: %w", err)
	}
	schema, err := compiler.Compile(configSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}
	return schema, nil
})

// validateSchema checks a decoded configuration document against the
// embedded schema. Every violation is added to collector as a
// *ValidationError.
func validateSchema(instance any, collector *ErrorCollector) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	err = schema.Validate(instance)
	if err == nil {
		return nil
	}

	var valErr *jsonschema.ValidationError
	if !errors.As(err, &valErr) {
		return fmt.Errorf("config schema validation failed: %w", err)
	}
	var problems []*ValidationError
	for _, leaf := range schemaLeaves(valErr) {
		problems = append(problems, schemaProblems(leaf)...)
	}
	schemaLog.Printf("Schema validation found %d problems", len(problems))
	for _, problem := range sortedProblems(problems) {
		if returnErr := collector.Add(problem); returnErr != nil {
			return returnErr
		}
	}
	return nil
}

// schemaLeaves returns the innermost causes of a validation error, which
// carry the specific keyword that failed.
func schemaLeaves(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var leaves []*jsonschema.ValidationError
	for _, cause := range e.Causes {
		leaves = append(leaves, schemaLeaves(cause)...)
	}
	return leaves
}

func schemaProblems(e *jsonschema.ValidationError) []*ValidationError {
	field := strings.Join(e.InstanceLocation, ".")
	switch k := e.ErrorKind.(type) {
	case *kind.AdditionalProperties:
		problems := make([]*ValidationError, 0, len(k.Properties))
		for _, prop := range k.Properties {
			problems = append(problems, &ValidationError{
				Field:      joinField(field, prop),
				Reason:     "unknown field",
				Suggestion: suggestFields(e.InstanceLocation),
			})
		}
		return problems
	case *kind.Type:
		want := slices.Sorted(slices.Values(k.Want))
		return []*ValidationError{{
			Field:  field,
			Reason: fmt.Sprintf("expected %s, got %s", strings.Join(want, " or "), k.Got),
		}}
	case *kind.MinLength:
		return []*ValidationError{{Field: field, Reason: "value cannot be empty"}}
	}

	reason := "invalid value"
	if e.ErrorKind != nil {
		if path := e.ErrorKind.KeywordPath(); len(path) > 0 {
			reason = fmt.Sprintf("invalid value (%s)", path[len(path)-1])
		}
	}
	return []*ValidationError{{Field: field, Reason: reason}}
}

func joinField(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}

// suggestFields names the fields accepted at the location of an unknown
// field.
func suggestFields(location []string) string {
	switch {
	case len(location) == 0:
		return "valid fields are: rules, ignore"
	case len(location) == 2 && location[0] == "rules":
		return "valid fields are: enabled, severity"
	}
	return ""
}

// sortedProblems orders problems by field, then message.
func sortedProblems(problems []*ValidationError) []*ValidationError {
	slices.SortStableFunc(problems, func(a, b *ValidationError) int {
		return cmp.Or(strings.Compare(a.Field, b.Field), strings.Compare(a.Error(), b.Error()))
	})
	return problems
}
