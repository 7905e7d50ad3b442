// Package schema provides JSON Schema validation for workflow definition
// files against the embedded schema.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ValidationError represents a single schema validation error with
// field-level detail.
type ValidationError struct {
	Field       string
	Description string
	Value       interface{}
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Description, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationResult contains the results of JSON Schema validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Summary returns a one-line description of all validation errors.
func (r *ValidationResult) Summary() string {
	if r.Valid {
		return "valid"
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

var (
	compileOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

// compiled returns the embedded schema compiled exactly once.
func compiled() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		loader := gojsonschema.NewBytesLoader(GetEmbeddedSchema())
		compiledSchema, compileErr = gojsonschema.NewSchema(loader)
	})
	return compiledSchema, compileErr
}

// ValidateDefinition validates workflow definition YAML bytes against the
// embedded JSON Schema. The YAML is decoded and re-encoded as JSON before
// validation.
func ValidateDefinition(yamlData []byte) (*ValidationResult, error) {
	var doc interface{}
	if err := yaml.Unmarshal(yamlData, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	jsonData, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document as JSON: %w", err)
	}

	return ValidateJSON(jsonData)
}

// ValidateJSON validates raw JSON definition bytes against the embedded
// JSON Schema.
func ValidateJSON(jsonData []byte) (*ValidationResult, error) {
	schema, err := compiled()
	if err != nil {
		return nil, fmt.Errorf("failed to compile embedded schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	return convertResult(result), nil
}

// convertResult converts a gojsonschema result into a ValidationResult.
func convertResult(result *gojsonschema.Result) *ValidationResult {
	vr := &ValidationResult{
		Valid:  result.Valid(),
		Errors: make([]ValidationError, 0),
	}

	if !result.Valid() {
		for _, e := range result.Errors() {
			vr.Errors = append(vr.Errors, ValidationError{
				Field:       e.Field(),
				Description: e.Description(),
				Value:       e.Value(),
			})
		}
	}

	return vr
}
