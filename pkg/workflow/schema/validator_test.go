package schema

import (
	"strings"
	"testing"
)

func TestGetEmbeddedSchema(t *testing.T) {
	data := GetEmbeddedSchema()
	if len(data) == 0 {
		t.Fatal("embedded schema is empty")
	}
	if !strings.Contains(string(data), "Docflow Workflow Definition") {
		t.Error("embedded schema missing title")
	}
}

func TestValidateDefinitionValid(t *testing.T) {
	doc := `
name: invoice
description: Process an invoice
parameters:
  - name: amount
    type: float
    required: true
steps:
  - id: fetch
    type: api_call
    config:
      url: https://api.example.com/invoices
`
	result, err := ValidateDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ValidateDefinition failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected valid document, got errors: %s", result.Summary())
	}
}

func TestValidateDefinitionMissingName(t *testing.T) {
	doc := `
description: no name here
steps:
  - id: s1
    type: data_transform
`
	result, err := ValidateDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ValidateDefinition failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected validation errors for missing name")
	}
	if !strings.Contains(result.Summary(), "name") {
		t.Errorf("expected error mentioning 'name', got: %s", result.Summary())
	}
}

func TestValidateDefinitionEmptySteps(t *testing.T) {
	doc := `
name: empty
steps: []
`
	result, err := ValidateDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ValidateDefinition failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected validation errors for empty steps")
	}
}

func TestValidateDefinitionBadParameterType(t *testing.T) {
	doc := `
name: badparam
parameters:
  - name: x
    type: integer
steps:
  - id: s1
    type: data_transform
`
	result, err := ValidateDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ValidateDefinition failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected validation errors for unknown parameter type")
	}
}

func TestValidateDefinitionStepMissingType(t *testing.T) {
	doc := `
name: untyped
steps:
  - id: s1
`
	result, err := ValidateDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ValidateDefinition failed: %v", err)
	}
	if result.Valid {
		t.Fatal("expected validation errors for step without type")
	}
}

func TestValidateDefinitionUnknownStepTypeAccepted(t *testing.T) {
	// Unknown step types are a runtime concern; the schema only requires
	// a non-empty string.
	doc := `
name: custom
steps:
  - id: s1
    type: some_future_action
`
	result, err := ValidateDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("ValidateDefinition failed: %v", err)
	}
	if !result.Valid {
		t.Errorf("expected unknown step type to pass schema validation, got: %s", result.Summary())
	}
}

func TestValidateDefinitionMalformedYAML(t *testing.T) {
	if _, err := ValidateDefinition([]byte("name: [unclosed")); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
