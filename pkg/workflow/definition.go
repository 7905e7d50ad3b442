// Package workflow provides the document workflow primitives: YAML
// definitions, the catalog that loads them, run records, run stores,
// config template resolution and the execution engine.
//
// Workflow definitions follow a simple YAML format: a name, a description,
// an ordered list of typed parameters and an ordered list of steps. Steps
// are plain data; the step type string selects the handler that executes
// the step's config.
package workflow

import (
	"fmt"

	"github.com/tombee/docflow/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ParameterTypes are the allowed values for ParameterSpec.Type.
var ParameterTypes = map[string]bool{
	"string":  true,
	"float":   true,
	"array":   true,
	"object":  true,
	"boolean": true,
}

// Definition represents a YAML-based workflow definition.
// It is immutable after load; the engine and catalog never modify it.
type Definition struct {
	// Name is the workflow identifier, unique within a catalog
	Name string `yaml:"name" json:"name"`

	// Description provides human-readable context about the workflow.
	// The resolver's oracle prompt includes it verbatim.
	Description string `yaml:"description" json:"description"`

	// Parameters defines the expected input parameters for the workflow
	Parameters []ParameterSpec `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	// Steps are the executable units of the workflow, run in declaration order
	Steps []StepDefinition `yaml:"steps" json:"steps"`
}

// ParameterSpec describes a workflow input parameter.
type ParameterSpec struct {
	// Name is the parameter identifier
	Name string `yaml:"name" json:"name"`

	// Type specifies the data type (string, float, array, object, boolean)
	Type string `yaml:"type" json:"type"`

	// Required marks the parameter as mandatory at execution time
	Required bool `yaml:"required,omitempty" json:"required,omitempty"`

	// Description explains what this parameter is for
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// StepDefinition represents a single step in a workflow.
//
// The Type field is the only polymorphism axis: it selects the registered
// action handler, and Config carries that handler's input as arbitrary
// nested data. String leaves of Config may contain template markers
// ({{.param}}, {{join .parties ", "}}) resolved at execution time.
// Unknown types are not rejected at load time; they fail the run when
// the step is reached.
type StepDefinition struct {
	// ID is the unique step identifier within this workflow
	ID string `yaml:"id" json:"id"`

	// Type selects the action handler (api_call, data_transform, ...)
	Type string `yaml:"type" json:"type"`

	// Description is a human-readable step summary (optional)
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Config is the handler input, resolved through the template
	// resolver before dispatch
	Config map[string]interface{} `yaml:"config,omitempty" json:"config,omitempty"`
}

// ParseDefinition parses a workflow definition from YAML bytes.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", err)
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow definition: %w", err)
	}

	return &def, nil
}

// Validate checks the definition for structural errors.
func (d *Definition) Validate() error {
	if d.Name == "" {
		return &errors.ValidationError{
			Field:      "name",
			Message:    "workflow name is required",
			Suggestion: "add a descriptive name for the workflow",
		}
	}

	if len(d.Steps) == 0 {
		return &errors.ValidationError{
			Field:      "steps",
			Message:    "workflow must have at least one step",
			Suggestion: "add at least one step to the workflow definition",
		}
	}

	// Validate step IDs are unique
	stepIDs := make(map[string]bool)
	for _, step := range d.Steps {
		if step.ID == "" {
			return &errors.ValidationError{
				Field:      "id",
				Message:    "step ID is required",
				Suggestion: "add an 'id' field to each step",
			}
		}
		if stepIDs[step.ID] {
			return &errors.ValidationError{
				Field:      "id",
				Message:    fmt.Sprintf("duplicate step ID: %s", step.ID),
				Suggestion: "ensure each step has a unique ID",
			}
		}
		stepIDs[step.ID] = true

		if step.Type == "" {
			return &errors.ValidationError{
				Field:      "type",
				Message:    fmt.Sprintf("step %s has no type", step.ID),
				Suggestion: "add a 'type' field naming a registered action",
			}
		}
	}

	// Validate parameters
	for _, param := range d.Parameters {
		if err := param.Validate(); err != nil {
			return fmt.Errorf("invalid parameter %s: %w", param.Name, err)
		}
	}

	return nil
}

// Validate checks the parameter spec.
func (p *ParameterSpec) Validate() error {
	if p.Name == "" {
		return &errors.ValidationError{
			Field:      "name",
			Message:    "parameter name is required",
			Suggestion: "add a 'name' field to each parameter",
		}
	}
	if p.Type != "" && !ParameterTypes[p.Type] {
		return &errors.ValidationError{
			Field:      "type",
			Message:    fmt.Sprintf("unknown parameter type: %s", p.Type),
			Suggestion: "use one of: string, float, array, object, boolean",
		}
	}
	return nil
}
