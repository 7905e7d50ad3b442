// Package schemas embeds the JSON Schemas shipped with docflow.
package schemas

import (
	_ "embed"
)

// The workflow definition schema lives at the module root because
// go:embed directives cannot reference parent directories; the
// pkg/workflow/schema package re-exports it for validation.
//
//go:embed workflow.schema.json
var workflowSchema []byte

// GetWorkflowSchema returns the embedded workflow definition JSON
// Schema as raw bytes.
func GetWorkflowSchema() []byte {
	return workflowSchema
}

// GetWorkflowSchemaString returns the embedded workflow definition
// JSON Schema as a string.
func GetWorkflowSchemaString() string {
	return string(workflowSchema)
}
