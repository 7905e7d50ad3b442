// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package output provides the JSON envelope emitted by commands in
// --json mode.
package output

import (
	"encoding/json"
	"io"
)

// JSONResponse is the base envelope for all JSON output
type JSONResponse struct {
	Command string `json:"command"`
	Success bool   `json:"success"`
}

// JSONError represents a structured error with code, message, source
// location and suggestion
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	File       string `json:"file,omitempty"`
	Line       int    `json:"line,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// EmitJSON marshals a response and writes it indented to w. This keeps
// formatting consistent across all commands.
func EmitJSON(w io.Writer, response interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// EmitJSONError creates and emits a JSON error response
func EmitJSONError(w io.Writer, command string, errors []JSONError) error {
	type errorResponse struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}

	resp := errorResponse{
		JSONResponse: JSONResponse{
			Command: command,
			Success: false,
		},
		Errors: errors,
	}

	return EmitJSON(w, resp)
}
