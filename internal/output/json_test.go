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

package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestEmitJSON(t *testing.T) {
	type response struct {
		JSONResponse
		Workflows []string `json:"workflows"`
	}

	var buf bytes.Buffer
	err := EmitJSON(&buf, response{
		JSONResponse: JSONResponse{Command: "workflows", Success: true},
		Workflows:    []string{"document_review"},
	})
	if err != nil {
		t.Fatalf("EmitJSON failed: %v", err)
	}

	var decoded response
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Command != "workflows" || !decoded.Success {
		t.Errorf("unexpected envelope: %+v", decoded.JSONResponse)
	}
	if len(decoded.Workflows) != 1 || decoded.Workflows[0] != "document_review" {
		t.Errorf("unexpected payload: %v", decoded.Workflows)
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestEmitJSONError(t *testing.T) {
	var buf bytes.Buffer
	err := EmitJSONError(&buf, "validate", []JSONError{
		{Code: "E002", Message: "steps: Array must have at least 1 items", File: "broken.yaml"},
	})
	if err != nil {
		t.Fatalf("EmitJSONError failed: %v", err)
	}

	var decoded struct {
		JSONResponse
		Errors []JSONError `json:"errors"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Success {
		t.Error("error responses must have success=false")
	}
	if decoded.Command != "validate" {
		t.Errorf("expected command 'validate', got %q", decoded.Command)
	}
	if len(decoded.Errors) != 1 || decoded.Errors[0].Code != "E002" {
		t.Errorf("unexpected errors: %+v", decoded.Errors)
	}
	if decoded.Errors[0].File != "broken.yaml" {
		t.Errorf("expected file 'broken.yaml', got %q", decoded.Errors[0].File)
	}
}
