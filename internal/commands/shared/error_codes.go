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

package shared

// Error codes for structured JSON output
const (
	// Definition errors (E001-E099)
	ErrorCodeInvalidYAML      = "E001" // YAML syntax error
	ErrorCodeSchemaViolation  = "E002" // JSON Schema constraint violation
	ErrorCodeInvalidStructure = "E003" // structural rule violation (duplicate step ids, ...)

	// Input errors (E101-E199)
	ErrorCodeFileNotFound = "E101" // definition file or directory missing
	ErrorCodeInvalidInput = "E102" // malformed key=value input
	ErrorCodeMissingInput = "E103" // required parameter not provided

	// Resolution errors (E201-E299)
	ErrorCodeNoMatch = "E201" // no workflow matched above the confidence threshold

	// Execution errors (E301-E399)
	ErrorCodeRunFailed        = "E301" // run reached a terminal failed status
	ErrorCodeStoreUnavailable = "E302" // run store could not be opened
)

// MapExitErrorToCode maps ExitError exit codes to JSON error codes.
func MapExitErrorToCode(exitErr *ExitError) string {
	if exitErr == nil {
		return ""
	}

	switch exitErr.Code {
	case ExitInvalidDefinition:
		return ErrorCodeSchemaViolation
	case ExitMissingInput:
		return ErrorCodeMissingInput
	case ExitStoreError:
		return ErrorCodeStoreUnavailable
	default:
		return ErrorCodeRunFailed
	}
}
