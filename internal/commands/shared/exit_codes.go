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

import (
	"errors"
	"fmt"
	"os"

	docflowerrors "github.com/tombee/docflow/pkg/errors"
)

// Exit codes for docflow commands
const (
	ExitSuccess           = 0
	ExitExecutionFailed   = 1  // a run reached a terminal failed status
	ExitInvalidDefinition = 2  // unloadable definitions or an unresolvable workflow name
	ExitMissingInput      = 3  // missing or malformed parameters
	ExitStoreError        = 4  // run store unavailable
	ExitNonInteractive    = 70 // interactive command without a terminal (EX_SOFTWARE from sysexits.h)
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewExecutionError creates an error for workflow execution failures
func NewExecutionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitExecutionFailed,
		Message: msg,
		Cause:   cause,
	}
}

// NewDefinitionError creates an error for invalid definitions or
// workflow names that resolve to nothing usable
func NewDefinitionError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidDefinition,
		Message: msg,
		Cause:   cause,
	}
}

// NewMissingInputError creates an error for missing or malformed inputs
func NewMissingInputError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitMissingInput,
		Message: msg,
		Cause:   cause,
	}
}

// NewStoreError creates an error for run store failures
func NewStoreError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitStoreError,
		Message: msg,
		Cause:   cause,
	}
}

// NewNonInteractiveError creates an error for interactive commands
// invoked without a terminal
func NewNonInteractiveError(msg string) *ExitError {
	return &ExitError{
		Code:    ExitNonInteractive,
		Message: msg,
	}
}

// HandleExitError checks if an error is an ExitError and exits with the
// appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		// An empty message means the command already reported the
		// failure itself; only the exit code matters.
		if msg := exitErr.Error(); msg != "" {
			fmt.Fprintln(os.Stderr, "Error:", msg)
		}
		printSuggestion(err)
		os.Exit(exitErr.Code)
	}

	// Default to execution failed
	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	printSuggestion(err)
	os.Exit(ExitExecutionFailed)
}

// printSuggestion walks the error chain for a validation error carrying
// a suggestion and prints it below the error message.
func printSuggestion(err error) {
	var valErr *docflowerrors.ValidationError
	if errors.As(err, &valErr) && valErr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", valErr.Suggestion)
	}
}
