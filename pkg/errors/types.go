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

package errors

import (
	"fmt"
	"time"
)

// ValidationError represents user input validation failures.
// Use this for invalid parameters, malformed definitions, or constraint violations.
type ValidationError struct {
	// Field identifies which input field failed validation
	Field string

	// Message is the human-readable error description
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NotFoundError represents a resource not found error.
// Use this when a requested resource does not exist, e.g. an unregistered
// workflow name, an unknown action type, or a missing run id.
type NotFoundError struct {
	// Resource is the type of resource (e.g., "workflow", "action", "run")
	Resource string

	// ID is the identifier that was not found
	ID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ProviderError represents external agent provider failures.
// Use this for errors originating from the delegate agent process.
type ProviderError struct {
	// Provider is the name of the agent provider (e.g., "claude-cli")
	Provider string

	// Operation is the provider call that failed (e.g., "analyze", "execute_task")
	Operation string

	// Message is the human-readable error message
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("provider %s error", e.Provider)
	if e.Operation != "" {
		msg = fmt.Sprintf("%s during %s", msg, e.Operation)
	}
	return fmt.Sprintf("%s: %s", msg, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ConfigError represents configuration problems.
// Use this for configuration file errors, missing settings, or invalid config values.
type ConfigError struct {
	// Key is the configuration key that has the problem (e.g., "store.backend")
	Key string

	// Reason explains what's wrong with the configuration
	Reason string

	// Cause is the underlying error (e.g., file read error, parse error)
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config error at %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("config error: %s", e.Reason)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents operation timeouts.
// Use this when an operation exceeds its configured deadline.
type TimeoutError struct {
	// Operation describes what timed out (e.g., "agent request", "workflow step")
	Operation string

	// Duration is how long the operation ran before timing out
	Duration time.Duration

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s operation timed out after %v", e.Operation, e.Duration)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// PersistenceError represents a failure to flush run state to the store.
// The engine logs and retries these; they never abort a run on their own.
type PersistenceError struct {
	// RunID identifies the run whose record could not be written
	RunID string

	// Cause is the underlying storage error
	Cause error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist run %s: %v", e.RunID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
