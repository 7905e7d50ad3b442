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
	"errors"
	"fmt"
)

// Wrap adds context to an error, preserving the chain for errors.Is
// and errors.As. Returns nil when err is nil.
//
// Usage:
//
//	if err := store.Save(ctx, run); err != nil {
//	    return errors.Wrap(err, "persisting run")
//	}
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
//
// Usage:
//
//	if err := loadDefinition(path); err != nil {
//	    return errors.Wrapf(err, "loading definition %s", path)
//	}
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's tree matches target.
// Convenience wrapper around the standard library so callers need a
// single errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree matching the target type and
// assigns it. Convenience wrapper around the standard library.
//
// Usage:
//
//	var notFound *NotFoundError
//	if errors.As(err, &notFound) {
//	    // handle unknown workflow or action
//	}
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Unwrap returns the next error in err's chain, or nil.
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// New creates a plain error with the given message.
func New(message string) error {
	return errors.New(message)
}
