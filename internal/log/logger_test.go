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

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got %q", cfg.Level)
	}
	if cfg.Format != FormatJSON {
		t.Errorf("expected default format 'json', got %q", cfg.Format)
	}
	if cfg.Output != os.Stderr {
		t.Errorf("expected default output to be os.Stderr")
	}
	if cfg.AddSource {
		t.Error("expected AddSource to default to false")
	}
}

func TestFromEnv_Debug(t *testing.T) {
	t.Setenv("DOCFLOW_DEBUG", "1")

	cfg := FromEnv()
	if cfg.Level != "debug" {
		t.Errorf("expected level 'debug', got %q", cfg.Level)
	}
	if !cfg.AddSource {
		t.Error("expected AddSource to be enabled by DOCFLOW_DEBUG")
	}
}

func TestFromEnv_LevelPrecedence(t *testing.T) {
	tests := []struct {
		name         string
		docflowLevel string
		logLevel     string
		want         string
	}{
		{
			name:         "DOCFLOW_LOG_LEVEL takes precedence",
			docflowLevel: "warn",
			logLevel:     "debug",
			want:         "warn",
		},
		{
			name:     "LOG_LEVEL used when DOCFLOW_LOG_LEVEL not set",
			logLevel: "error",
			want:     "error",
		},
		{
			name:         "DOCFLOW_LOG_LEVEL alone",
			docflowLevel: "trace",
			want:         "trace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DOCFLOW_DEBUG", "")
			t.Setenv("DOCFLOW_LOG_LEVEL", tt.docflowLevel)
			t.Setenv("LOG_LEVEL", tt.logLevel)

			cfg := FromEnv()
			if cfg.Level != tt.want {
				t.Errorf("expected level %q, got %q", tt.want, cfg.Level)
			}
		})
	}
}

func TestFromEnv_Format(t *testing.T) {
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg := FromEnv()
	if cfg.Format != FormatText {
		t.Errorf("expected text format, got %q", cfg.Format)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("hello", "workflow", "document_review")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "hello" {
		t.Errorf("expected msg 'hello', got %v", entry["msg"])
	}
	if entry["workflow"] != "document_review" {
		t.Errorf("expected workflow field, got %v", entry["workflow"])
	}
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatText, Output: &buf})

	logger.Info("hello")

	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatJSON, Output: &buf})

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info entry should have been filtered, got %q", buf.String())
	}

	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn entry should have been emitted")
	}
}

func TestWithRunContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithRunContext(logger, "a1b2c3d4", "document_review", "doc-42").Info("step done")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry[RunIDKey] != "a1b2c3d4" {
		t.Errorf("missing run_id, got %v", entry[RunIDKey])
	}
	if entry[WorkflowKey] != "document_review" {
		t.Errorf("missing workflow, got %v", entry[WorkflowKey])
	}
	if entry[DocumentIDKey] != "doc-42" {
		t.Errorf("missing document_id, got %v", entry[DocumentIDKey])
	}
}

func TestWithStepContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	WithStepContext(logger, "a1b2c3d4", "notify_legal").Info("dispatch")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry[StepIDKey] != "notify_legal" {
		t.Errorf("missing step_id, got %v", entry[StepIDKey])
	}
}

func TestTrace_Gated(t *testing.T) {
	var buf bytes.Buffer

	logger := New(&Config{Level: "debug", Format: FormatJSON, Output: &buf})
	Trace(logger, "verbose detail")
	if buf.Len() != 0 {
		t.Error("trace entry should be filtered at debug level")
	}

	logger = New(&Config{Level: "trace", Format: FormatJSON, Output: &buf})
	Trace(logger, "verbose detail")
	if buf.Len() == 0 {
		t.Error("trace entry should be emitted at trace level")
	}
}

func TestErrorAttr(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})

	logger.Info("failed", Error(errors.New("boom")))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["error"] != "boom" {
		t.Errorf("expected error field 'boom', got %v", entry["error"])
	}
}

func TestDurationAttr(t *testing.T) {
	attr := Duration("step", 1500)
	if attr.Key != "step_ms" {
		t.Errorf("expected key 'step_ms', got %q", attr.Key)
	}
}
