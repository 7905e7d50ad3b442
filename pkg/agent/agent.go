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

// Package agent defines the boundary between the workflow engine and
// external AI agents. A Provider wraps one concrete agent integration
// (a local CLI, a remote API) behind a small interface so callers never
// depend on how the agent is reached.
//
// Providers are expected to degrade gracefully: callers check Available
// before issuing requests and fall back to simulated results when no
// agent is reachable, so a missing agent binary never fails a workflow
// run on its own.
package agent

import "context"

// AnalyzeRequest describes a single text analysis request.
type AnalyzeRequest struct {
	// Text is the document text to analyze. Providers may truncate
	// very large inputs before sending them to the agent.
	Text string

	// Prompt is the instruction describing what the agent should do
	// with the text.
	Prompt string

	// Schema optionally describes the expected shape of the response.
	// When set, providers parse the agent output as JSON; when nil,
	// the raw response text is returned unchanged.
	Schema map[string]interface{}
}

// TaskRequest describes a task delegated to a named agent.
type TaskRequest struct {
	// Agent is the logical agent name the task is addressed to
	// (e.g. "legal-reviewer").
	Agent string

	// Action is the operation the agent should perform.
	Action string

	// Params carries action-specific arguments.
	Params map[string]interface{}
}

// Provider is the interface implemented by agent integrations.
type Provider interface {
	// Name returns the provider identifier used in logs and results.
	Name() string

	// Available reports whether the provider can currently serve
	// requests. Implementations should cache the probe result since
	// the check runs on every step that may delegate to an agent.
	Available(ctx context.Context) bool

	// AnalyzeText sends text plus an instruction prompt to the agent
	// and returns its response. With a non-nil request schema the
	// result is the parsed JSON value, otherwise the raw text.
	AnalyzeText(ctx context.Context, req AnalyzeRequest) (interface{}, error)

	// ExecuteTask delegates a task to a named agent and returns the
	// structured result.
	ExecuteTask(ctx context.Context, req TaskRequest) (map[string]interface{}, error)
}
