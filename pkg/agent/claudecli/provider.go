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

// Package claudecli implements the agent.Provider interface on top of
// the Claude CLI. Prompts are piped to the binary on stdin and the
// response is read from stdout, so the provider works with any claude
// installation that supports non-interactive --print mode.
package claudecli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/agent"
	"github.com/tombee/docflow/pkg/errors"
)

// ProviderName identifies this provider in logs and step results.
const ProviderName = "claude-cli"

const (
	// DefaultCommand is the binary invoked when CLAUDE_CLI_PATH is unset.
	DefaultCommand = "claude"

	// DefaultTimeout bounds a single CLI invocation when CLAUDE_TIMEOUT
	// is unset.
	DefaultTimeout = 30 * time.Second

	// maxTextBytes caps the document text embedded in an analysis
	// prompt. Larger documents are truncated before being sent.
	maxTextBytes = 3000
)

// Provider shells out to the Claude CLI for analysis and task requests.
// The zero value is not usable; construct with New.
type Provider struct {
	command string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger

	detectOnce sync.Once
	cliPath    string
	available  bool
}

// Option configures a Provider.
type Option func(*Provider)

// WithCommand overrides the CLI command or path to invoke.
func WithCommand(command string) Option {
	return func(p *Provider) {
		if command != "" {
			p.command = command
		}
	}
}

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(p *Provider) {
		if timeout > 0 {
			p.timeout = timeout
		}
	}
}

// WithRateLimit caps how many CLI invocations may start per minute.
// Zero or negative disables rate limiting.
func WithRateLimit(perMinute int) Option {
	return func(p *Provider) {
		if perMinute <= 0 {
			p.limiter = nil
			return
		}
		p.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithLogger sets the logger used by the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Claude CLI provider. The environment supplies defaults
// (CLAUDE_CLI_PATH for the binary, CLAUDE_TIMEOUT in seconds) and
// options override them.
func New(opts ...Option) *Provider {
	p := &Provider{
		command: DefaultCommand,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}

	if path := os.Getenv("CLAUDE_CLI_PATH"); path != "" {
		p.command = path
	}
	if raw := os.Getenv("CLAUDE_TIMEOUT"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			p.timeout = time.Duration(secs) * time.Second
		}
	}

	for _, opt := range opts {
		opt(p)
	}

	p.logger = log.WithProvider(p.logger, ProviderName)
	return p
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

// Available reports whether the CLI binary can be found. The lookup
// runs once and the result is cached for the lifetime of the provider.
func (p *Provider) Available(ctx context.Context) bool {
	p.detectOnce.Do(func() {
		path, err := exec.LookPath(p.command)
		if err != nil {
			p.logger.Debug("agent CLI not found, delegation will be simulated",
				slog.String("command", p.command))
			return
		}
		p.cliPath = path
		p.available = true
		p.logger.Debug("agent CLI detected", slog.String("path", path))
	})
	return p.available
}

// AnalyzeText sends document text plus an instruction prompt to the
// CLI. With a non-nil schema the response is parsed as JSON, falling
// back to a recovery object when the agent did not return valid JSON.
// With a nil schema the trimmed response text is returned as-is.
func (p *Provider) AnalyzeText(ctx context.Context, req agent.AnalyzeRequest) (interface{}, error) {
	raw, err := p.run(ctx, "analyze", buildAnalysisPrompt(req))
	if err != nil {
		return nil, err
	}
	if req.Schema == nil {
		return strings.TrimSpace(raw), nil
	}
	return parseAgentJSON(raw), nil
}

// ExecuteTask delegates a task to a named agent. The response is
// parsed as JSON; a non-object result is wrapped under "result" so
// callers always receive a map.
func (p *Provider) ExecuteTask(ctx context.Context, req agent.TaskRequest) (map[string]interface{}, error) {
	raw, err := p.run(ctx, "execute_task", buildTaskPrompt(req))
	if err != nil {
		return nil, err
	}
	parsed := parseAgentJSON(raw)
	if m, ok := parsed.(map[string]interface{}); ok {
		return m, nil
	}
	return map[string]interface{}{"result": parsed}, nil
}

// run invokes the CLI with the prompt on stdin and returns stdout.
func (p *Provider) run(ctx context.Context, operation, prompt string) (string, error) {
	if !p.Available(ctx) {
		return "", &errors.ProviderError{
			Provider:  ProviderName,
			Operation: operation,
			Message:   fmt.Sprintf("%s CLI not found in PATH", p.command),
		}
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", &errors.ProviderError{
				Provider:  ProviderName,
				Operation: operation,
				Message:   "rate limit wait interrupted",
				Cause:     err,
			}
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, p.cliPath, "--print")
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Trace(p.logger, "agent prompt", slog.String("prompt", prompt))

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if execCtx.Err() == context.DeadlineExceeded {
			return "", &errors.TimeoutError{
				Operation: "agent " + operation,
				Duration:  p.timeout,
				Cause:     err,
			}
		}
		return "", &errors.ProviderError{
			Provider:  ProviderName,
			Operation: operation,
			Message:   fmt.Sprintf("%s CLI failed: %v (stderr: %s)", p.command, err, strings.TrimSpace(stderr.String())),
			Cause:     err,
		}
	}

	p.logger.Debug("agent responded",
		slog.String("operation", operation),
		log.Duration("duration", elapsed.Milliseconds()),
		slog.Int("response_bytes", stdout.Len()))
	log.Trace(p.logger, "agent response", slog.String("response", stdout.String()))

	return stdout.String(), nil
}

// buildAnalysisPrompt assembles the full prompt for an analysis
// request: instruction, optional response schema, then the (possibly
// truncated) document text.
func buildAnalysisPrompt(req agent.AnalyzeRequest) string {
	var b strings.Builder
	b.WriteString(req.Prompt)

	if req.Schema != nil {
		if schema, err := json.MarshalIndent(req.Schema, "", "  "); err == nil {
			b.WriteString("\n\nRespond with a single JSON object matching this schema:\n")
			b.Write(schema)
		}
	}

	b.WriteString("\n\nText to analyze:\n")
	b.WriteString(truncateText(req.Text, maxTextBytes))
	return b.String()
}

// buildTaskPrompt assembles the prompt for a delegated task.
func buildTaskPrompt(req agent.TaskRequest) string {
	params := []byte("{}")
	if len(req.Params) > 0 {
		if data, err := json.MarshalIndent(req.Params, "", "  "); err == nil {
			params = data
		}
	}
	return fmt.Sprintf(
		"You are acting as the %q agent. Perform the %q action with these parameters:\n%s\n\nRespond with a single JSON object describing the result.",
		req.Agent, req.Action, params)
}

// truncateText cuts s to at most limit bytes, backing off to a rune
// boundary so the result stays valid UTF-8.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
