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

// Package run implements the run command: resolve a workflow name
// through the matching cascade, execute the definition against a
// document and report the persisted run.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/docflow/internal/action"
	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/output"
	"github.com/tombee/docflow/internal/store"
	docflowerrors "github.com/tombee/docflow/pkg/errors"
	"github.com/tombee/docflow/pkg/workflow"
)

// NewCommand creates the run command
func NewCommand() *cobra.Command {
	var (
		documentID    string
		params        []string
		minConfidence float64
	)

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Execute a workflow against a document",
		Annotations: map[string]string{
			"group": "execution",
		},
		Long: `Run resolves the workflow name through the matching cascade, validates
the parameters against the definition and executes the steps in order.

Name Resolution:
  The requested name does not need to match a definition exactly. The
  cascade tries an exact match, the static alias table, the agent
  oracle, fuzzy token matching and generic fallbacks, in that order.
  Matches below --min-confidence abort before anything runs; matches
  below 0.7 print a warning naming the substitution.

Failure Semantics:
  A step failure marks the run failed, persists it with partial
  outputs and exits 1. Problems detected before the first step
  (unknown name, missing parameters) exit without writing a run
  record.

See also: docflow resolve, docflow runs show, docflow validate`,
		Example: `  # Run a workflow against a document
  docflow run document_review --document doc-4821 --param reviewer_email=ana@example.com

  # Approximate names resolve through the cascade
  docflow run "review the contract" --document doc-4821

  # Reject anything but a confident match
  docflow run nda_review --document doc-4821 --min-confidence 0.9

  # Machine-readable result
  docflow run document_review --document doc-4821 --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on execution errors
		SilenceErrors: true, // Don't print error message (we handle it ourselves)
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(cmd, args[0], documentID, params, minConfidence)
		},
	}

	cmd.Flags().StringVarP(&documentID, "document", "d", "", "Document id the workflow operates on (required)")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Workflow parameter in key=value form (repeatable)")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0.3, "Reject name matches below this confidence")

	return cmd
}

func runWorkflow(cmd *cobra.Command, requested, documentID string, params []string, minConfidence float64) error {
	if documentID == "" {
		return shared.NewMissingInputError("--document is required (the id of the document to process)", nil)
	}

	parameters, err := shared.ParseKeyValues(params)
	if err != nil {
		return shared.NewMissingInputError("parsing --param", err)
	}

	catalog, err := shared.OpenCatalog()
	if err != nil {
		return err
	}
	if catalog.Len() == 0 {
		return shared.NewDefinitionError(
			fmt.Sprintf("no workflow definitions in %s (use 'docflow init' to scaffold one)",
				shared.Config().Definitions.Dir), nil)
	}

	ctx := cmd.Context()

	telemetry, err := shared.NewTelemetry(ctx)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	if addr := shared.Config().Telemetry.MetricsAddr; addr != "" {
		// ServeMetrics blocks until ctx is cancelled, so it gets its
		// own goroutine for the lifetime of the run.
		go func() {
			if err := telemetry.ServeMetrics(ctx, addr); err != nil {
				slog.Default().Warn("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
	}

	agentProvider := shared.NewAgentProvider()

	matcher, closeCache := shared.NewMatcher(catalog, agentProvider)
	defer closeCache()

	match, err := matcher.Match(ctx, requested, parameters)
	if err != nil {
		return shared.NewStoreError("resolving workflow name", err)
	}
	telemetry.Collector().RecordMatch(ctx, match.Reason)

	if match.Confidence < minConfidence {
		return shared.NewDefinitionError(
			fmt.Sprintf("no workflow matched %q with confidence >= %.2f (best: %s at %.2f)",
				requested, minConfidence, match.MatchedWorkflow, match.Confidence), nil)
	}

	if match.MatchedWorkflow != requested {
		fmt.Fprintf(cmd.ErrOrStderr(), "Resolved %q -> %s (%s, confidence %.2f)\n",
			requested, match.MatchedWorkflow, match.Reason, match.Confidence)
	}
	if match.Confidence < 0.7 {
		fmt.Fprintln(cmd.ErrOrStderr(), shared.RenderWarn(fmt.Sprintf(
			"low-confidence match (%.2f); raise --min-confidence to reject matches like this", match.Confidence)))
	}

	runStore, closeStore, err := store.Open(ctx, shared.Config().Store)
	if err != nil {
		return shared.NewStoreError("opening run store", err)
	}
	defer closeStore()

	registry := action.NewRegistry()
	action.RegisterBuiltins(registry, action.BuiltinConfig{
		Agent:  agentProvider,
		Logger: slog.Default(),
	})

	engine := workflow.NewEngine(catalog, registry, runStore).
		WithLogger(slog.Default()).
		WithTracer(telemetry.Tracer("docflow")).
		WithMetrics(telemetry.Collector())

	run, err := engine.Execute(ctx, match.MatchedWorkflow, documentID, parameters)
	if err != nil {
		var valErr *docflowerrors.ValidationError
		if errors.As(err, &valErr) {
			return shared.NewMissingInputError("invalid parameters", err)
		}
		var notFound *docflowerrors.NotFoundError
		if errors.As(err, &notFound) {
			return shared.NewDefinitionError("loading workflow", err)
		}
		return shared.NewExecutionError("executing workflow", err)
	}

	flushCtx, cancelFlush := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelFlush()
	_ = telemetry.ForceFlush(flushCtx)

	if shared.GetJSON() {
		if err := emitRunJSON(cmd, run); err != nil {
			return err
		}
	} else {
		printRun(cmd, run)
	}

	if run.Status == workflow.StatusFailed {
		// The printed run is the report; the exit code carries the verdict.
		return &shared.ExitError{Code: shared.ExitExecutionFailed, Message: ""}
	}
	return nil
}

// emitRunJSON writes the run envelope for --json consumers.
func emitRunJSON(cmd *cobra.Command, run *workflow.Run) error {
	type runResponse struct {
		output.JSONResponse
		Run *workflow.Run `json:"run"`
	}

	resp := runResponse{
		JSONResponse: output.JSONResponse{
			Command: "run",
			Success: run.Status == workflow.StatusSuccess,
		},
		Run: run,
	}
	return output.EmitJSON(cmd.OutOrStdout(), resp)
}

// printRun writes the human-readable run summary.
func printRun(cmd *cobra.Command, run *workflow.Run) {
	out := cmd.OutOrStdout()

	switch run.Status {
	case workflow.StatusSuccess:
		fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("Run %s succeeded", run.RunID)))
	case workflow.StatusFailed:
		fmt.Fprintln(out, shared.RenderError(fmt.Sprintf("Run %s failed", run.RunID)))
	default:
		fmt.Fprintf(out, "Run %s %s\n", run.RunID, run.Status)
	}

	fmt.Fprintf(out, "  Workflow: %s\n", run.WorkflowName)
	fmt.Fprintf(out, "  Document: %s\n", run.DocumentID)
	fmt.Fprintf(out, "  Duration: %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "  Steps:    %d\n", len(run.Outputs))
	if run.Error != "" {
		fmt.Fprintf(out, "  Error:    %s\n", run.Error)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Use 'docflow runs show %s' for details.\n", run.RunID)
}
