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

// Package management implements the runs command group: listing,
// inspecting and extracting the outputs of persisted workflow runs.
package management

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/store"
	docflowerrors "github.com/tombee/docflow/pkg/errors"
	"github.com/tombee/docflow/pkg/workflow"
)

// NewRunsCommand creates the runs command group.
func NewRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use: "runs",
		Annotations: map[string]string{
			"group": "management",
		},
		Short: "Inspect workflow runs",
		Long: `Commands for listing and inspecting persisted workflow runs.

Runs are read from the store configured under 'store' in the config
file (memory, sqlite or postgres). The memory backend keeps no history
between invocations; configure sqlite or postgres to make these
commands useful.`,
	}

	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())
	cmd.AddCommand(newRunsOutputCommand())

	return cmd
}

func newRunsListCommand() *cobra.Command {
	var (
		workflowName string
		status       string
		failed       bool
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflow runs",
		Long: `List persisted workflow runs, newest first, optionally filtered by
workflow name or status.

See also: docflow runs show, docflow run`,
		Example: `  # List recent runs
  docflow runs list

  # Runs of one workflow
  docflow runs list --workflow document_review

  # Failed runs only
  docflow runs list --failed

  # Monitoring pipelines read JSON
  docflow runs list --json | jq '.[] | select(.status=="failed")'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed {
				status = string(workflow.StatusFailed)
			}
			return runsList(cmd, workflowName, status, limit)
		},
	}

	cmd.Flags().StringVar(&workflowName, "workflow", "", "Filter by workflow name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (queued, running, success, failed, cancelled)")
	cmd.Flags().BoolVar(&failed, "failed", false, "Show only failed runs (shorthand for --status failed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 shows all)")

	return cmd
}

func newRunsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show run details",
		Long: `Display detailed information about a workflow run.

See also: docflow runs list, docflow runs output`,
		Example: `  # Show run details
  docflow runs show a1b2c3d4

  # Check whether a run succeeded
  docflow runs show a1b2c3d4 --json | jq -e '.status == "success"'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runsShow(cmd, args[0])
		},
	}
}

func newRunsOutputCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "output <run-id>",
		Short: "Print run outputs",
		Long: `Print the recorded step outputs of a run as JSON, keyed by step id.

The result is always JSON; --json is implied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runsOutput(cmd, args[0])
		},
	}
}

func runsList(cmd *cobra.Command, workflowName, status string, limit int) error {
	query := &workflow.Query{
		Workflow: workflowName,
		Limit:    limit,
	}
	if status != "" {
		st := workflow.Status(status)
		if !st.IsValid() {
			return shared.NewMissingInputError(
				fmt.Sprintf("invalid status %q (expected queued, running, success, failed or cancelled)", status), nil)
		}
		query.Status = st
	}

	runStore, closeStore, err := store.Open(cmd.Context(), shared.Config().Store)
	if err != nil {
		return shared.NewStoreError("opening run store", err)
	}
	defer closeStore()

	runs, err := runStore.List(cmd.Context(), query)
	if err != nil {
		return shared.NewStoreError("listing runs", err)
	}

	out := cmd.OutOrStdout()

	if shared.GetJSON() {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Use 'docflow run <workflow> --document <id>' to start one.")
		return nil
	}

	isTTY := shared.IsTTY(os.Stdout)

	fmt.Fprintf(out, "%-10s %-10s %-22s %-22s %-20s %s\n",
		"RUN ID", "STATUS", "WORKFLOW", "DOCUMENT", "STARTED", "DURATION")
	for _, run := range runs {
		// Pad before styling: ANSI escapes throw off %-10s width math.
		statusCell := fmt.Sprintf("%-10s", run.Status)
		if isTTY {
			statusCell = shared.RunStatusStyle(run.Status).Render(statusCell)
		}
		fmt.Fprintf(out, "%-10s %s %-22s %-22s %-20s %s\n",
			run.RunID,
			statusCell,
			truncate(run.WorkflowName, 22),
			truncate(run.DocumentID, 22),
			formatTime(run.StartedAt),
			formatRunDuration(run),
		)
	}

	return nil
}

func runsShow(cmd *cobra.Command, runID string) error {
	run, err := loadRun(cmd, runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if shared.GetJSON() {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(run)
	}

	statusCell := string(run.Status)
	if shared.IsTTY(os.Stdout) {
		statusCell = shared.RunStatusStyle(run.Status).Render(statusCell)
	}

	fmt.Fprintf(out, "Run ID:     %s\n", run.RunID)
	fmt.Fprintf(out, "Workflow:   %s\n", run.WorkflowName)
	fmt.Fprintf(out, "Document:   %s\n", run.DocumentID)
	fmt.Fprintf(out, "Status:     %s\n", statusCell)
	if !run.StartedAt.IsZero() {
		fmt.Fprintf(out, "Started:    %s\n", formatTime(run.StartedAt))
	}
	if run.CompletedAt != nil {
		fmt.Fprintf(out, "Completed:  %s\n", formatTime(*run.CompletedAt))
		fmt.Fprintf(out, "Duration:   %s\n", run.Duration().Round(time.Millisecond))
	}
	if run.CurrentStep != "" {
		fmt.Fprintf(out, "Last Step:  %s\n", run.CurrentStep)
	}
	if len(run.Outputs) > 0 {
		fmt.Fprintf(out, "Steps Run:  %s\n", strings.Join(sortedKeys(run.Outputs), ", "))
	}
	if run.Error != "" {
		fmt.Fprintf(out, "Error:      %s\n", run.Error)
	}
	if len(run.Parameters) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Parameters:")
		for _, key := range sortedKeys(run.Parameters) {
			fmt.Fprintf(out, "  %s: %v\n", key, run.Parameters[key])
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Use 'docflow runs output %s' for the full step outputs.\n", run.RunID)

	return nil
}

func runsOutput(cmd *cobra.Command, runID string) error {
	run, err := loadRun(cmd, runID)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(run.Outputs)
}

// loadRun opens the configured store and reads one run, mapping store
// failures and unknown ids to their exit codes.
func loadRun(cmd *cobra.Command, runID string) (*workflow.Run, error) {
	runStore, closeStore, err := store.Open(cmd.Context(), shared.Config().Store)
	if err != nil {
		return nil, shared.NewStoreError("opening run store", err)
	}
	defer closeStore()

	run, err := runStore.Get(cmd.Context(), runID)
	if err != nil {
		var notFound *docflowerrors.NotFoundError
		if errors.As(err, &notFound) {
			return nil, shared.NewMissingInputError(
				fmt.Sprintf("run %s not found (use 'docflow runs list' to see recent runs)", runID), nil)
		}
		return nil, shared.NewStoreError("reading run", err)
	}
	return run, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func formatRunDuration(run *workflow.Run) string {
	if run.StartedAt.IsZero() {
		return "-"
	}
	return run.Duration().Round(time.Millisecond).String()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
