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

// Package resolve implements the resolve command: a dry inspection of
// the name matching cascade, without executing anything.
package resolve

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/output"
	"github.com/tombee/docflow/pkg/resolver"
)

// NewCommand creates the resolve command
func NewCommand() *cobra.Command {
	var contextPairs []string

	cmd := &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve a workflow name against the catalog",
		Long: `Resolve a requested workflow name to a registered definition and show
how the match was made.

Resolution walks a cascade: exact name, known aliases, semantic matching
through the agent, token similarity, then a generic fallback. The result
always includes a confidence score; a low score is information, not an
error, so the command exits zero either way.

See also: docflow run, docflow workflows list`,
		Example: `  # Example 1: Resolve a name variation
  docflow resolve nda_signature

  # Example 2: Resolve with semantic context
  docflow resolve handle_agreement --context document_type=nda

  # Example 3: Machine-readable result
  docflow resolve nda_signature --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			requested := args[0]

			matchContext, err := shared.ParseKeyValues(contextPairs)
			if err != nil {
				return shared.NewMissingInputError("parsing --context", err)
			}

			catalog, err := shared.OpenCatalog()
			if err != nil {
				return err
			}

			matcher, closeCache := shared.NewMatcher(catalog, shared.NewAgentProvider())
			defer closeCache()

			result, err := matcher.Match(cmd.Context(), requested, matchContext)
			if err != nil {
				return shared.NewStoreError("resolving workflow name", err)
			}

			if shared.GetJSON() {
				return emitResultJSON(cmd, requested, result)
			}

			printResult(cmd, requested, result)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&contextPairs, "context", nil, "Match context as key=value (repeatable)")

	return cmd
}

// resolveResponse is the JSON envelope for a resolution result.
type resolveResponse struct {
	output.JSONResponse
	Requested string               `json:"requested"`
	Match     resolver.MatchResult `json:"match"`
}

func emitResultJSON(cmd *cobra.Command, requested string, result resolver.MatchResult) error {
	return output.EmitJSON(cmd.OutOrStdout(), resolveResponse{
		JSONResponse: output.JSONResponse{
			Command: "resolve",
			Success: true,
		},
		Requested: requested,
		Match:     result,
	})
}

func printResult(cmd *cobra.Command, requested string, result resolver.MatchResult) {
	symbol := confidenceSymbol(result.Confidence)
	if shared.IsTTY(os.Stdout) {
		symbol = shared.ConfidenceStyle(result.Confidence).Render(symbol)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s -> %s\n", symbol, requested, result.MatchedWorkflow)
	fmt.Fprintf(out, "  Confidence: %.2f (%s)\n", result.Confidence, result.Reason)
	if result.Reasoning != "" {
		fmt.Fprintf(out, "  Reasoning:  %s\n", result.Reasoning)
	}
}

// confidenceSymbol mirrors the threshold policy run uses: accept at or
// above 0.7, warn down to 0.3, reject below.
func confidenceSymbol(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return shared.SymbolOK
	case confidence >= 0.3:
		return shared.SymbolWarn
	default:
		return shared.SymbolError
	}
}
