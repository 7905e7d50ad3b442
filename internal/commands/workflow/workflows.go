package workflow

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/pkg/workflow"
)

// NewWorkflowsCommand creates the workflows command group
func NewWorkflowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Inspect available workflow definitions",
		Long: `List and inspect the workflow definitions loaded from the configured
definitions directory.

These are the definitions 'docflow run' matches requested names against.`,
	}

	cmd.AddCommand(newWorkflowsListCmd())
	cmd.AddCommand(newWorkflowsShowCmd())

	// Default to list if no subcommand specified
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return newWorkflowsListCmd().RunE(cmd, args)
	}

	return cmd
}

// workflowSummary is the JSON shape for one listed definition.
type workflowSummary struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
	Source      string `json:"source,omitempty"`
}

func newWorkflowsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available workflow definitions",
		Long: `List all workflow definitions with their descriptions.

See also: docflow workflows show, docflow run`,
		Example: `  # Example 1: List all workflows
  docflow workflows list

  # Example 2: Get workflows as JSON
  docflow workflows list --json

  # Example 3: Extract workflow names for scripting
  docflow workflows list --json | jq -r '.[].name'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := shared.OpenCatalog()
			if err != nil {
				return err
			}

			summaries := make([]workflowSummary, 0, catalog.Len())
			for _, def := range catalog.Definitions() {
				source, _ := catalog.Source(def.Name)
				summaries = append(summaries, workflowSummary{
					Name:        def.Name,
					Description: def.Description,
					Steps:       len(def.Steps),
					Source:      source,
				})
			}

			out := cmd.OutOrStdout()

			if shared.GetJSON() {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			}

			if len(summaries) == 0 {
				fmt.Fprintln(out, "No workflow definitions found.")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Use 'docflow init' to scaffold one.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTEPS\tDESCRIPTION")
			fmt.Fprintln(w, "────\t─────\t───────────")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.Steps, s.Description)
			}
			w.Flush()

			fmt.Fprintln(out)
			fmt.Fprintln(out, "Use 'docflow workflows show <name>' to view a definition")
			fmt.Fprintln(out, "Use 'docflow run <name> --document <id>' to execute one")

			return nil
		},
	}

	return cmd
}

func newWorkflowsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Display a workflow definition",
		Long: `Display the source YAML of a workflow definition.

See also: docflow workflows list, docflow validate`,
		Example: `  # Example 1: View a workflow definition
  docflow workflows show contract_review

  # Example 2: Show and pipe to a file
  docflow workflows show contract_review > copy.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			catalog, err := shared.OpenCatalog()
			if err != nil {
				return err
			}

			def, ok := catalog.Get(name)
			if !ok {
				return fmt.Errorf("workflow %q not found (use 'docflow workflows list' to see available definitions)", name)
			}

			out := cmd.OutOrStdout()

			if shared.GetJSON() {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(def)
			}

			source, ok := catalog.Source(name)
			if !ok {
				return printDefinition(out, def)
			}

			content, err := os.ReadFile(source)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", source, err)
			}

			fmt.Fprintf(out, "# Source: %s\n\n", source)
			fmt.Fprintln(out, string(content))

			return nil
		},
	}

	return cmd
}

// printDefinition renders a definition without its source file, which
// happens for catalogs assembled in memory.
func printDefinition(out io.Writer, def *workflow.Definition) error {
	fmt.Fprintf(out, "Name:        %s\n", def.Name)
	if def.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", def.Description)
	}
	if len(def.Parameters) > 0 {
		fmt.Fprintln(out, "Parameters:")
		for _, p := range def.Parameters {
			required := ""
			if p.Required {
				required = " (required)"
			}
			fmt.Fprintf(out, "  %s %s%s\n", p.Name, p.Type, required)
		}
	}
	fmt.Fprintln(out, "Steps:")
	for _, s := range def.Steps {
		fmt.Fprintf(out, "  %s [%s] %s\n", s.ID, s.Type, s.Description)
	}
	return nil
}
