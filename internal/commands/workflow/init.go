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

package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"text/tabwriter"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/templates"
	"github.com/tombee/docflow/pkg/workflow/schema"
)

var workflowNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	var (
		templateName string
		description  string
		outputDir    string
		force        bool
		listOnly     bool
	)

	cmd := &cobra.Command{
		Use: "init [name]",
		Annotations: map[string]string{
			"group": "workflow",
		},
		Short: "Scaffold a new workflow definition",
		Long: `Create a new workflow definition file from a scaffold template.

Without flags this walks through an interactive form. With --template and
a name argument it writes the file directly, which suits scripts and CI.

The file lands in the configured definitions directory unless --dir says
otherwise.`,
		Example: `  # Example 1: Interactive scaffold
  docflow init

  # Example 2: Non-interactive scaffold
  docflow init contract_review --template document_review

  # Example 3: Scaffold into a specific directory
  docflow init invoice_checks --template blank --dir ./workflows

  # Example 4: List available templates
  docflow init --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listOnly {
				return listTemplates()
			}

			name := ""
			if len(args) > 0 {
				name = args[0]
			}

			return runInit(initOptions{
				Name:        name,
				Template:    templateName,
				Description: description,
				Dir:         outputDir,
				Force:       force,
			})
		},
	}

	cmd.Flags().StringVarP(&templateName, "template", "t", "", "Scaffold template (see --list)")
	cmd.Flags().StringVar(&description, "description", "", "Workflow description")
	cmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Directory to write into (default: configured definitions directory)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	cmd.Flags().BoolVar(&listOnly, "list", false, "List available templates")

	return cmd
}

type initOptions struct {
	Name        string
	Template    string
	Description string
	Dir         string
	Force       bool
}

func runInit(opts initOptions) error {
	// Everything present means no prompts; otherwise a terminal is required.
	needsForm := opts.Name == "" || opts.Template == ""
	if needsForm && shared.IsNonInteractive() {
		return shared.NewNonInteractiveError(
			"interactive scaffolding requires a terminal. Use: docflow init NAME --template TEMPLATE")
	}

	if needsForm {
		if err := promptForOptions(&opts); err != nil {
			return err
		}
	}

	if err := validateWorkflowName(opts.Name); err != nil {
		return err
	}
	if !templates.Exists(opts.Template) {
		return fmt.Errorf("template %q not found (use 'docflow init --list' to see available templates)", opts.Template)
	}

	content, err := templates.Render(opts.Template, templates.Fields{
		Name:        opts.Name,
		Description: opts.Description,
	})
	if err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}

	// A scaffold that fails its own schema is a bug, not user error.
	result, err := schema.ValidateDefinition(content)
	if err != nil {
		return fmt.Errorf("rendered scaffold is not valid YAML: %w", err)
	}
	if !result.Valid {
		return fmt.Errorf("rendered scaffold violates the definition schema: %s", result.Summary())
	}

	dir := opts.Dir
	if dir == "" {
		dir = shared.Config().Definitions.Dir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	destPath := filepath.Join(dir, opts.Name+".yaml")
	if _, err := os.Stat(destPath); err == nil && !opts.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", destPath)
	}

	if err := os.WriteFile(destPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", destPath, err)
	}

	fmt.Println(shared.RenderOK(fmt.Sprintf("Created %s", destPath)))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  Edit %s to fit your process\n", destPath)
	fmt.Printf("  docflow validate %s\n", destPath)
	fmt.Printf("  docflow run %s --document <id>\n", opts.Name)

	return nil
}

// promptForOptions fills the missing init options through an interactive
// form.
func promptForOptions(opts *initOptions) error {
	available, err := templates.List()
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	options := make([]huh.Option[string], 0, len(available))
	for _, tmpl := range available {
		label := fmt.Sprintf("%s - %s", tmpl.Name, tmpl.Description)
		options = append(options, huh.NewOption(label, tmpl.Name))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Template").
				Description("Starting point for the new workflow").
				Options(options...).
				Value(&opts.Template),
			huh.NewInput().
				Title("Workflow name").
				Description("Lowercase identifier, e.g. contract_review").
				Placeholder("contract_review").
				Validate(validateWorkflowName).
				Value(&opts.Name),
			huh.NewInput().
				Title("Description").
				Description("One line on what the workflow does; matching uses it too").
				Value(&opts.Description),
		),
	)

	if err := form.Run(); err != nil {
		if err == huh.ErrUserAborted {
			os.Exit(130) // Standard exit code for SIGINT
		}
		return fmt.Errorf("form cancelled: %w", err)
	}

	return nil
}

func validateWorkflowName(name string) error {
	if name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if !workflowNamePattern.MatchString(name) {
		return fmt.Errorf("workflow name must start with a letter and contain only lowercase letters, digits, '_' or '-'")
	}
	return nil
}

func listTemplates() error {
	available, err := templates.List()
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDESCRIPTION")
	fmt.Fprintln(w, "────\t───────────")
	for _, tmpl := range available {
		fmt.Fprintf(w, "%s\t%s\n", tmpl.Name, tmpl.Description)
	}
	w.Flush()

	fmt.Println()
	fmt.Println("Use 'docflow init <name> --template <template>' to scaffold a workflow")

	return nil
}
