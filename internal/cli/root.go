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

package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tombee/docflow/internal/commands/shared"
	"github.com/tombee/docflow/internal/config"
	"github.com/tombee/docflow/internal/log"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for docflow
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docflow",
		Short: "Docflow - document workflow execution",
		Long: `Docflow executes declarative document workflows: multi-step processes
defined in YAML and run against documents, with semantic matching from a
requested workflow name to the definitions that actually exist.

Run 'docflow init' to scaffold a workflow definition.
Run 'docflow run <workflow> --document <id>' to execute one.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initRuntime()
		},
	}

	// Get flag pointers from shared package
	verbose, quiet, json, config := shared.RegisterFlagPointers()

	// Add global flags
	cmd.PersistentFlags().BoolVarP(verbose, "verbose", "v", false, "Enable verbose output")
	cmd.PersistentFlags().BoolVarP(quiet, "quiet", "q", false, "Suppress non-error output")
	cmd.PersistentFlags().BoolVar(json, "json", false, "Output in JSON format")
	cmd.PersistentFlags().StringVar(config, "config", "", "Path to config file (default: ~/.config/docflow/config.yaml)")

	return cmd
}

// initRuntime loads the configuration and installs the process logger.
// It runs once before any subcommand; the flags already carry their
// parsed values at that point.
func initRuntime() error {
	cfg, err := config.Load(shared.GetConfigPath())
	if err != nil {
		return err
	}

	switch {
	case shared.GetVerbose():
		cfg.Log.Level = "debug"
	case shared.GetQuiet():
		cfg.Log.Level = "error"
	}

	logger := log.New(&log.Config{
		Level:     cfg.Log.Level,
		Format:    log.Format(cfg.Log.Format),
		Output:    os.Stderr,
		AddSource: cfg.Log.AddSource,
	})
	slog.SetDefault(logger)
	shared.SetConfig(cfg)

	return nil
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
