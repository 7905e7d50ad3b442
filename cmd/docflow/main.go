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

package main

import (
	"github.com/tombee/docflow/internal/cli"
	"github.com/tombee/docflow/internal/commands/management"
	"github.com/tombee/docflow/internal/commands/resolve"
	"github.com/tombee/docflow/internal/commands/run"
	"github.com/tombee/docflow/internal/commands/validate"
	versioncmd "github.com/tombee/docflow/internal/commands/version"
	"github.com/tombee/docflow/internal/commands/workflow"
)

// Version information (injected via ldflags at build time)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// Set version information from build-time ldflags
	cli.SetVersion(version, commit, buildDate)

	// Create root command and add subcommands
	rootCmd := cli.NewRootCommand()

	// Core execution commands
	rootCmd.AddCommand(run.NewCommand())
	rootCmd.AddCommand(resolve.NewCommand())
	rootCmd.AddCommand(validate.NewCommand())

	// Definition management commands
	rootCmd.AddCommand(workflow.NewWorkflowsCommand())
	rootCmd.AddCommand(workflow.NewInitCommand())

	// Run inspection commands
	rootCmd.AddCommand(management.NewRunsCommand())

	// Version command
	rootCmd.AddCommand(versioncmd.NewVersionCommand())

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		cli.HandleExitError(err)
	}
}
