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

package shared

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/tombee/docflow/internal/config"
	"github.com/tombee/docflow/internal/tracing"
	"github.com/tombee/docflow/pkg/agent"
	"github.com/tombee/docflow/pkg/agent/claudecli"
	"github.com/tombee/docflow/pkg/resolver"
	"github.com/tombee/docflow/pkg/workflow"
)

// appConfig is the loaded configuration, set once by the root command
// before any subcommand runs.
var appConfig *config.Config

// SetConfig stores the loaded configuration (called by root command)
func SetConfig(cfg *config.Config) {
	appConfig = cfg
}

// Config returns the loaded configuration. Commands invoked outside the
// root command (tests, mostly) get defaults.
func Config() *config.Config {
	if appConfig == nil {
		return config.Default()
	}
	return appConfig
}

// OpenCatalog loads the workflow catalog from the configured
// definitions directory.
func OpenCatalog() (*workflow.Catalog, error) {
	cfg := Config()
	catalog, err := workflow.LoadCatalog(cfg.Definitions.Dir, slog.Default())
	if err != nil {
		return nil, NewDefinitionError(
			fmt.Sprintf("loading workflow definitions from %s", cfg.Definitions.Dir), err)
	}
	return catalog, nil
}

// NewAgentProvider builds the agent CLI provider from configuration.
func NewAgentProvider() *claudecli.Provider {
	cfg := Config()
	return claudecli.New(
		claudecli.WithCommand(cfg.Agent.Command),
		claudecli.WithTimeout(cfg.Agent.Timeout),
		claudecli.WithRateLimit(cfg.Agent.RequestsPerMinute),
		claudecli.WithLogger(slog.Default()),
	)
}

// NewMatcher builds the workflow name resolver over the catalog, with
// the configured cache backend and the given oracle. The returned
// closer releases the cache connection and is safe to call always.
func NewMatcher(catalog *workflow.Catalog, oracle agent.Provider) (*resolver.Matcher, func() error) {
	cfg := Config()

	matcher := resolver.NewMatcher(catalog)
	if oracle != nil {
		matcher = matcher.WithOracle(oracle)
	}

	closer := func() error { return nil }
	if cfg.Resolver.Cache == "redis" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Resolver.RedisAddr})
		matcher = matcher.WithCache(resolver.NewRedisCache(client, cfg.Resolver.CacheTTL))
		closer = client.Close
	}

	return matcher, closer
}

// NewTelemetry builds the tracing and metrics provider from the
// configured telemetry section.
func NewTelemetry(ctx context.Context) (*tracing.Provider, error) {
	v, _, _ := GetVersion()
	return tracing.NewProvider(ctx, Config().Telemetry, v)
}
