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

// Package store selects a run store backend from configuration.
package store

import (
	"context"
	"fmt"

	"github.com/tombee/docflow/internal/config"
	"github.com/tombee/docflow/internal/store/postgres"
	"github.com/tombee/docflow/internal/store/sqlite"
	"github.com/tombee/docflow/pkg/errors"
	"github.com/tombee/docflow/pkg/workflow"
)

// Open creates the run store selected by cfg.Backend. The returned
// close function releases the backing connections; for the memory
// backend it is a no-op.
func Open(ctx context.Context, cfg config.StoreConfig) (workflow.RunStore, func() error, error) {
	switch cfg.Backend {
	case "", "memory":
		return workflow.NewMemoryStore(), func() error { return nil }, nil

	case "sqlite":
		s, err := sqlite.New(sqlite.Config{Path: cfg.Path, WAL: true})
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return s, s.Close, nil

	case "postgres":
		s, err := postgres.New(ctx, postgres.Config{DSN: cfg.DSN})
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		return s, func() error { s.Close(); return nil }, nil

	default:
		return nil, nil, &errors.ConfigError{
			Key:    "store.backend",
			Reason: fmt.Sprintf("unknown backend %q, expected memory, sqlite or postgres", cfg.Backend),
		}
	}
}
