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

// Package sqlite provides a SQLite-backed run store for single-node
// deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tombee/docflow/pkg/errors"
	"github.com/tombee/docflow/pkg/workflow"
)

// Compile-time interface assertion.
var _ workflow.RunStore = (*Store)(nil)

// Store is a SQLite run store.
type Store struct {
	db *sql.DB
}

// Config contains SQLite connection configuration.
type Config struct {
	// Path is the database file path. Parent directories are created.
	Path string

	// WAL enables Write-Ahead Logging for concurrent readers.
	// CLI usage wants this on; tests may turn it off.
	WAL bool
}

// New creates a SQLite run store, creating the database file and schema
// as needed.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes; a single connection avoids lock churn.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}

	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure pragmas: %w", err)
	}

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) configurePragmas(ctx context.Context, enableWAL bool) error {
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	for _, pragma := range pragmas {
		if _, err := s.db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}

// migrate creates the database schema.
func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			document_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_step TEXT,
			parameters TEXT,
			state TEXT,
			outputs TEXT,
			error TEXT,
			started_at TEXT,
			completed_at TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_workflow ON runs(workflow_name)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Save persists the run, overwriting an existing record with the same id.
func (s *Store) Save(ctx context.Context, run *workflow.Run) error {
	if run == nil {
		return &errors.ValidationError{
			Field:   "run",
			Message: "run cannot be nil",
		}
	}
	if run.RunID == "" {
		return &errors.ValidationError{
			Field:   "run_id",
			Message: "run ID cannot be empty",
		}
	}

	parametersJSON, err := json.Marshal(run.Parameters)
	if err != nil {
		return fmt.Errorf("failed to marshal parameters: %w", err)
	}
	stateJSON, err := json.Marshal(run.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	outputsJSON, err := json.Marshal(run.Outputs)
	if err != nil {
		return fmt.Errorf("failed to marshal outputs: %w", err)
	}

	query := `
		INSERT INTO runs (run_id, workflow_name, document_id, status, current_step,
			parameters, state, outputs, error, started_at, completed_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			workflow_name = excluded.workflow_name,
			document_id = excluded.document_id,
			status = excluded.status,
			current_step = excluded.current_step,
			parameters = excluded.parameters,
			state = excluded.state,
			outputs = excluded.outputs,
			error = excluded.error,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			updated_at = excluded.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		run.RunID, run.WorkflowName, run.DocumentID, string(run.Status),
		nullString(run.CurrentStep),
		string(parametersJSON), string(stateJSON), string(outputsJSON),
		nullString(run.Error),
		formatTime(run.StartedAt), formatTimePtr(run.CompletedAt),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by id.
func (s *Store) Get(ctx context.Context, runID string) (*workflow.Run, error) {
	if runID == "" {
		return nil, &errors.ValidationError{
			Field:   "run_id",
			Message: "run ID cannot be empty",
		}
	}

	query := `
		SELECT run_id, workflow_name, document_id, status, current_step,
			parameters, state, outputs, error, started_at, completed_at
		FROM runs WHERE run_id = ?
	`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, runID))
	if err == sql.ErrNoRows {
		return nil, &errors.NotFoundError{Resource: "run", ID: runID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns runs matching the query, newest first.
func (s *Store) List(ctx context.Context, query *workflow.Query) ([]*workflow.Run, error) {
	if query == nil {
		query = &workflow.Query{}
	}

	sqlQuery := `
		SELECT run_id, workflow_name, document_id, status, current_step,
			parameters, state, outputs, error, started_at, completed_at
		FROM runs WHERE 1=1
	`
	args := []any{}

	if query.Workflow != "" {
		sqlQuery += " AND workflow_name = ?"
		args = append(args, query.Workflow)
	}
	if query.Status != "" {
		sqlQuery += " AND status = ?"
		args = append(args, string(query.Status))
	}

	sqlQuery += " ORDER BY started_at DESC"

	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	} else if query.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 is unbounded.
		sqlQuery += " LIMIT -1"
	}
	if query.Offset > 0 {
		sqlQuery += " OFFSET ?"
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*workflow.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*workflow.Run, error) {
	var run workflow.Run
	var status string
	var currentStep, errText sql.NullString
	var parametersJSON, stateJSON, outputsJSON sql.NullString
	var startedAt, completedAt sql.NullString

	err := row.Scan(
		&run.RunID, &run.WorkflowName, &run.DocumentID, &status, &currentStep,
		&parametersJSON, &stateJSON, &outputsJSON, &errText,
		&startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Status = workflow.Status(status)
	if currentStep.Valid {
		run.CurrentStep = currentStep.String
	}
	if errText.Valid {
		run.Error = errText.String
	}

	run.Parameters = make(map[string]interface{})
	run.State = make(map[string]interface{})
	run.Outputs = make(map[string]interface{})
	if err := unmarshalInto(parametersJSON, &run.Parameters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal parameters: %w", err)
	}
	if err := unmarshalInto(stateJSON, &run.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if err := unmarshalInto(outputsJSON, &run.Outputs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outputs: %w", err)
	}

	if startedAt.Valid && startedAt.String != "" {
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt.String)
	}
	if completedAt.Valid && completedAt.String != "" {
		if t, err := time.Parse(time.RFC3339Nano, completedAt.String); err == nil {
			run.CompletedAt = &t
		}
	}

	return &run, nil
}

func unmarshalInto(col sql.NullString, dest *map[string]interface{}) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dest)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func formatTimePtr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return formatTime(*t)
}
