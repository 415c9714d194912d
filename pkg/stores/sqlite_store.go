package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mvvbapiraju/deployctl/pkg/telemetry"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists deployment history in a local SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration.
type Config struct {
	Path string
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	return &SQLiteStore{path: cfg.Path}, nil
}

// Init opens the database and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// One invocation, one writer; a small pool is plenty.
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate brings the schema up to date from the embedded migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// CreateDeploymentRun records a newly submitted deployment.
func (s *SQLiteStore) CreateDeploymentRun(ctx context.Context, run *DeploymentRun) error {
	query := `
		INSERT INTO deployment_runs (id, deployment_id, application, grp, image, transport, status, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.DeploymentID,
		run.Application,
		run.Group,
		run.Image,
		run.Transport,
		run.Status,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deployment run: %w", err)
	}
	return nil
}

// FinishDeploymentRun records the terminal state of a run.
func (s *SQLiteStore) FinishDeploymentRun(ctx context.Context, id, status string, errMsg *string) error {
	query := `
		UPDATE deployment_runs
		SET status = ?, error = ?, finished_at = ?
		WHERE id = ?
	`

	now := time.Now()
	result, err := s.db.ExecContext(ctx, query, status, errMsg, &now, id)
	if err != nil {
		return fmt.Errorf("failed to finish deployment run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("deployment run not found: %s", id)
	}
	return nil
}

// GetDeploymentRun retrieves a run by ID.
func (s *SQLiteStore) GetDeploymentRun(ctx context.Context, id string) (*DeploymentRun, error) {
	query := `
		SELECT id, deployment_id, application, grp, image, transport, status, error, started_at, finished_at
		FROM deployment_runs
		WHERE id = ?
	`

	run := &DeploymentRun{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.DeploymentID,
		&run.Application,
		&run.Group,
		&run.Image,
		&run.Transport,
		&run.Status,
		&run.Error,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("deployment run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get deployment run: %w", err)
	}
	return run, nil
}

// ListDeploymentRuns lists runs newest first.
func (s *SQLiteStore) ListDeploymentRuns(ctx context.Context, limit, offset int) ([]*DeploymentRun, error) {
	query := `
		SELECT id, deployment_id, application, grp, image, transport, status, error, started_at, finished_at
		FROM deployment_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment runs: %w", err)
	}
	defer rows.Close()

	runs := []*DeploymentRun{}
	for rows.Next() {
		run := &DeploymentRun{}
		err := rows.Scan(
			&run.ID,
			&run.DeploymentID,
			&run.Application,
			&run.Group,
			&run.Image,
			&run.Transport,
			&run.Status,
			&run.Error,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// CreateRollbackAction records one executed rollback.
func (s *SQLiteStore) CreateRollbackAction(ctx context.Context, action *RollbackAction) error {
	query := `
		INSERT INTO rollback_actions (id, deployment_id, mode, status_before, status_after, stop_error, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		action.ID,
		action.DeploymentID,
		action.Mode,
		action.StatusBefore,
		action.StatusAfter,
		action.StopError,
		action.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rollback action: %w", err)
	}
	return nil
}

// ListRollbackActions lists rollbacks for a deployment, newest first.
func (s *SQLiteStore) ListRollbackActions(ctx context.Context, deploymentID string) ([]*RollbackAction, error) {
	query := `
		SELECT id, deployment_id, mode, status_before, status_after, stop_error, executed_at
		FROM rollback_actions
		WHERE deployment_id = ?
		ORDER BY executed_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rollback actions: %w", err)
	}
	defer rows.Close()

	actions := []*RollbackAction{}
	for rows.Next() {
		action := &RollbackAction{}
		err := rows.Scan(
			&action.ID,
			&action.DeploymentID,
			&action.Mode,
			&action.StatusBefore,
			&action.StatusAfter,
			&action.StopError,
			&action.ExecutedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rollback action: %w", err)
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

// Record implements telemetry.EventSink, persisting timeline events.
func (s *SQLiteStore) Record(event telemetry.Event) error {
	query := `
		INSERT INTO history_events (id, type, deployment_id, target, message, level, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		event.ID,
		event.Type,
		event.DeploymentID,
		event.Target,
		event.Message,
		event.Level,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

// ListEvents lists persisted events for a deployment, oldest first, so
// the timeline reads top to bottom.
func (s *SQLiteStore) ListEvents(ctx context.Context, deploymentID string) ([]*HistoryEvent, error) {
	query := `
		SELECT id, type, deployment_id, target, message, level, timestamp
		FROM history_events
		WHERE deployment_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := s.db.QueryContext(ctx, query, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*HistoryEvent{}
	for rows.Next() {
		event := &HistoryEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Type,
			&event.DeploymentID,
			&event.Target,
			&event.Message,
			&event.Level,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
