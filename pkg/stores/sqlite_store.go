package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/pixelgate/pixelgate/pkg/engine"
	"github.com/pixelgate/pixelgate/pkg/telemetry"
	"github.com/pixelgate/pixelgate/pkg/track"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ComponentName is the lifecycle component name of the history store.
const ComponentName = "store"

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// HistoryStore persists lifecycle runs and resolution records in SQLite.
// It implements track.Recorder and participates in the component
// lifecycle: Init opens and migrates the database, Shutdown closes it.
type HistoryStore struct {
	db  *sql.DB
	cfg Config
	log *telemetry.Logger
}

// NewHistoryStore creates a new history store; the database is not
// opened until Init runs.
func NewHistoryStore(cfg Config, log *telemetry.Logger) (*HistoryStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	if log == nil {
		log = telemetry.NopLogger()
	}

	return &HistoryStore{
		cfg: cfg,
		log: log.NewComponentLogger(ComponentName),
	}, nil
}

// Name implements engine.Component.
func (s *HistoryStore) Name() string { return ComponentName }

// Init opens the database, enables WAL mode, and runs migrations.
func (s *HistoryStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db

	if err := s.migrate(); err != nil {
		_ = db.Close()
		s.db = nil
		return err
	}

	s.log.WithField("path", s.cfg.Path).Info("History database opened")
	return nil
}

// Shutdown closes the database connection.
func (s *HistoryStore) Shutdown(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// migrate applies embedded schema migrations.
func (s *HistoryStore) migrate() error {
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

// RecordComponent implements track.Recorder. A write failure is logged,
// never surfaced: recording must not disturb the lifecycle pass.
func (s *HistoryStore) RecordComponent(ctx context.Context, rec track.ComponentRecord) {
	if s.db == nil {
		return
	}

	query := `
		INSERT INTO component_records (run_id, component, phase, status, duration_ms, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.RunID,
		rec.Component,
		string(rec.Phase),
		rec.Status,
		rec.Duration.Milliseconds(),
		nullable(rec.Error),
		rec.Timestamp.UTC(),
	)
	if err != nil {
		s.log.WithRunID(rec.RunID).WithError(err).Warn("Failed to persist component record")
	}
}

// RecordResolution implements track.Recorder.
func (s *HistoryStore) RecordResolution(ctx context.Context, rec track.ResolutionRecord) {
	if s.db == nil {
		return
	}

	attempted, err := json.Marshal(rec.Attempted)
	if err != nil {
		attempted = []byte("[]")
	}

	query := `
		INSERT INTO resolutions (id, key, path, source, attempted, outcome, duration_ms, error, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Key,
		string(rec.Path),
		nullable(rec.Source),
		string(attempted),
		rec.Outcome,
		rec.Duration.Milliseconds(),
		nullable(rec.Error),
		rec.Timestamp.UTC(),
	)
	if err != nil {
		s.log.WithKey(rec.Key).WithError(err).Warn("Failed to persist resolution record")
	}
}

// SaveRun upserts the run summary derived from orchestrator statistics.
// Called after the initialize pass and again after shutdown.
func (s *HistoryStore) SaveRun(ctx context.Context, stats engine.LifecycleStatistics) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO lifecycle_runs (
			id, started_at, completed_at, init_duration_ms, shutdown_duration_ms,
			total, initialized, failed, shutdown
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			init_duration_ms = excluded.init_duration_ms,
			shutdown_duration_ms = excluded.shutdown_duration_ms,
			total = excluded.total,
			initialized = excluded.initialized,
			failed = excluded.failed,
			shutdown = excluded.shutdown
	`

	var completedAt *time.Time
	if stats.CompletedAt != nil {
		utc := stats.CompletedAt.UTC()
		completedAt = &utc
	}

	_, err := s.db.ExecContext(ctx, query,
		stats.RunID,
		stats.StartedAt.UTC(),
		completedAt,
		stats.InitDuration.Milliseconds(),
		stats.ShutdownDuration.Milliseconds(),
		stats.Summary.Total,
		stats.Summary.Initialized,
		stats.Summary.Failed,
		stats.Summary.Shutdown,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	return nil
}

// GetRun retrieves a run summary by ID.
func (s *HistoryStore) GetRun(ctx context.Context, id string) (*LifecycleRun, error) {
	query := `
		SELECT id, started_at, completed_at, init_duration_ms, shutdown_duration_ms,
		       total, initialized, failed, shutdown, created_at
		FROM lifecycle_runs
		WHERE id = ?
	`

	run := &LifecycleRun{}
	var initMs, shutdownMs int64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.StartedAt,
		&run.CompletedAt,
		&initMs,
		&shutdownMs,
		&run.Total,
		&run.Initialized,
		&run.Failed,
		&run.Shutdown,
		&run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.InitDuration = time.Duration(initMs) * time.Millisecond
	run.ShutdownDuration = time.Duration(shutdownMs) * time.Millisecond
	return run, nil
}

// ListRuns lists run summaries, newest first.
func (s *HistoryStore) ListRuns(ctx context.Context, limit, offset int) ([]*LifecycleRun, error) {
	query := `
		SELECT id, started_at, completed_at, init_duration_ms, shutdown_duration_ms,
		       total, initialized, failed, shutdown, created_at
		FROM lifecycle_runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*LifecycleRun{}
	for rows.Next() {
		run := &LifecycleRun{}
		var initMs, shutdownMs int64
		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.CompletedAt,
			&initMs,
			&shutdownMs,
			&run.Total,
			&run.Initialized,
			&run.Failed,
			&run.Shutdown,
			&run.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.InitDuration = time.Duration(initMs) * time.Millisecond
		run.ShutdownDuration = time.Duration(shutdownMs) * time.Millisecond
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// ListComponentRecords lists the component records of a run in insertion order.
func (s *HistoryStore) ListComponentRecords(ctx context.Context, runID string) ([]*ComponentRow, error) {
	query := `
		SELECT id, run_id, component, phase, status, duration_ms, error, timestamp
		FROM component_records
		WHERE run_id = ?
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list component records: %w", err)
	}
	defer rows.Close()

	records := []*ComponentRow{}
	for rows.Next() {
		rec := &ComponentRow{}
		var durationMs int64
		var errMsg sql.NullString
		err := rows.Scan(
			&rec.ID,
			&rec.RunID,
			&rec.Component,
			&rec.Phase,
			&rec.Status,
			&durationMs,
			&errMsg,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan component record: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Error = errMsg.String
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component records: %w", err)
	}

	return records, nil
}

// ListResolutions lists resolution records, newest first. An empty key
// matches every resolution.
func (s *HistoryStore) ListResolutions(ctx context.Context, key string, limit, offset int) ([]*ResolutionRow, error) {
	query := `
		SELECT id, key, path, source, attempted, outcome, duration_ms, error, timestamp
		FROM resolutions
		WHERE (? = '' OR key = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, key, key, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	records := []*ResolutionRow{}
	for rows.Next() {
		rec := &ResolutionRow{}
		var durationMs int64
		var source, errMsg sql.NullString
		var attempted string
		err := rows.Scan(
			&rec.ID,
			&rec.Key,
			&rec.Path,
			&source,
			&attempted,
			&rec.Outcome,
			&durationMs,
			&errMsg,
			&rec.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		rec.Source = source.String
		rec.Error = errMsg.String
		if err := json.Unmarshal([]byte(attempted), &rec.Attempted); err != nil {
			rec.Attempted = nil
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolutions: %w", err)
	}

	return records, nil
}

// PruneResolutions deletes resolution records older than the cutoff and
// returns how many were removed.
func (s *HistoryStore) PruneResolutions(ctx context.Context, olderThan time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM resolutions WHERE timestamp < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune resolutions: %w", err)
	}
	return result.RowsAffected()
}

// HealthCheck verifies the database connection is healthy.
func (s *HistoryStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// nullable turns an empty string into a SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
