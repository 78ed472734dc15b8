// Package sqlite archives pipeline reports in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/zulfahadiyan/Zonasi-Gempa-K-means/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrRunNotFound is returned when no archived run matches.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is an archived run without its cells.
type RunSummary struct {
	RunID        string
	GeneratedAt  time.Time
	Source       string
	Stats        domain.FilterStats
	Centroids    []float64
	UsedFallback bool
}

// Store archives reports. It implements pipeline.Presenter.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies pending migrations.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection also keeps PRAGMAs in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrateUp(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: closing it would close the shared *sql.DB.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Present stores the report and all its cells in one transaction.
func (s *Store) Present(ctx context.Context, report domain.Report) error {
	centroids, err := json.Marshal(report.Centroids)
	if err != nil {
		return fmt.Errorf("encode centroids: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, generated_at, source, records_read, incomplete, below_magnitude, events_kept, used_fallback, centroids)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		report.Source,
		report.Stats.Read,
		report.Stats.Incomplete,
		report.Stats.BelowMagnitude,
		report.Stats.Kept,
		report.UsedFallback,
		string(centroids),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", report.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cells (run_id, lat_group, lon_group, max_magnitude, mean_depth, event_count, cluster_id, depth_category, color, marker_radius)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare cell insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, c := range report.Cells {
		if _, err := stmt.ExecContext(ctx,
			report.RunID, c.LatGroup, c.LonGroup, c.MaxMagnitude, c.MeanDepth, c.EventCount,
			c.ClusterID, string(c.DepthCategory), string(c.Color), c.MarkerRadius,
		); err != nil {
			return fmt.Errorf("insert cell %s: %w", c.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", report.RunID, err)
	}
	s.logger.Info("run archived", "run_id", report.RunID, "cells", len(report.Cells))
	return nil
}

// LatestRun returns the most recently generated run.
func (s *Store) LatestRun(ctx context.Context) (RunSummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, generated_at, source, records_read, incomplete, below_magnitude, events_kept, used_fallback, centroids
		FROM runs ORDER BY generated_at DESC, rowid DESC LIMIT 1`)

	var (
		r           RunSummary
		generatedAt string
		centroids   string
	)
	err := row.Scan(&r.RunID, &generatedAt, &r.Source, &r.Stats.Read, &r.Stats.Incomplete,
		&r.Stats.BelowMagnitude, &r.Stats.Kept, &r.UsedFallback, &centroids)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, ErrRunNotFound
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("query latest run: %w", err)
	}

	if r.GeneratedAt, err = time.Parse(time.RFC3339Nano, generatedAt); err != nil {
		return RunSummary{}, fmt.Errorf("parse generated_at: %w", err)
	}
	if err := json.Unmarshal([]byte(centroids), &r.Centroids); err != nil {
		return RunSummary{}, fmt.Errorf("decode centroids: %w", err)
	}
	return r, nil
}

// CellsForRun returns the archived cells of a run ordered by (lat_group, lon_group).
func (s *Store) CellsForRun(ctx context.Context, runID string) ([]domain.AnnotatedCell, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lat_group, lon_group, max_magnitude, mean_depth, event_count, cluster_id, depth_category, color, marker_radius
		FROM cells WHERE run_id = ? ORDER BY lat_group, lon_group`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cells []domain.AnnotatedCell
	for rows.Next() {
		var (
			c        domain.AnnotatedCell
			category string
			color    string
		)
		if err := rows.Scan(&c.LatGroup, &c.LonGroup, &c.MaxMagnitude, &c.MeanDepth, &c.EventCount,
			&c.ClusterID, &category, &color, &c.MarkerRadius); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}
		c.DepthCategory = domain.DepthCategory(category)
		c.Color = domain.MarkerColor(color)
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cells: %w", err)
	}
	if len(cells) == 0 {
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("query run: %w", err)
		}
		if exists == 0 {
			return nil, ErrRunNotFound
		}
	}
	return cells, nil
}
