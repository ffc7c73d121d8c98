package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/febos-bridge/internal/infrastructure/database"
)

// Repository defines the catalogue persistence operations.
type Repository interface {
	SyncDiscovery(ctx context.Context, entries []Entry, seen time.Time) error
	List(ctx context.Context) ([]Entry, error)
	ListByInstallation(ctx context.Context, installationID string) ([]Entry, error)
	Get(ctx context.Context, key string) (*Entry, error)
	RecordRun(ctx context.Context, run *Run) error
	LastRun(ctx context.Context) (*Run, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *database.DB
}

// NewSQLiteRepository creates a catalogue on an already-migrated database.
func NewSQLiteRepository(db *database.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const entryColumns = `key, installation_id, device_id, device_name, parent_id, parent_kind,
	code, name, kind, class, unit, state_class, value_type, first_seen, last_seen`

// SyncDiscovery upserts every entry in one transaction. first_seen is kept
// for known keys; everything else is overwritten.
func (r *SQLiteRepository) SyncDiscovery(ctx context.Context, entries []Entry, seen time.Time) error {
	const query = `INSERT INTO resources (` + entryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			installation_id = excluded.installation_id,
			device_id = excluded.device_id,
			device_name = excluded.device_name,
			parent_id = excluded.parent_id,
			parent_kind = excluded.parent_kind,
			code = excluded.code,
			name = excluded.name,
			kind = excluded.kind,
			class = excluded.class,
			unit = excluded.unit,
			state_class = excluded.state_class,
			value_type = excluded.value_type,
			last_seen = excluded.last_seen`

	ts := formatTime(seen)
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("preparing resource upsert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			_, err := stmt.ExecContext(ctx,
				e.Key, e.InstallationID, e.DeviceID, e.DeviceName, e.ParentID, string(e.ParentKind),
				e.Code, e.Name, string(e.Kind), string(e.Class), string(e.Unit), string(e.StateClass),
				string(e.ValueType), ts, ts)
			if err != nil {
				return fmt.Errorf("upserting resource %s: %w", e.Key, err)
			}
		}
		return nil
	})
}

// List returns every catalogued resource ordered by key.
func (r *SQLiteRepository) List(ctx context.Context) ([]Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM resources ORDER BY key`
	return r.queryEntries(ctx, query)
}

// ListByInstallation returns the resources of one installation.
func (r *SQLiteRepository) ListByInstallation(ctx context.Context, installationID string) ([]Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM resources WHERE installation_id = ? ORDER BY key`
	return r.queryEntries(ctx, query, installationID)
}

// Get returns a single resource by identity key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Entry, error) {
	const query = `SELECT ` + entryColumns + ` FROM resources WHERE key = ?`
	e, err := scanEntry(r.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning resource %s: %w", key, err)
	}
	return e, nil
}

// RecordRun stores a discovery run, assigning an ID if it has none.
func (r *SQLiteRepository) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	const query = `INSERT INTO discovery_runs
		(id, started_at, finished_at, installations, devices, resources, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Installations, run.Devices, run.Resources, run.Error)
	if err != nil {
		return fmt.Errorf("inserting discovery run %s: %w", run.ID, err)
	}
	return nil
}

// LastRun returns the most recently started discovery run.
func (r *SQLiteRepository) LastRun(ctx context.Context) (*Run, error) {
	const query = `SELECT id, started_at, finished_at, installations, devices, resources, error
		FROM discovery_runs ORDER BY started_at DESC LIMIT 1`

	var run Run
	var started, finished string
	err := r.db.QueryRowContext(ctx, query).Scan(&run.ID, &started, &finished,
		&run.Installations, &run.Devices, &run.Resources, &run.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("scanning discovery run: %w", err)
	}
	run.StartedAt = parseTime(started)
	run.FinishedAt = parseTime(finished)
	return &run, nil
}

func (r *SQLiteRepository) queryEntries(ctx context.Context, query string, args ...any) ([]Entry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying resources: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resource row: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating resource rows: %w", err)
	}
	return entries, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var firstSeen, lastSeen string

	err := s.Scan(&e.Key, &e.InstallationID, &e.DeviceID, &e.DeviceName, &e.ParentID, &e.ParentKind,
		&e.Code, &e.Name, &e.Kind, &e.Class, &e.Unit, &e.StateClass, &e.ValueType, &firstSeen, &lastSeen)
	if err != nil {
		return nil, err
	}
	e.FirstSeen = parseTime(firstSeen)
	e.LastSeen = parseTime(lastSeen)
	return &e, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses RFC3339 timestamps stored by this package.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
