// Package recorder is the optional track-history sidecar (§13): it
// watches the tracker's lifecycle output and appends every state
// transition to a local SQLite database for offline debugging of
// track stability. It never sits in the A-E hot path and the
// orchestrator can run without one.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/EdgeFirstAI/radarpub/internal/radarnode/model"
	"github.com/EdgeFirstAI/radarpub/internal/radarnode/rlog"
)

// DefaultMigrationsDir is where Recorder looks for its schema
// migrations relative to the process's working directory.
const DefaultMigrationsDir = "internal/radarnode/recorder/migrations"

// Recorder persists track lifecycle transitions to SQLite, migrated
// with golang-migrate the same way the teacher's internal/db package
// bootstraps its schema.
type Recorder struct {
	db *sql.DB

	mu        sync.Mutex
	lastState map[model.TrackID]model.TrackState
}

// Open opens (creating if necessary) the SQLite database at path and
// brings its schema up to date using the migrations in migrationsDir.
func Open(path, migrationsDir string) (*Recorder, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}

	r := &Recorder{db: db, lastState: make(map[model.TrackID]model.TrackState)}
	if err := r.migrateUp(migrationsDir); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) migrateUp(migrationsDir string) error {
	absPath, err := filepath.Abs(migrationsDir)
	if err != nil {
		return fmt.Errorf("recorder: migrations path: %w", err)
	}

	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("recorder: sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", absPath), "sqlite", driver)
	if err != nil {
		return fmt.Errorf("recorder: migrate instance: %w", err)
	}
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("recorder: migrate up: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) { rlog.Debugf("[migrate] "+format, v...) }
func (migrateLogger) Verbose() bool                          { return false }

// Close releases the underlying database handle.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// RecordSnapshots inserts one row per snapshot whose lifecycle state
// has changed since the last call (including the first time a track
// is seen at all), implementing the pipeline.TrackRecorder
// contract. Snapshots whose state is unchanged from last frame are
// not re-recorded, so the table holds transitions, not every frame.
func (r *Recorder) RecordSnapshots(snapshots []model.TrackSnapshot, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for _, s := range snapshots {
		prev, seen := r.lastState[s.ID]
		if seen && prev == s.State {
			continue
		}
		r.lastState[s.ID] = s.State

		if s.State == model.TrackRemoved {
			delete(r.lastState, s.ID)
		}

		_, err := r.db.Exec(
			`INSERT INTO track_events (track_id, state, cx, cy, hits, observed_at) VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID.String(), s.State.String(), float64(s.CX), float64(s.CY), s.Hits, at.UTC(),
		)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("recorder: insert track event: %w", err)
		}
	}
	return firstErr
}
