// Package storage provides SQLite-backed persistence for detector states and
// alert history.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sunwalkerwalker-lgtm/crude-master-bot1/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db        *sql.DB
	maxAlerts int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/crude-master/data.db.
func New(maxAlerts int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "crude-master", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxAlerts: maxAlerts}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS detector_state (
			key              TEXT PRIMARY KEY,
			last_fired_at    INTEGER NOT NULL DEFAULT 0,
			bucket           TEXT NOT NULL DEFAULT 'neutral',
			last_value       REAL NOT NULL DEFAULT 0,
			active_level     REAL NOT NULL DEFAULT 0,
			active_opened_at INTEGER NOT NULL DEFAULT 0,
			watermark        INTEGER NOT NULL DEFAULT 0,
			last_fired_date  TEXT NOT NULL DEFAULT '',
			phase            TEXT NOT NULL DEFAULT 'idle',
			next_wake_at     INTEGER NOT NULL DEFAULT 0,
			snapshot_price   REAL NOT NULL DEFAULT 0,
			updated_at       INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			severity   TEXT NOT NULL,
			message    TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveState upserts a detector state record.
func (s *Storage) SaveState(state *models.DetectorState) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO detector_state
			(key, last_fired_at, bucket, last_value, active_level, active_opened_at,
			 watermark, last_fired_date, phase, next_wake_at, snapshot_price, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		state.Key, nanoOrZero(state.LastFiredAt), state.Bucket, state.LastValue,
		state.ActiveLevel, nanoOrZero(state.ActiveOpenedAt),
		nanoOrZero(state.Watermark), state.LastFiredDate,
		state.Phase, nanoOrZero(state.NextWakeAt), state.SnapshotPrice,
		nanoOrZero(state.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save state %s: %w", state.Key, err)
	}
	return nil
}

// LoadAllStates loads every persisted detector state keyed by detector key.
func (s *Storage) LoadAllStates() (map[string]*models.DetectorState, error) {
	rows, err := s.db.Query(`
		SELECT key, last_fired_at, bucket, last_value, active_level, active_opened_at,
		       watermark, last_fired_date, phase, next_wake_at, snapshot_price, updated_at
		FROM detector_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to query states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]*models.DetectorState)
	for rows.Next() {
		var st models.DetectorState
		var lastFired, activeOpened, watermark, nextWake, updated int64

		err := rows.Scan(
			&st.Key, &lastFired, &st.Bucket, &st.LastValue, &st.ActiveLevel, &activeOpened,
			&watermark, &st.LastFiredDate, &st.Phase, &nextWake, &st.SnapshotPrice,
			&updated,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan state: %w", err)
		}

		st.LastFiredAt = timeOrZero(lastFired)
		st.ActiveOpenedAt = timeOrZero(activeOpened)
		st.Watermark = timeOrZero(watermark)
		st.NextWakeAt = timeOrZero(nextWake)
		st.UpdatedAt = timeOrZero(updated)
		states[st.Key] = &st
	}

	return states, rows.Err()
}

// AddAlert records a dispatched alert and trims history to maxAlerts.
func (s *Storage) AddAlert(alert *models.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}
	id := alert.ID
	if id == "" {
		id = uuid.New().String()
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO alerts (id, kind, severity, message, created_at)
		VALUES (?,?,?,?,?)`,
		id, alert.Kind, string(alert.Severity), alert.Message, alert.Time.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	if _, err = tx.Exec(`
		DELETE FROM alerts WHERE id NOT IN (
			SELECT id FROM alerts ORDER BY created_at DESC LIMIT ?
		)`, s.maxAlerts); err != nil {
		return fmt.Errorf("failed to enforce alert cap: %w", err)
	}

	return tx.Commit()
}

// RecentAlerts returns up to k most recent alerts, newest first.
func (s *Storage) RecentAlerts(k int) ([]models.Alert, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, severity, message, created_at
		FROM alerts ORDER BY created_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var severity string
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.Kind, &severity, &a.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Severity = models.Severity(severity)
		a.Time = time.Unix(0, createdAt)
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}

func nanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func timeOrZero(nano int64) time.Time {
	if nano == 0 {
		return time.Time{}
	}
	return time.Unix(0, nano)
}
