// Package history records scan and save events in a SQLite database so the
// CLI can show what was scanned and persisted for each root over time.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/treedump/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Event kinds
const (
	KindScan = "scan"
	KindSave = "save"
)

// Event is one recorded scan or save
type Event struct {
	ID           int64
	Kind         string
	Root         string
	ScanID       string // Empty for saves
	Directories  int
	Files        int    // Files seen by a scan, or records written by a save
	Selected     int
	Stale        int
	Skipped      int
	Warnings     int
	ErrorMessage string // Set when a save failed
	Duration     time.Duration
	Timestamp    time.Time
}

// Store manages the SQLite history database
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a new Store instance and initializes the database
func NewStore(dbPath string) (*Store, error) {
	if dbPath == ":memory:" {
		return openAndInitStore(dbPath)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	return openAndInitStore(dbPath)
}

func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// busy_timeout goes first so the rest wait on locks
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}

		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database location
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordScan stores a scan event built from result
func (s *Store) RecordScan(ctx context.Context, result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("record scan: nil result")
	}

	return s.insert(ctx, &Event{
		Kind:        KindScan,
		Root:        result.Root,
		ScanID:      result.ScanID,
		Directories: result.Directories,
		Files:       result.Files,
		Selected:    len(result.SelectedIDs),
		Stale:       len(result.Stale()),
		Skipped:     len(result.Errors),
		Warnings:    len(result.Warnings),
		Duration:    result.Duration,
	})
}

// RecordSave stores a save event. saveErr is the outcome of the persist, nil on success.
func (s *Store) RecordSave(ctx context.Context, root string, records int, saveErr error) error {
	event := &Event{
		Kind:  KindSave,
		Root:  root,
		Files: records,
	}
	if saveErr != nil {
		event.ErrorMessage = saveErr.Error()
	}
	return s.insert(ctx, event)
}

func (s *Store) insert(ctx context.Context, e *Event) error {
	query := `INSERT INTO events
		(kind, root, scan_id, directories, files, selected, stale, skipped, warnings, error_message, duration_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var scanID, errMsg sql.NullString
	if e.ScanID != "" {
		scanID = sql.NullString{String: e.ScanID, Valid: true}
	}
	if e.ErrorMessage != "" {
		errMsg = sql.NullString{String: e.ErrorMessage, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, query,
		e.Kind, e.Root, scanID,
		e.Directories, e.Files, e.Selected, e.Stale, e.Skipped, e.Warnings,
		errMsg, e.Duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", e.Kind, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// Recent returns up to limit events, most recent first. An empty root returns
// events for every root; limit <= 0 means no limit.
func (s *Store) Recent(ctx context.Context, root string, limit int) ([]*Event, error) {
	query := `SELECT id, kind, root, scan_id, directories, files, selected, stale, skipped, warnings, error_message, duration_ms, timestamp
		FROM events`
	var args []interface{}
	if root != "" {
		query += ` WHERE root = ?`
		args = append(args, root)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]*Event, 0)
	for rows.Next() {
		e := &Event{}
		var scanID, errMsg sql.NullString
		var warnings sql.NullInt64
		var durationMs int64
		err := rows.Scan(
			&e.ID,
			&e.Kind,
			&e.Root,
			&scanID,
			&e.Directories,
			&e.Files,
			&e.Selected,
			&e.Stale,
			&e.Skipped,
			&warnings,
			&errMsg,
			&durationMs,
			&e.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		if scanID.Valid {
			e.ScanID = scanID.String
		}
		if warnings.Valid {
			e.Warnings = int(warnings.Int64)
		}
		if errMsg.Valid {
			e.ErrorMessage = errMsg.String
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond

		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

// Prune removes events older than keepDays and returns how many were deleted.
// keepDays <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)

	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return deleted, nil
}
