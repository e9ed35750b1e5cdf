package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/shiftpages/funneltrace/internal/model"
)

// dbFileName is the SQLite database file name inside the data directory.
const dbFileName = "funneltrace.db"

// ErrEventNotFound is returned when a record identifier does not exist.
var ErrEventNotFound = errors.New("event not found")

// EventDB provides SQLite-based storage for tracking events.
// It manages connection pooling and CRUD operations for event records.
type EventDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures EventDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// read performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an EventDB in the specified directory.
// When CreateIfNotExists is false and the database does not exist, an
// error is returned instead of silently creating an empty store, so a
// wrong data directory fails loudly.
func Open(dbDir string, opts Options) (*EventDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite: mode=rw prevents creating new files, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports a single writer; extra connections only help reads.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	edb := &EventDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := edb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return edb, nil
}

// Close closes the database connection.
func (edb *EventDB) Close() error {
	return edb.db.Close()
}

// Path returns the path to the SQLite database file.
func (edb *EventDB) Path() string {
	return edb.dbPath
}

// createTables creates the database schema if it doesn't exist.
// Commonly filtered fields are promoted to indexed columns; the full
// event rides along as a JSON payload.
func (edb *EventDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		received_at DATETIME NOT NULL,
		event TEXT NOT NULL CHECK (event IN ('page_visit','page_exit','button_click','registration')),
		page TEXT,
		visitor_id TEXT,
		session_id TEXT,
		hook_variant TEXT,
		payload TEXT NOT NULL CHECK (json_valid(payload))
	);

	CREATE INDEX IF NOT EXISTS idx_events_received ON events(received_at);
	CREATE INDEX IF NOT EXISTS idx_events_event ON events(event);
	CREATE INDEX IF NOT EXISTS idx_events_visitor ON events(visitor_id);
	CREATE INDEX IF NOT EXISTS idx_events_variant ON events(hook_variant);
	`

	if _, err := edb.db.ExecContext(context.Background(), schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// InsertEvent validates and stores an event, assigning the record
// identifier and storage timestamp server-side. The event's own
// Timestamp field is replaced by the assigned time, matching
// document-store semantics.
func (edb *EventDB) InsertEvent(ctx context.Context, event *model.TrackingEvent) (string, error) {
	if err := event.Validate(); err != nil {
		return "", fmt.Errorf("invalid event: %w", err)
	}

	id := uuid.NewString()
	receivedAt := time.Now().UTC()
	event.Timestamp = receivedAt

	payload, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = edb.db.ExecContext(ctx,
		`INSERT INTO events (id, received_at, event, page, visitor_id, session_id, hook_variant, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, json(?))`,
		id, receivedAt, string(event.Event), event.Page,
		event.VisitorID, event.SessionID, event.HookVariant, string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}

	return id, nil
}

// GetEvent returns one stored event by record identifier.
func (edb *EventDB) GetEvent(ctx context.Context, id string) (*model.StoredEvent, error) {
	row := edb.db.QueryRowContext(ctx,
		`SELECT id, received_at, payload FROM events WHERE id = ?`, id)

	stored, err := scanStoredEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	return stored, nil
}

// DeleteEvent removes one stored event by record identifier.
func (edb *EventDB) DeleteEvent(ctx context.Context, id string) error {
	res, err := edb.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return nil
}

// ListEvents returns stored events ordered oldest-first. A limit of
// zero returns all events.
func (edb *EventDB) ListEvents(ctx context.Context, limit int) ([]model.StoredEvent, error) {
	query := `SELECT id, received_at, payload FROM events ORDER BY received_at, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := edb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []model.StoredEvent
	for rows.Next() {
		stored, err := scanStoredEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to read event row: %w", err)
		}
		events = append(events, *stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return events, nil
}

// CountEvents returns the number of stored events.
func (edb *EventDB) CountEvents(ctx context.Context) (int, error) {
	var count int
	if err := edb.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// scanStoredEvent reads one (id, received_at, payload) row.
func scanStoredEvent(scan func(...any) error) (*model.StoredEvent, error) {
	var (
		stored  model.StoredEvent
		payload string
	)
	if err := scan(&stored.ID, &stored.ReceivedAt, &payload); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &stored.Event); err != nil {
		return nil, fmt.Errorf("corrupt event payload: %w", err)
	}
	return &stored, nil
}
