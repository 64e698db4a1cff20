// Package history is the upload ledger: one row per pasted image that
// reached a terminal state, stored in SQLite.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Status is the terminal state of an ingestion.
type Status string

// Terminal states.
const (
	StatusInserted Status = "inserted"
	StatusFailed   Status = "failed"
)

// Record is one ledger row.
type Record struct {
	ID           int64     `json:"id"`
	RemoteName   string    `json:"remote_name,omitempty"`
	OriginalName string    `json:"original_name"`
	MIMEType     string    `json:"mime_type,omitempty"`
	Size         int64     `json:"size"`
	Link         string    `json:"link,omitempty"`
	Attempts     int       `json:"attempts"`
	Status       Status    `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// dirPerms is used when the ledger's directory does not exist yet.
const dirPerms = 0o700

// ErrNotFound is returned by Lookup when no row matches.
var ErrNotFound = errors.New("history: record not found")

const (
	sqlInsert = `INSERT INTO uploads
		(remote_name, original_name, mime_type, size, link, attempts, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlSelect = `SELECT id, remote_name, original_name, mime_type, size, link,
		attempts, status, error, created_at FROM uploads`

	sqlList = sqlSelect + ` ORDER BY created_at DESC, id DESC LIMIT ?`

	sqlLookup = sqlSelect + ` WHERE remote_name = ? ORDER BY id DESC LIMIT 1`
)

// Store is the SQLite-backed ledger.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if needed) the ledger at dbPath and applies pending
// migrations. Use ":memory:" for a throwaway ledger.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := dbPath
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), dirPerms); err != nil {
			return nil, fmt.Errorf("history: creating directory for %s: %w", dbPath, err)
		}

		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: opening database %s: %w", dbPath, err)
	}

	// Sole writer; also keeps a :memory: database on one connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history ledger opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("history: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("history: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("history: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Info("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends rec. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, rec Record) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.nowFunc()
	}

	res, err := s.db.ExecContext(ctx, sqlInsert,
		rec.RemoteName, rec.OriginalName, rec.MIMEType, rec.Size, rec.Link,
		rec.Attempts, string(rec.Status), rec.Error, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("history: recording %q: %w", rec.OriginalName, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: reading row id: %w", err)
	}

	return id, nil
}

// List returns up to limit records, newest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, sqlList, limit)
	if err != nil {
		return nil, fmt.Errorf("history: listing uploads: %w", err)
	}
	defer rows.Close()

	var out []Record

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterating uploads: %w", err)
	}

	return out, nil
}

// Lookup returns the latest record for remoteName.
func (s *Store) Lookup(ctx context.Context, remoteName string) (Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, sqlLookup, remoteName))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("history: %q: %w", remoteName, ErrNotFound)
	}

	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec     Record
		status  string
		created int64
	)

	err := row.Scan(&rec.ID, &rec.RemoteName, &rec.OriginalName, &rec.MIMEType, &rec.Size,
		&rec.Link, &rec.Attempts, &status, &rec.Error, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, err
	}

	if err != nil {
		return Record{}, fmt.Errorf("history: scanning upload row: %w", err)
	}

	rec.Status = Status(status)
	rec.CreatedAt = time.Unix(0, created).UTC()

	return rec, nil
}
