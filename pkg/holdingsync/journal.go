package holdingsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Journal operations.
const (
	OpRunStarted    = "RUN_STARTED"
	OpRunCompleted  = "RUN_COMPLETED"
	OpRunFailed     = "RUN_FAILED"
	OpHeadersFailed = "HEADERS_FAILED"
	OpRecordSkipped = "RECORD_SKIPPED"
	OpCellFailed    = "CELL_WRITE_FAILED"
	OpFileFailed    = "FILE_FAILED"
	OpFileWritten   = "FILE_WRITTEN"
)

// JournalEntry is one recorded run event kept for human follow-up.
type JournalEntry struct {
	ID        int64   `json:"id"`
	RunID     string  `json:"run_id"`
	Operation string  `json:"operation"`
	File      *string `json:"file"`
	Row       *int64  `json:"row"`
	Column    *string `json:"column"`
	Symbol    *string `json:"symbol"`
	Details   *string `json:"details"`
	CreatedAt *string `json:"created_at"`
}

// Recorder receives journal entries. *Journal implements it.
type Recorder interface {
	Record(ctx context.Context, e JournalEntry) (int64, error)
}

// Journal stores run events in a local sqlite database.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
	path   string
}

// OpenJournal opens (creating if needed) the journal database at path.
func OpenJournal(path string, logger *slog.Logger) (*Journal, error) {
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS run_journal (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			operation TEXT NOT NULL,
			file TEXT,
			row_index INTEGER,
			column_name TEXT,
			symbol TEXT,
			details TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return &Journal{db: db, logger: logger, path: cleanPath}, nil
}

// Close releases database resources.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Path returns the journal database path.
func (j *Journal) Path() string {
	return j.path
}

// Record implements Recorder.
func (j *Journal) Record(ctx context.Context, e JournalEntry) (int64, error) {
	result, err := j.db.ExecContext(ctx, `
		INSERT INTO run_journal (run_id, operation, file, row_index, column_name, symbol, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Operation, e.File, e.Row, e.Column, e.Symbol, e.Details)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Recent returns journal entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit, offset int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, run_id, operation, file, row_index, column_name, symbol, details, created_at FROM run_journal ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var file, column, symbol, details, createdAt sql.NullString
		var row sql.NullInt64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Operation, &file, &row, &column, &symbol, &details, &createdAt); err != nil {
			return nil, err
		}
		if file.Valid {
			e.File = &file.String
		}
		if row.Valid {
			e.Row = &row.Int64
		}
		if column.Valid {
			e.Column = &column.String
		}
		if symbol.Valid {
			e.Symbol = &symbol.String
		}
		if details.Valid {
			e.Details = &details.String
		}
		if createdAt.Valid {
			e.CreatedAt = &createdAt.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int) *int64 {
	v := int64(value)
	return &v
}
