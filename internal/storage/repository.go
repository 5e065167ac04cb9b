package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"salesboard/internal/core"

	_ "modernc.org/sqlite"
)

// DefaultHistoryLimit caps RecentLoads when no limit is given.
const DefaultHistoryLimit = 20

// Fixed width so loaded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// LoadHistory records dataset loads.
type LoadHistory interface {
	RecordLoad(ctx context.Context, ev core.LoadEvent) error
	RecentLoads(ctx context.Context, limit int) ([]core.LoadEvent, error)
}

type SQLiteRepository struct {
	db *sql.DB
}

var _ LoadHistory = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between concurrent uploads.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const insertLoad = `
INSERT INTO dataset_loads
    (load_id, session_id, origin, dataset_name, format, row_count, undated_count, missing_columns, loaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(load_id) DO NOTHING`

// RecordLoad stores one load. Recording the same load id twice is a no-op.
func (r *SQLiteRepository) RecordLoad(ctx context.Context, ev core.LoadEvent) error {
	_, err := r.db.ExecContext(ctx, insertLoad,
		ev.ID,
		ev.SessionID,
		ev.Origin,
		ev.Dataset,
		string(ev.Format),
		ev.Rows,
		ev.UndatedRows,
		strings.Join(ev.MissingColumns, ","),
		ev.LoadedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert dataset load: %w", err)
	}
	return nil
}

const selectRecent = `
SELECT load_id, session_id, origin, dataset_name, format, row_count, undated_count, missing_columns, loaded_at
FROM dataset_loads
ORDER BY loaded_at DESC, id DESC
LIMIT ?`

// RecentLoads returns the latest loads, newest first.
func (r *SQLiteRepository) RecentLoads(ctx context.Context, limit int) ([]core.LoadEvent, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.db.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query dataset loads: %w", err)
	}
	defer rows.Close()

	var out []core.LoadEvent
	for rows.Next() {
		var (
			ev       core.LoadEvent
			format   string
			missing  string
			loadedAt string
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Origin, &ev.Dataset, &format,
			&ev.Rows, &ev.UndatedRows, &missing, &loadedAt); err != nil {
			return nil, fmt.Errorf("scan dataset load: %w", err)
		}
		ev.Format = core.Format(format)
		if missing != "" {
			ev.MissingColumns = strings.Split(missing, ",")
		}
		ev.LoadedAt, err = time.Parse(timeLayout, loadedAt)
		if err != nil {
			return nil, fmt.Errorf("parse loaded_at %q: %w", loadedAt, err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
