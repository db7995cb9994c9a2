package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteRowRepository implements RowRepository using SQLite.
type SQLiteRowRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteRowRepository opens (and creates if needed) the database at dbPath.
func NewSQLiteRowRepository(dbPath string) (*SQLiteRowRepository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteRowRepository{db: db}, nil
}

func createSQLiteTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS backing_rows (
		row_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_backing_rows_updated_at ON backing_rows(updated_at);
	`
	_, err := db.Exec(query)
	return err
}

// FetchRow returns the row with the given id.
func (r *SQLiteRowRepository) FetchRow(ctx context.Context, rowID string) (*model.Row, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var row model.Row
	var updated int64
	err := r.db.QueryRowContext(ctx, `SELECT row_id, data, updated_at FROM backing_rows WHERE row_id = ?`, rowID).
		Scan(&row.ID, &row.Data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch row: %w", err)
	}
	row.UpdatedAt = time.Unix(updated, 0)
	return &row, nil
}

// UpsertRow inserts or replaces a row.
func (r *SQLiteRowRepository) UpsertRow(ctx context.Context, row *model.Row) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO backing_rows (row_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(row_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, row.ID, row.Data, row.UpdatedAt.Unix()); err != nil {
		return fmt.Errorf("failed to upsert row: %w", err)
	}
	return nil
}

// GetStats returns statistics about the database.
func (r *SQLiteRowRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM backing_rows").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_rows"] = count

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteRowRepository) Close() error {
	return r.db.Close()
}

var _ RowRepository = (*SQLiteRowRepository)(nil)
