package repository

import (
	"context"

	"storefront-api/internal/model"
)

// RowRepository is the backing store whose rows are cached in Redis.
type RowRepository interface {
	// FetchRow returns the row with the given id, or nil if it does not exist.
	FetchRow(ctx context.Context, rowID string) (*model.Row, error)

	// UpsertRow inserts or replaces a row.
	UpsertRow(ctx context.Context, row *model.Row) error

	// GetStats returns statistics about the backing database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}
