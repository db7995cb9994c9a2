package model

import (
	"strconv"
	"time"
)

// Row is a record of the backing database whose snapshot is cached in Redis.
type Row struct {
	ID        string    `json:"id" bson:"row_id"`
	Data      string    `json:"data" bson:"data"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Fields flattens the row into a field mapping suitable for serialization.
func (r *Row) Fields() map[string]string {
	return map[string]string{
		"id":         r.ID,
		"data":       r.Data,
		"updated_at": strconv.FormatInt(r.UpdatedAt.Unix(), 10),
	}
}

// RowSnapshot is the payload stored under a row's cache key.
type RowSnapshot struct {
	Fields map[string]string `json:"fields"`
	Cached float64           `json:"cached"` // unix seconds when the snapshot was taken
}
