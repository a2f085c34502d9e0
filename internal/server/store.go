package server

import (
	"context"

	"tinydoc/internal/record"
)

// Store is the record store a collection's routes are served from.
type Store interface {
	Schema() record.Schema
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id int64) (record.Record, error)
	Create(ctx context.Context, f record.Fields) (record.Record, error)
	Update(ctx context.Context, id int64, f record.Fields) (record.Record, error)
	Delete(ctx context.Context, id int64) error
}

var _ Store = (*record.Store)(nil)
