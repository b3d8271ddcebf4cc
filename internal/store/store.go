// Package store keeps a ledger of solve attempts.
package store

import (
	"context"

	"github.com/xkilldash9x/slidejig/api/schemas"
)

// Recorder persists attempt records and reads them back newest first.
type Recorder interface {
	Record(ctx context.Context, rec schemas.AttemptRecord) error
	Recent(ctx context.Context, limit int) ([]schemas.AttemptRecord, error)
	Close() error
}

// NopRecorder discards everything. It is used when no store is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, schemas.AttemptRecord) error { return nil }
func (NopRecorder) Recent(context.Context, int) ([]schemas.AttemptRecord, error) {
	return nil, nil
}
func (NopRecorder) Close() error { return nil }
