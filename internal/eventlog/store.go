package eventlog

import "context"

// Store is a durable, append-only, ordered log of records
type Store interface {
	Append(ctx context.Context, rec Record) error
	// Records returns every record in append order
	Records(ctx context.Context) ([]Record, error)
	// Reset drops every record
	Reset(ctx context.Context) error
	Close() error
}
