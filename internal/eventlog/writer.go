package eventlog

import (
	"context"

	"go.uber.org/zap"
)

// Writer is the persistence subscriber: it appends every record it is handed
// to the store, in delivery order.
type Writer struct {
	store  Store
	logger *zap.SugaredLogger
}

// NewWriter creates a Writer for the given store
func NewWriter(store Store, logger *zap.SugaredLogger) *Writer {
	return &Writer{store: store, logger: logger}
}

// Handle appends rec. A failed append is logged and dropped; delivery
// guarantees belong to the transport.
func (w *Writer) Handle(ctx context.Context, rec Record) {
	if err := w.store.Append(ctx, rec); err != nil {
		w.logger.Errorw("Failed to append record", "action", rec.Action, "id", rec.ID, "error", err)
		return
	}
	w.logger.Debugw("Record appended", "action", rec.Action, "id", rec.ID)
}
