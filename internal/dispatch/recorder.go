package dispatch

import (
	"context"
	"log/slog"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// Recorder appends bid records to persistent history. It only ever sees
// successful submissions; a write failure is logged but never undoes the bid
// that was already placed.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a recorder around store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Record persists one bid record.
func (r *Recorder) Record(ctx context.Context, record *domain.BidRecord) {
	if err := r.store.InsertBidRecord(ctx, record); err != nil {
		r.logger.Error("Failed to persist bid record",
			slog.String("record_id", record.RecordID),
			slog.Int64("user_id", record.UserID),
			slog.Int64("posting_id", record.PostingID),
			slog.Any("error", err),
		)
		return
	}

	r.logger.Debug("Bid record persisted",
		slog.String("record_id", record.RecordID),
		slog.Int64("user_id", record.UserID),
		slog.Int64("posting_id", record.PostingID),
	)
}
