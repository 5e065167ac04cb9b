package worker

import (
	"context"
	"fmt"

	"salesboard/internal/amqp"
	"salesboard/internal/log"
	"salesboard/internal/storage"
)

// HistoryWorker stores dataset.loaded messages in the load history.
type HistoryWorker struct {
	history storage.LoadHistory
	logger  *log.Logger
}

func NewHistoryWorker(history storage.LoadHistory, logger *log.Logger) *HistoryWorker {
	if logger == nil {
		logger = log.Default()
	}
	return &HistoryWorker{history: history, logger: logger.WithComponent(log.ComponentWorker)}
}

// HandleDatasetLoaded records one message. Messages without a load id cannot
// be deduplicated and are skipped rather than retried.
func (w *HistoryWorker) HandleDatasetLoaded(ctx context.Context, msg *amqp.DatasetLoadedMessage) error {
	if msg.LoadID == "" {
		w.logger.WarnContext(ctx, "Skipping dataset loaded message without load id",
			log.FieldDataset, msg.Dataset)
		return nil
	}

	ev := msg.Event()
	if ev.LoadedAt.IsZero() {
		ev.LoadedAt = msg.Timestamp
	}
	if err := w.history.RecordLoad(ctx, ev); err != nil {
		return fmt.Errorf("record load %s: %w", ev.ID, err)
	}

	w.logger.InfoContext(ctx, "Recorded dataset load",
		log.FieldLoadID, ev.ID,
		log.FieldSessionID, ev.SessionID,
		log.FieldDataset, ev.Dataset,
		log.FieldRows, ev.Rows)
	return nil
}
