package worker

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesboard/internal/amqp"
	"salesboard/internal/core"
	"salesboard/internal/log"
	"salesboard/internal/storage"
)

func newWorker(t *testing.T) (*HistoryWorker, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return NewHistoryWorker(repo, log.New(log.Config{Output: io.Discard})), repo
}

func TestHistoryWorker_RecordsOnce(t *testing.T) {
	w, repo := newWorker(t)
	ctx := context.Background()
	msg := amqp.NewDatasetLoadedMessage(core.LoadEvent{
		ID:        "load-9",
		SessionID: "sess",
		Origin:    core.OriginUpload,
		Dataset:   "q3.xlsx",
		Format:    core.FormatXLSX,
		Rows:      120,
		LoadedAt:  time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC),
	})

	require.NoError(t, w.HandleDatasetLoaded(ctx, msg))
	// Redelivery after a lost ack.
	require.NoError(t, w.HandleDatasetLoaded(ctx, msg))

	loads, err := repo.RecentLoads(ctx, 0)
	require.NoError(t, err)
	require.Len(t, loads, 1)
	assert.Equal(t, "q3.xlsx", loads[0].Dataset)
	assert.Equal(t, 120, loads[0].Rows)
}

func TestHistoryWorker_SkipsMessagesWithoutID(t *testing.T) {
	w, repo := newWorker(t)
	ctx := context.Background()

	require.NoError(t, w.HandleDatasetLoaded(ctx, &amqp.DatasetLoadedMessage{Dataset: "x.csv"}))

	loads, err := repo.RecentLoads(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, loads)
}

func TestHistoryWorker_StorageErrorIsReturned(t *testing.T) {
	w, _ := newWorker(t)
	msg := &amqp.DatasetLoadedMessage{LoadID: "bad", Origin: "cron", Timestamp: time.Now()}
	err := w.HandleDatasetLoaded(context.Background(), msg)
	assert.ErrorContains(t, err, "record load bad")
}
