package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"salesboard/internal/core"
	"salesboard/internal/loader"
	"salesboard/internal/log"
	"salesboard/internal/metrics"
	"salesboard/internal/storage"
)

// EventPublisher announces successful loads.
type EventPublisher interface {
	PublishDatasetLoaded(ctx context.Context, ev core.LoadEvent) error
	Close() error
}

// LoadService decodes uploads and reports every load to the history store
// and the message broker. Both sinks are optional.
type LoadService struct {
	history   storage.LoadHistory
	publisher EventPublisher
	metrics   *metrics.DashboardMetrics
	logger    *log.Logger
	newID     func() string
}

func NewLoadService(history storage.LoadHistory, publisher EventPublisher, m *metrics.DashboardMetrics, logger *log.Logger) *LoadService {
	if logger == nil {
		logger = log.Default()
	}
	return &LoadService{
		history:   history,
		publisher: publisher,
		metrics:   m,
		logger:    logger.WithComponent(log.ComponentLoader),
		newID:     uuid.NewString,
	}
}

// Upload decodes a user file for the session. On success the load is
// recorded; on failure the error is counted and returned unchanged.
func (s *LoadService) Upload(ctx context.Context, sessionID, name string, r io.Reader) (*core.Dataset, error) {
	ds, err := loader.Load(name, r)
	if err != nil {
		s.Failed(ctx, name, err)
		return nil, err
	}
	s.Loaded(ctx, sessionID, core.OriginUpload, ds)
	return ds, nil
}

// Loaded reports a successful load. Sink failures are logged, never returned:
// the dataset is usable whether or not it could be recorded.
func (s *LoadService) Loaded(ctx context.Context, sessionID, origin string, ds *core.Dataset) core.LoadEvent {
	ev := core.NewLoadEvent(s.newID(), sessionID, origin, ds)
	s.metrics.IncLoad(ev.Format, origin)

	s.logger.InfoContext(ctx, "Dataset loaded", log.NewFields().
		WithOperation(log.OpLoad).
		WithDataset(ev.Dataset, string(ev.Format), ev.Rows, ev.UndatedRows).
		With(log.FieldSessionID, sessionID).
		With(log.FieldSource, origin).
		With(log.FieldMissing, ev.MissingColumns).
		ToSlice()...)

	if s.history != nil {
		if err := s.history.RecordLoad(ctx, ev); err != nil {
			s.logger.LogError(ctx, "Failed to record dataset load", err, log.OpRecord,
				log.NewFields().With(log.FieldLoadID, ev.ID))
		}
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP client not available, skipping load event")
		return ev
	}
	if err := s.publisher.PublishDatasetLoaded(ctx, ev); err != nil {
		s.logger.LogError(ctx, "Failed to publish load event", err, log.OpPublish,
			log.NewFields().With(log.FieldLoadID, ev.ID))
	}
	return ev
}

// Failed counts and logs a load that did not produce a dataset.
func (s *LoadService) Failed(ctx context.Context, name string, err error) {
	s.metrics.IncLoadFailure(err)
	s.logger.WarnContext(ctx, "Dataset load failed",
		log.FieldDataset, name,
		"reason", metrics.FailureReason(err),
		log.FieldError, err.Error())
}

// History lists recent loads. Without a history store it returns nothing.
func (s *LoadService) History(ctx context.Context, limit int) ([]core.LoadEvent, error) {
	if s.history == nil {
		return nil, nil
	}
	events, err := s.history.RecentLoads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list loads: %w", err)
	}
	return events, nil
}

// HistoryEnabled reports whether loads are being recorded.
func (s *LoadService) HistoryEnabled() bool {
	return s.history != nil
}

// Ping checks the history store when it supports it.
func (s *LoadService) Ping(ctx context.Context) error {
	if p, ok := s.history.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the history store and the publisher.
func (s *LoadService) Close() error {
	var errs []error

	if c, ok := s.history.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close load service: %w", errors.Join(errs...))
	}
	return nil
}
