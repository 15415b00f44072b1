package eventpublisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/marketplace/internal/domain"
	"github.com/iho/marketplace/internal/usecase"
)

const (
	defaultBatchSize    = 100
	defaultInterval     = 5 * time.Second
	defaultFlushTimeout = 5 * time.Second
)

// Publisher delivers one outbox event to an external system.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Logger     *zerolog.Logger
	// Observe, when set, is called with the outcome of every publish attempt.
	Observe   func(error)
	BatchSize int
	Interval  time.Duration
	// FlushTimeout bounds the last drain after the worker is stopped.
	FlushTimeout time.Duration
}

// EventPublisher relays committed purchase events from the outbox table.
// Delivery is at least once: an event is marked only after its publish succeeded.
type EventPublisher struct {
	outboxRepo   usecase.OutboxRepository
	publisher    Publisher
	logger       zerolog.Logger
	observe      func(error)
	batchSize    int
	interval     time.Duration
	flushTimeout time.Duration
	now          func() time.Time
}

// NewEventPublisher creates a new EventPublisher. Zero config values take defaults.
func NewEventPublisher(cfg Config) *EventPublisher {
	ep := &EventPublisher{
		outboxRepo:   cfg.OutboxRepo,
		publisher:    cfg.Publisher,
		logger:       zerolog.Nop(),
		observe:      cfg.Observe,
		batchSize:    cfg.BatchSize,
		interval:     cfg.Interval,
		flushTimeout: cfg.FlushTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}

	if cfg.Logger != nil {
		ep.logger = *cfg.Logger
	}
	if ep.observe == nil {
		ep.observe = func(error) {}
	}
	if ep.batchSize <= 0 {
		ep.batchSize = defaultBatchSize
	}
	if ep.interval <= 0 {
		ep.interval = defaultInterval
	}
	if ep.flushTimeout <= 0 {
		ep.flushTimeout = defaultFlushTimeout
	}

	return ep
}

// Start drains the outbox every interval until ctx is cancelled, then makes one
// last bounded pass so events committed just before shutdown are not left waiting.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Msg("event publisher started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	for {
		ep.drain(ctx)

		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ep.flushTimeout)
			ep.drain(flushCtx)
			cancel()

			ep.logger.Info().Msg("event publisher stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// drain publishes full batches back to back, stopping at a short batch, a batch
// with failures, or cancellation.
func (ep *EventPublisher) drain(ctx context.Context) {
	for ctx.Err() == nil {
		fetched, failed, err := ep.processBatch(ctx)
		if err != nil {
			ep.logger.Error().Err(err).Msg("failed to read outbox")
			return
		}
		if fetched < ep.batchSize || failed > 0 {
			return
		}
	}
}

// processBatch publishes one batch and reports how many events it fetched and how
// many it could not deliver.
func (ep *EventPublisher) processBatch(ctx context.Context) (fetched, failed int, err error) {
	events, err := ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
	if err != nil {
		return 0, 0, err
	}

	for _, event := range events {
		if ctx.Err() != nil {
			break
		}

		log := ep.logger.With().
			Str("event_id", event.ID).
			Str("event_type", event.EventType).
			Str("aggregate_id", event.AggregateID).
			Logger()

		err := ep.publisher.Publish(ctx, event)
		ep.observe(err)
		if err != nil {
			failed++
			log.Error().Err(err).Msg("failed to publish event")
			continue
		}

		// A failed mark means the event is sent again later.
		if err := ep.outboxRepo.MarkPublished(ctx, event.ID, ep.now()); err != nil {
			failed++
			log.Error().Err(err).Msg("failed to mark event as published")
			continue
		}

		log.Debug().Msg("event published")
	}

	return len(events), failed, nil
}

// LogPublisher writes events to the log. It stands in for a broker in local setups.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event with its payload.
func (p *LogPublisher) Publish(_ context.Context, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("outbox event")

	return nil
}
