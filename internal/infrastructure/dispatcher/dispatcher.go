package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/finbooks/journal/internal/domain"
	"github.com/finbooks/journal/internal/infrastructure/metrics"
	"github.com/finbooks/journal/internal/usecase"
)

// Transport delivers event envelopes to the message bus. A nil error is
// an ack; anything else is a nack and the event is retried with backoff.
type Transport interface {
	Publish(ctx context.Context, topic string, envelope domain.EventEnvelope) error
}

// Dispatcher drains the outbox and publishes events to the transport.
// Delivery is at-least-once: consumers de-duplicate by event id.
type Dispatcher struct {
	outboxRepo  usecase.OutboxRepository
	journalRepo usecase.JournalRepository
	transport   Transport
	registry    *Registry
	logger      zerolog.Logger
	metrics     *metrics.Metrics
	topic       string
	batchSize   int
	interval    time.Duration
	maxAttempts int
}

// Config for Dispatcher.
type Config struct {
	OutboxRepo  usecase.OutboxRepository
	JournalRepo usecase.JournalRepository
	Transport   Transport
	Registry    *Registry
	Logger      zerolog.Logger
	Metrics     *metrics.Metrics
	Topic       string
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
}

// New creates a new Dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = usecase.DefaultMaxDispatchAttempts
	}
	if cfg.Topic == "" {
		cfg.Topic = "ledger.journal"
	}
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry(cfg.Logger)
	}

	return &Dispatcher{
		outboxRepo:  cfg.OutboxRepo,
		journalRepo: cfg.JournalRepo,
		transport:   cfg.Transport,
		registry:    cfg.Registry,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		topic:       cfg.Topic,
		batchSize:   cfg.BatchSize,
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
	}
}

// Start runs the dispatch loop until the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info().
		Int("batch_size", d.batchSize).
		Dur("interval", d.interval).
		Msg("outbox dispatcher started")

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	// Process immediately on start
	if err := d.ProcessOnce(ctx); err != nil {
		d.logger.Error().Err(err).Msg("dispatch cycle failed on start")
	}

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().Msg("outbox dispatcher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := d.ProcessOnce(ctx); err != nil {
				d.logger.Error().Err(err).Msg("dispatch cycle failed")
			}
		}
	}
}

// ProcessOnce drains and dispatches a single batch of eligible events.
func (d *Dispatcher) ProcessOnce(ctx context.Context) error {
	start := time.Now()

	events, err := d.outboxRepo.Drain(ctx, d.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	d.logger.Debug().Int("count", len(events)).Msg("dispatching events")

	for _, event := range events {
		d.dispatchEvent(ctx, event)
	}

	if d.metrics != nil {
		d.metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}

	return nil
}

func (d *Dispatcher) dispatchEvent(ctx context.Context, event *domain.OutboxEvent) {
	stale, reason, err := d.isStale(ctx, event)
	if err != nil {
		// The entry could not be read, which says nothing about the
		// event itself. Leave it eligible and let the next cycle retry.
		d.logger.Warn().
			Err(err).
			Str("event_id", event.ID).
			Str("entity_id", event.EntityID).
			Msg("staleness check failed, deferring event")
		return
	}
	if stale {
		if err := d.outboxRepo.MarkDropped(ctx, event.ID, reason); err != nil {
			d.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to mark event dropped")
			return
		}

		d.logger.Info().
			Str("event_id", event.ID).
			Str("action", event.Action).
			Str("reason", reason).
			Msg("stale event dropped")

		if d.metrics != nil {
			d.metrics.EventsDropped.Inc()
		}
		return
	}

	if err := d.transport.Publish(ctx, d.topic, event.Envelope()); err != nil {
		d.logger.Warn().
			Err(err).
			Str("event_id", event.ID).
			Int("attempts", event.Attempts+1).
			Msg("event publish failed")

		if markErr := d.outboxRepo.MarkFailed(ctx, event.ID, err.Error(), d.maxAttempts); markErr != nil {
			d.logger.Error().Err(markErr).Str("event_id", event.ID).Msg("failed to mark event failed")
		}

		if d.metrics != nil {
			d.metrics.EventsFailed.Inc()
			if event.Attempts+1 >= d.maxAttempts {
				d.metrics.EventsDeadLettered.Inc()
			}
		}
		return
	}

	if err := d.outboxRepo.MarkDispatched(ctx, event.ID, time.Now().UTC()); err != nil {
		// The event was delivered but not marked; it will be delivered
		// again. At-least-once makes this safe.
		d.logger.Error().Err(err).Str("event_id", event.ID).Msg("failed to mark event dispatched")
		return
	}

	if d.metrics != nil {
		d.metrics.EventsDispatched.Inc()
	}

	d.registry.Notify(ctx, event.Envelope())

	d.logger.Debug().
		Str("event_id", event.ID).
		Str("entity_id", event.EntityID).
		Str("action", event.Action).
		Msg("event dispatched")
}

// isStale reports whether the entity has left the state the event
// describes, which happens when a saga compensated between enqueue and
// dispatch. Stale events are dropped, never delivered.
func (d *Dispatcher) isStale(ctx context.Context, event *domain.OutboxEvent) (bool, string, error) {
	if event.EntityType != domain.EntityTypeJournalEntry {
		return false, "", nil
	}

	entry, err := d.journalRepo.GetByID(ctx, event.EntityID)
	if err != nil {
		// Only a confirmed missing entry is stale. A transient read
		// failure must not destroy a deliverable event.
		if errors.Is(err, domain.ErrEntryNotFound) {
			return true, "entry no longer exists", nil
		}
		return false, "", err
	}

	switch event.Action {
	case domain.EventActionPosted:
		// A later reversal does not invalidate the posted event; only a
		// revert back to draft does.
		if entry.Status == domain.EntryStatusDraft {
			return true, "entry reverted to draft", nil
		}
	case domain.EventActionReversed:
		if entry.Status != domain.EntryStatusReversed {
			return true, "entry is not reversed", nil
		}
	}

	return false, "", nil
}

// LogTransport is a transport that only logs envelopes; used in
// development and as a stand-in when no broker is configured.
type LogTransport struct {
	logger zerolog.Logger
}

// NewLogTransport creates a new LogTransport.
func NewLogTransport(logger zerolog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Publish logs the envelope.
func (t *LogTransport) Publish(ctx context.Context, topic string, envelope domain.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	t.logger.Info().
		Str("topic", topic).
		RawJSON("envelope", payload).
		Msg("event published")

	return nil
}
