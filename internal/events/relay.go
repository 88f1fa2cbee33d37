package events

import (
	"context"
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

const (
	DefaultBatchSize    = 100
	DefaultMaxAttempts  = 5
	DefaultPollInterval = 5 * time.Second
)

// RelayConfig tunes the outbox relay. Zero values take the defaults.
type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// Relay polls pending follow events and publishes them in id order.
type Relay struct {
	repo      repository.FollowEventRepository
	publisher Publisher
	cfg       RelayConfig
}

func NewRelay(repo repository.FollowEventRepository, publisher Publisher, cfg RelayConfig) *Relay {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	return &Relay{repo: repo, publisher: publisher, cfg: cfg}
}

// Run relays batches until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	middleware.Logger.Info("follow event relay started", "interval", r.cfg.PollInterval.String())
	for {
		if _, err := r.ProcessBatch(ctx); err != nil && ctx.Err() == nil {
			middleware.Logger.Error("follow event relay batch failed", "error", err)
		}
		select {
		case <-ctx.Done():
			middleware.Logger.Info("follow event relay stopped")
			return
		case <-ticker.C:
		}
	}
}

// ProcessBatch publishes up to one batch of pending events and returns how
// many were sent. It stops at the first publish failure so later events for
// the same author are not delivered ahead of it.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	pending, err := r.repo.ListPending(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, ev := range pending {
		if err := r.publisher.Publish(ctx, AuthorKey(ev.AuthorID), []byte(ev.Payload)); err != nil {
			final := ev.Attempts+1 >= r.cfg.MaxAttempts
			if markErr := r.repo.MarkAttempt(ctx, ev.ID, err.Error(), final); markErr != nil {
				return sent, markErr
			}
			if final {
				observability.OutboxEvents.WithLabelValues(models.OutboxStatusFailed).Inc()
				middleware.Logger.Error("follow event dropped after retries",
					"event_id", ev.ID, "attempts", ev.Attempts+1, "error", err)
				continue
			}
			observability.OutboxEvents.WithLabelValues("retry").Inc()
			middleware.Logger.Warn("follow event publish failed", "event_id", ev.ID, "error", err)
			return sent, nil
		}
		if err := r.repo.MarkSent(ctx, ev.ID); err != nil {
			return sent, err
		}
		observability.OutboxEvents.WithLabelValues(models.OutboxStatusSent).Inc()
		sent++
	}
	return sent, nil
}
