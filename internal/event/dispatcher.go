package event

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/models"
	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/worker"
)

const defaultPublishTimeout = 5 * time.Second

// Dispatcher hands committed events to the working pool so publishing never
// blocks a settlement. Events that find the queue full are dropped and
// counted; the settlement_events table stays authoritative.
type Dispatcher struct {
	pool      *worker.WorkingPool
	publisher Publisher
	timeout   time.Duration
	dropped   atomic.Int64
}

func NewDispatcher(pool *worker.WorkingPool, publisher Publisher) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		publisher: publisher,
		timeout:   defaultPublishTimeout,
	}
}

func (d *Dispatcher) Publish(_ context.Context, e models.SettlementEvent) {
	msg := NewSettlementEventMessage(e)
	queued := d.pool.TrySubmit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return d.publisher.PublishSettlementEvent(ctx, msg)
	})
	if !queued {
		d.dropped.Add(1)
		slog.Warn("Settlement event dropped, dispatch queue unavailable",
			"event_id", msg.EventID,
			"type", msg.Type,
			"policy_id", msg.PolicyID)
	}
}

func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}
