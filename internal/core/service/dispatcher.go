package service

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rl1809/medkit/internal/metrics"
	"github.com/rl1809/medkit/internal/port"
)

const defaultDeliveryConcurrency = 8

// DispatchReport summarises one fan-out.
type DispatchReport struct {
	Attempted int
	Delivered int
	Failed    int
}

// Dispatcher sends one message to every registered subscriber. A failed
// delivery is logged and counted; it never stops the other deliveries.
type Dispatcher struct {
	registry    port.SubscriberRegistry
	transport   port.Transport
	concurrency int
	logger      *slog.Logger
}

func NewDispatcher(registry port.SubscriberRegistry, transport port.Transport, concurrency int, logger *slog.Logger) *Dispatcher {
	if concurrency <= 0 {
		concurrency = defaultDeliveryConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:    registry,
		transport:   transport,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, text string) DispatchReport {
	recipients := d.registry.Snapshot()

	var delivered, failed atomic.Int32
	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, recipient := range recipients {
		g.Go(func() error {
			if err := d.transport.Send(ctx, recipient, text); err != nil {
				failed.Add(1)
				metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
				d.logger.Warn("digest delivery failed", "recipient", recipient, "error", err)
				return nil
			}
			delivered.Add(1)
			metrics.DeliveriesTotal.WithLabelValues("delivered").Inc()
			return nil
		})
	}
	_ = g.Wait()

	return DispatchReport{
		Attempted: len(recipients),
		Delivered: int(delivered.Load()),
		Failed:    int(failed.Load()),
	}
}
