package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"payrouter/internal/gateway"
	"payrouter/internal/model"
	"payrouter/internal/router"
)

type (
	// Dispatcher owns a single submission end to end: health lookup for both
	// processors, routing, upstream delivery, ledger write.
	Dispatcher struct {
		clients  map[model.Processor]gateway.ProcessorClient
		health   HealthSource
		recorder Recorder
	}

	HealthSource interface {
		GetHealth(ctx context.Context, processor model.Processor) model.HealthStatus
	}

	Recorder interface {
		Record(ctx context.Context, processor model.Processor, payment model.Payment) error
	}
)

func NewDispatcher(clients map[model.Processor]gateway.ProcessorClient, health HealthSource, recorder Recorder) *Dispatcher {
	return &Dispatcher{
		clients:  clients,
		health:   health,
		recorder: recorder,
	}
}

// Submit forwards the payment to the processor the router picks and records
// it on success. A delivery failure is not retried and not escalated to the
// other processor; the payment just never reaches the ledger.
func (d *Dispatcher) Submit(ctx context.Context, req model.PaymentRequest) error {
	var defaultHealth, fallbackHealth model.HealthStatus

	done := make(chan struct{})
	go func() {
		defer close(done)
		fallbackHealth = d.health.GetHealth(ctx, model.ProcessorFallback)
	}()
	defaultHealth = d.health.GetHealth(ctx, model.ProcessorDefault)
	<-done

	target := router.SelectProcessor(defaultHealth, fallbackHealth)

	payment := model.Payment{
		CorrelationID: req.CorrelationID,
		Amount:        req.Amount,
		RequestedAt:   time.Now().UTC(),
	}

	if err := d.clients[target].Submit(ctx, payment); err != nil {
		slog.Warn("dispatch failed, dropping payment",
			"processor", target, "correlationId", payment.CorrelationID, "err", err)
		return fmt.Errorf("submitting to %s: %w", target, err)
	}

	if err := d.recorder.Record(ctx, target, payment); err != nil {
		// Upstream accepted the payment but the ledger write failed; the
		// totals will undercount it. There is no compensation path.
		slog.Error("payment delivered but not recorded",
			"processor", target, "correlationId", payment.CorrelationID, "err", err)
		return err
	}

	return nil
}

// PurgeUpstream forwards the admin purge to both processors.
func (d *Dispatcher) PurgeUpstream(ctx context.Context, token string) error {
	for processor, client := range d.clients {
		if err := client.PurgePayments(ctx, token); err != nil {
			return fmt.Errorf("purging %s: %w", processor, err)
		}
	}
	return nil
}
