package health

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"

	"payrouter/internal/cache"
	"payrouter/internal/gateway"
	"payrouter/internal/model"
	"payrouter/internal/retry"
)

const keyPrefix = "healthcheck:"

// Monitor answers health queries for both processors from a shared TTL cache,
// probing the gateway only when the cached entry has expired. Probe failures
// never leave this package; the worst answer is a pessimistic status.
type Monitor struct {
	clients map[model.Processor]gateway.ProcessorClient
	cache   cache.Cache
	ttl     time.Duration
	backoff retry.Linear
}

func NewMonitor(clients map[model.Processor]gateway.ProcessorClient, c cache.Cache, ttl time.Duration, backoff retry.Linear) *Monitor {
	return &Monitor{
		clients: clients,
		cache:   c,
		ttl:     ttl,
		backoff: backoff,
	}
}

// GetHealth returns the processor's current health. A cached entry is served
// without touching the network. On expiry the probe is retried with linear
// backoff; if every attempt fails the pessimistic status is returned and NOT
// cached, so the next decision probes again.
func (m *Monitor) GetHealth(ctx context.Context, processor model.Processor) model.HealthStatus {
	key := keyPrefix + string(processor)

	cached, err := m.cache.Get(ctx, key)
	if err == nil {
		var status model.HealthStatus
		if err := sonic.Unmarshal([]byte(cached), &status); err == nil {
			return status
		}
		slog.Warn("discarding unreadable cached health entry", "processor", processor)
	} else if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("health cache read failed, probing instead", "processor", processor, "err", err)
	}

	var status model.HealthStatus
	probeErr := m.backoff.Do(ctx, func(ctx context.Context) error {
		var err error
		status, err = m.clients[processor].CheckHealth(ctx)
		return err
	})
	if probeErr != nil {
		slog.Warn("health probe exhausted retries", "processor", processor, "err", probeErr)
		return model.Unhealthy()
	}

	raw, err := sonic.Marshal(status)
	if err == nil {
		if err := m.cache.SetWithTTL(ctx, key, string(raw), m.ttl); err != nil {
			slog.Warn("health cache write failed", "processor", processor, "err", err)
		}
	}

	return status
}
