package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"payrouter/internal/model"
)

// Ledger is the append-oriented record of successfully dispatched payments.
// Each processor has a time-indexed sorted set of correlation ids, every
// payment has a detail hash, and a per-processor hash keeps running totals
// maintained by atomic increments.
//
// The writes for one payment are pipelined but deliberately not wrapped in a
// cross-key transaction; a crash mid-write can leave the index and the totals
// out of step. The windowed summary path only trusts the index, so it stays
// correct regardless.
type Ledger struct {
	client *redis.Client
}

func New(client *redis.Client) *Ledger {
	return &Ledger{client: client}
}

func paymentsKey(p model.Processor) string { return "payments:" + string(p) }
func summaryKey(p model.Processor) string  { return "summary:" + string(p) }
func detailsKey(correlationID string) string {
	return "payment:details:" + correlationID
}

// Record appends the payment under the given processor and bumps that
// processor's running totals. Called exactly once per successful dispatch.
func (l *Ledger) Record(ctx context.Context, processor model.Processor, payment model.Payment) error {
	score := float64(payment.RequestedAt.UnixMilli())
	amount := strconv.FormatFloat(payment.Amount, 'f', -1, 64)

	pipe := l.client.Pipeline()
	pipe.ZAdd(ctx, paymentsKey(processor), redis.Z{Score: score, Member: payment.CorrelationID})
	pipe.HSet(ctx, detailsKey(payment.CorrelationID),
		"amount", amount,
		"requestedAt", payment.RequestedAt.Format(time.RFC3339Nano),
	)
	pipe.HIncrByFloat(ctx, summaryKey(processor), "totalAmount", payment.Amount)
	pipe.HIncrBy(ctx, summaryKey(processor), "totalRequests", 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording payment %s: %w", payment.CorrelationID, err)
	}
	return nil
}

// Summary answers the two-processor aggregate. With no bounds it reads the
// running totals directly; with any bound it recomputes from the time index.
func (l *Ledger) Summary(ctx context.Context, window model.TimeRange) (model.Summary, error) {
	if window.From.IsZero() && window.To.IsZero() {
		return l.totals(ctx)
	}
	return l.windowed(ctx, window)
}

func (l *Ledger) totals(ctx context.Context) (model.Summary, error) {
	pipe := l.client.Pipeline()
	defaultCmd := pipe.HGetAll(ctx, summaryKey(model.ProcessorDefault))
	fallbackCmd := pipe.HGetAll(ctx, summaryKey(model.ProcessorFallback))

	if _, err := pipe.Exec(ctx); err != nil {
		return model.Summary{}, fmt.Errorf("reading running totals: %w", err)
	}

	return model.Summary{
		Default:  parseTotals(defaultCmd.Val()),
		Fallback: parseTotals(fallbackCmd.Val()),
	}, nil
}

func parseTotals(fields map[string]string) model.ProcessorSummary {
	var summary model.ProcessorSummary
	if requests, err := strconv.ParseInt(fields["totalRequests"], 10, 64); err == nil {
		summary.TotalRequests = requests
	}
	if amount, err := strconv.ParseFloat(fields["totalAmount"], 64); err == nil {
		summary.TotalAmount = amount
	}
	return summary
}

func (l *Ledger) windowed(ctx context.Context, window model.TimeRange) (model.Summary, error) {
	defaultSummary, err := l.scan(ctx, model.ProcessorDefault, window)
	if err != nil {
		return model.Summary{}, err
	}
	fallbackSummary, err := l.scan(ctx, model.ProcessorFallback, window)
	if err != nil {
		return model.Summary{}, err
	}
	return model.Summary{Default: defaultSummary, Fallback: fallbackSummary}, nil
}

func (l *Ledger) scan(ctx context.Context, processor model.Processor, window model.TimeRange) (model.ProcessorSummary, error) {
	min, max := "-inf", "+inf"
	if !window.From.IsZero() {
		min = strconv.FormatInt(window.From.UnixMilli(), 10)
	}
	if !window.To.IsZero() {
		max = strconv.FormatInt(window.To.UnixMilli(), 10)
	}

	ids, err := l.client.ZRangeByScore(ctx, paymentsKey(processor), &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return model.ProcessorSummary{}, fmt.Errorf("scanning %s index: %w", processor, err)
	}
	if len(ids) == 0 {
		return model.ProcessorSummary{}, nil
	}

	pipe := l.client.Pipeline()
	amountCmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		amountCmds[i] = pipe.HGet(ctx, detailsKey(id), "amount")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return model.ProcessorSummary{}, fmt.Errorf("fetching %s details: %w", processor, err)
	}

	var summary model.ProcessorSummary
	for _, cmd := range amountCmds {
		raw, err := cmd.Result()
		if err != nil {
			// Index entry without a detail hash: the non-atomic write pair
			// was interrupted. Skip it rather than guess an amount.
			continue
		}
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		summary.TotalAmount += amount
		summary.TotalRequests++
	}
	return summary, nil
}

// Purge drops everything the ledger knows. Only reachable through the admin
// purge operation.
func (l *Ledger) Purge(ctx context.Context) error {
	return l.client.FlushDB(ctx).Err()
}
