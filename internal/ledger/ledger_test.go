package ledger

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"payrouter/internal/model"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client)
}

func paymentAt(id string, amount float64, at time.Time) model.Payment {
	return model.Payment{CorrelationID: id, Amount: amount, RequestedAt: at}
}

func TestRecordUpdatesRunningTotals(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := l.Record(ctx, model.ProcessorDefault, paymentAt("a", 19.90, now)); err != nil {
		t.Fatalf("record: %v", err)
	}

	summary, err := l.Summary(ctx, model.TimeRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.Default.TotalRequests != 1 {
		t.Errorf("expected 1 default request, got %d", summary.Default.TotalRequests)
	}
	if math.Abs(summary.Default.TotalAmount-19.90) > 1e-9 {
		t.Errorf("expected default amount 19.90, got %f", summary.Default.TotalAmount)
	}
	if summary.Fallback.TotalRequests != 0 || summary.Fallback.TotalAmount != 0 {
		t.Errorf("expected empty fallback summary, got %+v", summary.Fallback)
	}
}

func TestRecordAccumulatesPerProcessor(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	amounts := []float64{10.5, 20.25, 0.25}
	var want float64
	for i, amount := range amounts {
		id := fmt.Sprintf("def-%d", i)
		if err := l.Record(ctx, model.ProcessorDefault, paymentAt(id, amount, now)); err != nil {
			t.Fatalf("record: %v", err)
		}
		want += amount
	}
	if err := l.Record(ctx, model.ProcessorFallback, paymentAt("fb-0", 5, now)); err != nil {
		t.Fatalf("record: %v", err)
	}

	summary, err := l.Summary(ctx, model.TimeRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.Default.TotalRequests != int64(len(amounts)) {
		t.Errorf("expected %d default requests, got %d", len(amounts), summary.Default.TotalRequests)
	}
	if math.Abs(summary.Default.TotalAmount-want) > 1e-9 {
		t.Errorf("expected default amount %f, got %f", want, summary.Default.TotalAmount)
	}
	if summary.Fallback.TotalRequests != 1 {
		t.Errorf("expected 1 fallback request, got %d", summary.Fallback.TotalRequests)
	}
}

func TestWindowedSummaryMatchesUnfilteredWhenCoveringAll(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		id := fmt.Sprintf("p-%d", i)
		at := base.Add(time.Duration(i) * time.Minute)
		if err := l.Record(ctx, model.ProcessorDefault, paymentAt(id, 2.5, at)); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	unfiltered, err := l.Summary(ctx, model.TimeRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	windowed, err := l.Summary(ctx, model.TimeRange{
		From: base.Add(-time.Hour),
		To:   base.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("windowed summary: %v", err)
	}

	if windowed.Default != unfiltered.Default {
		t.Errorf("windowed %+v differs from unfiltered %+v", windowed.Default, unfiltered.Default)
	}
}

func TestWindowedSummaryExcludesOutOfRange(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

	if err := l.Record(ctx, model.ProcessorDefault, paymentAt("inside", 10, base)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record(ctx, model.ProcessorDefault, paymentAt("outside", 99, base.Add(time.Hour))); err != nil {
		t.Fatalf("record: %v", err)
	}

	summary, err := l.Summary(ctx, model.TimeRange{
		From: base.Add(-time.Minute),
		To:   base.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.Default.TotalRequests != 1 {
		t.Errorf("expected 1 request in window, got %d", summary.Default.TotalRequests)
	}
	if math.Abs(summary.Default.TotalAmount-10) > 1e-9 {
		t.Errorf("expected amount 10 in window, got %f", summary.Default.TotalAmount)
	}
}

func TestWindowBeforeAllEntriesIsEmpty(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

	if err := l.Record(ctx, model.ProcessorDefault, paymentAt("x", 19.90, base)); err != nil {
		t.Fatalf("record: %v", err)
	}

	summary, err := l.Summary(ctx, model.TimeRange{
		From: base.Add(-2 * time.Hour),
		To:   base.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.Default.TotalRequests != 0 || summary.Default.TotalAmount != 0 {
		t.Errorf("expected empty summary before recorded entries, got %+v", summary.Default)
	}
}

func TestHalfOpenWindows(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	base := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)

	if err := l.Record(ctx, model.ProcessorDefault, paymentAt("early", 1, base)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Record(ctx, model.ProcessorDefault, paymentAt("late", 2, base.Add(time.Hour))); err != nil {
		t.Fatalf("record: %v", err)
	}

	fromOnly, err := l.Summary(ctx, model.TimeRange{From: base.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("from-only summary: %v", err)
	}
	if fromOnly.Default.TotalRequests != 1 || fromOnly.Default.TotalAmount != 2 {
		t.Errorf("from-only window wrong: %+v", fromOnly.Default)
	}

	toOnly, err := l.Summary(ctx, model.TimeRange{To: base.Add(30 * time.Minute)})
	if err != nil {
		t.Fatalf("to-only summary: %v", err)
	}
	if toOnly.Default.TotalRequests != 1 || toOnly.Default.TotalAmount != 1 {
		t.Errorf("to-only window wrong: %+v", toOnly.Default)
	}
}

func TestConcurrentRecordsLoseNoIncrements(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()
	now := time.Now().UTC()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c-%d", i)
			if err := l.Record(ctx, model.ProcessorFallback, paymentAt(id, 1, now)); err != nil {
				t.Errorf("record: %v", err)
			}
		}(i)
	}
	wg.Wait()

	summary, err := l.Summary(ctx, model.TimeRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}

	if summary.Fallback.TotalRequests != workers {
		t.Errorf("expected %d fallback requests, got %d", workers, summary.Fallback.TotalRequests)
	}
	if math.Abs(summary.Fallback.TotalAmount-workers) > 1e-9 {
		t.Errorf("expected fallback amount %d, got %f", workers, summary.Fallback.TotalAmount)
	}
}

func TestPurgeClearsEverything(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if err := l.Record(ctx, model.ProcessorDefault, paymentAt("x", 10, time.Now().UTC())); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Purge(ctx); err != nil {
		t.Fatalf("purge: %v", err)
	}

	summary, err := l.Summary(ctx, model.TimeRange{})
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Default.TotalRequests != 0 || summary.Default.TotalAmount != 0 {
		t.Errorf("expected empty summary after purge, got %+v", summary.Default)
	}
}
