package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"

	"payrouter/internal/model"
)

type (
	PaymentHandler struct {
		dispatcher   Dispatcher
		summaries    SummarySource
		purger       Purger
		adminToken   string
		submitBudget time.Duration
	}

	Dispatcher interface {
		Submit(ctx context.Context, req model.PaymentRequest) error
		PurgeUpstream(ctx context.Context, token string) error
	}

	SummarySource interface {
		Summary(ctx context.Context, window model.TimeRange) (model.Summary, error)
	}

	Purger interface {
		Purge(ctx context.Context) error
	}
)

func NewPaymentHandler(dispatcher Dispatcher, summaries SummarySource, purger Purger, adminToken string) *PaymentHandler {
	return &PaymentHandler{
		dispatcher:   dispatcher,
		summaries:    summaries,
		purger:       purger,
		adminToken:   adminToken,
		submitBudget: 30 * time.Second,
	}
}

// Submit accepts a payment for processing. Acceptance is all it promises:
// delivery runs detached and a failed dispatch never surfaces here.
func (h *PaymentHandler) Submit(c *fiber.Ctx) error {
	var req model.PaymentRequest
	if err := sonic.Unmarshal(c.Body(), &req); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if err := req.Validate(); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.submitBudget)
		defer cancel()
		// Dispatch failures are dropped; the dispatcher already logged them.
		_ = h.dispatcher.Submit(ctx, req)
	}()

	return c.SendStatus(fiber.StatusAccepted)
}

func (h *PaymentHandler) Summary(c *fiber.Ctx) error {
	window := model.TimeRange{
		From: parseTimestamp(c.Query("from")),
		To:   parseTimestamp(c.Query("to")),
	}

	summary, err := h.summaries.Summary(c.Context(), window)
	if err != nil {
		slog.Error("summary query failed", "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.JSON(summary)
}

func (h *PaymentHandler) Purge(c *fiber.Ctx) error {
	token := c.Get("X-Rinha-Token", h.adminToken)

	if err := h.dispatcher.PurgeUpstream(c.Context(), token); err != nil {
		slog.Error("upstream purge failed", "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if err := h.purger.Purge(c.Context()); err != nil {
		slog.Error("ledger purge failed", "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PaymentHandler) Healthcheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// parseTimestamp reads an optional RFC3339 query bound. An unparsable value
// is logged and handled as if absent, matching the summary contract's
// open-ended defaults.
func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		slog.Error("invalid summary timestamp, ignoring", "value", raw, "err", err)
		return time.Time{}
	}
	return parsed
}
