package model

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

// Processor identifies one of the two upstream payment processors. The set is
// fixed; nothing ever adds a third member at runtime.
type Processor string

const (
	ProcessorDefault  Processor = "default"
	ProcessorFallback Processor = "fallback"
)

// PaymentRequest is the inbound submission body.
type PaymentRequest struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
}

func (r PaymentRequest) Validate() error {
	if _, err := uuid.Parse(r.CorrelationID); err != nil {
		return ErrInvalidRequest
	}
	if r.Amount <= 0 {
		return ErrInvalidRequest
	}
	return nil
}

// Payment is a submission stamped for upstream delivery. RequestedAt is
// assigned once, in UTC, when the dispatcher takes ownership of the request.
type Payment struct {
	CorrelationID string    `json:"correlationId"`
	Amount        float64   `json:"amount"`
	RequestedAt   time.Time `json:"requestedAt"`
}

// HealthStatus is a processor's probe result. MinResponseTimeUnknown is the
// sentinel carried when the processor is unreachable.
type HealthStatus struct {
	Failing         bool `json:"failing"`
	MinResponseTime int  `json:"minResponseTime"`
}

const MinResponseTimeUnknown = math.MaxInt32

// Unhealthy is the pessimistic status used when probing gives up.
func Unhealthy() HealthStatus {
	return HealthStatus{Failing: true, MinResponseTime: MinResponseTimeUnknown}
}

// ProcessorSummary aggregates one processor's recorded payments.
type ProcessorSummary struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

// Summary is the response of the payments-summary query.
type Summary struct {
	Default  ProcessorSummary `json:"default"`
	Fallback ProcessorSummary `json:"fallback"`
}

// TimeRange bounds a windowed summary. A zero From or To means unbounded on
// that side.
type TimeRange struct {
	From time.Time
	To   time.Time
}

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnavailableProcessor = errors.New("unavailable processor")
	ErrProbeFailed          = errors.New("health probe failed")
)
