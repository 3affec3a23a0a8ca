package gateway

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"

	"payrouter/internal/model"
)

// Client talks to a single payment processor instance. The core uses exactly
// two operations against it: probe health and submit a payment; everything
// else about the upstream is out of scope.
type Client struct {
	http    *http.Client
	baseURL string
}

// ProcessorClient is implemented by *Client and by test fakes.
type ProcessorClient interface {
	CheckHealth(ctx context.Context) (model.HealthStatus, error)
	Submit(ctx context.Context, payment model.Payment) error
	PurgePayments(ctx context.Context, token string) error
}

func NewClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{http: httpClient, baseURL: baseURL}
}

// CheckHealth probes /payments/service-health. Transport errors and
// non-success statuses are reported alike; the caller owns retries.
func (c *Client) CheckHealth(ctx context.Context) (model.HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/payments/service-health", nil)
	if err != nil {
		return model.HealthStatus{}, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return model.HealthStatus{}, fmt.Errorf("%w: %w", model.ErrProbeFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return model.HealthStatus{}, fmt.Errorf("%w: status %d", model.ErrProbeFailed, res.StatusCode)
	}

	var status model.HealthStatus
	if err := sonic.ConfigFastest.NewDecoder(res.Body).Decode(&status); err != nil {
		return model.HealthStatus{}, fmt.Errorf("%w: %w", model.ErrProbeFailed, err)
	}
	return status, nil
}

// Submit posts the stamped payment. Any non-2xx answer is a dispatch failure;
// there is no distinction the caller could act on.
func (c *Client) Submit(ctx context.Context, payment model.Payment) error {
	body, err := sonic.ConfigFastest.Marshal(payment)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payments", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrUnavailableProcessor, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", model.ErrUnavailableProcessor, res.StatusCode)
	}
	return nil
}

// PurgePayments asks the processor's admin API to drop everything it has.
func (c *Client) PurgePayments(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/admin/purge-payments", nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Rinha-Token", token)

	res, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("purge returned status %d", res.StatusCode)
	}
	return nil
}
