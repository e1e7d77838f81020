// Package gateway implements the query side of the external payment
// provider's API. The provider is the authority on transaction state;
// this client only ever reads it.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/clubsuite/event-payments/internal/model"
)

// ErrNotFound is returned when the gateway has no record of an order.
// The reconciliation sweep treats it as "order never completed".
var ErrNotFound = errors.New("gateway has no record of this order")

// Config holds the gateway connection settings read from environment
// variables.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ConfigFromEnv reads gateway config with local-development defaults.
// The 5s timeout bounds each status query; it is unrelated to the 24h
// order expiration horizon.
func ConfigFromEnv() Config {
	return Config{
		BaseURL: getEnv("GATEWAY_BASE_URL", "https://payments.api.bold.co/v2"),
		APIKey:  getEnv("GATEWAY_API_KEY", ""),
		Timeout: 5 * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Client queries transaction status by order id.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient constructs a Client with a hard per-request timeout.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type statusReply struct {
	PaymentStatus string `json:"payment_status"`
}

// QueryStatus asks the gateway for the authoritative status of an order.
// A 404 (or an explicit no-transaction-found reply) maps to ErrNotFound;
// any other non-2xx response or transport failure is an error.
func (c *Client) QueryStatus(ctx context.Context, orderID string) (model.TxStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/payment-voucher/%s", c.baseURL, orderID), nil)
	if err != nil {
		return "", fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "x-api-key "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("query gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var reply statusReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("decode gateway response: %w", err)
	}
	if reply.PaymentStatus == "NO_TRANSACTION_FOUND" {
		return "", ErrNotFound
	}

	status := model.TxStatus(reply.PaymentStatus)
	if !status.Valid() {
		return "", fmt.Errorf("gateway returned unknown status %q", reply.PaymentStatus)
	}
	return status, nil
}
