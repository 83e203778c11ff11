// Package chapa is an HTTP client for the Chapa payment gateway.
package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Chapa API endpoint
	DefaultBaseURL = "https://api.chapa.co/v1"
	// DefaultTimeout bounds every outbound gateway call
	DefaultTimeout = 30 * time.Second
)

// Transaction status values as reported by Chapa, after normalization.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPending = "pending"
)

// NormalizeStatus lower-cases a provider status string so callers can branch
// on the Status* constants.
func NormalizeStatus(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Config holds the credentials and endpoint for the Chapa API. It is passed
// explicitly to NewClient; the client never reads process-wide settings.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// Client issues requests against the Chapa API. All failures are returned as
// error values with readable messages; payment state is never touched here.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewClient creates a Chapa API client from the given config
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Customization carries the descriptive fields shown on the checkout page
type Customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// InitializeRequest is the payload for creating a checkout session. Amount is
// a decimal-formatted string, e.g. "500.00".
type InitializeRequest struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	PhoneNumber   string        `json:"phone_number"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	ReturnURL     string        `json:"return_url"`
	Customization Customization `json:"customization"`
}

// InitializeResult is the normalized response to a successful initialization
type InitializeResult struct {
	Message     string `json:"message"`
	TxRef       string `json:"tx_ref"`
	CheckoutURL string `json:"checkout_url"`
}

// VerifyData is the transaction detail returned by a verification call
type VerifyData struct {
	Status    string      `json:"status"`
	Reference string      `json:"reference"`
	TxRef     string      `json:"tx_ref"`
	Amount    json.Number `json:"amount"`
	Currency  string      `json:"currency"`
}

// VerifyResult is the normalized response to a verification call
type VerifyResult struct {
	Message string     `json:"message"`
	Data    VerifyData `json:"data"`
}

// WebhookPayload is the body Chapa POSTs to the callback URL. It is not
// self-authenticating and must not be trusted without re-verification.
type WebhookPayload struct {
	TxRef     string `json:"tx_ref"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
}

// Bank describes a bank supported for transfers
type Bank struct {
	ID       json.Number `json:"id"`
	Name     string      `json:"name"`
	Currency string      `json:"currency"`
}

// envelope is the outer shape of every Chapa API response
type envelope struct {
	Message string          `json:"message"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

// Initialize creates a checkout session for the given transaction reference.
// It never retries; retry policy belongs to the caller.
func (c *Client) Initialize(ctx context.Context, req InitializeRequest) (*InitializeResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode initialize request: %w", err)
	}

	env, err := c.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("payment initialization failed: %w", err)
	}

	var data struct {
		CheckoutURL string `json:"checkout_url"`
	}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode initialize response: %w", err)
		}
	}
	if data.CheckoutURL == "" {
		return nil, errors.New("payment initialization failed: no checkout_url in response")
	}

	return &InitializeResult{
		Message:     env.Message,
		TxRef:       req.TxRef,
		CheckoutURL: data.CheckoutURL,
	}, nil
}

// Verify fetches the authoritative status of a transaction by its reference
func (c *Client) Verify(ctx context.Context, txRef string) (*VerifyResult, error) {
	env, err := c.do(ctx, http.MethodGet, "/transaction/verify/"+txRef, nil)
	if err != nil {
		return nil, fmt.Errorf("payment verification failed: %w", err)
	}

	var data VerifyData
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("decode verify response: %w", err)
		}
	}

	return &VerifyResult{Message: env.Message, Data: data}, nil
}

// HandleWebhook re-verifies an inbound webhook notification with the
// provider. The webhook body itself is never treated as authoritative.
// Production deployments should additionally validate the provider's
// signature header once one is agreed with Chapa.
func (c *Client) HandleWebhook(ctx context.Context, payload WebhookPayload) (*VerifyResult, error) {
	if payload.TxRef == "" {
		return nil, errors.New("webhook payload missing tx_ref")
	}
	return c.Verify(ctx, payload.TxRef)
}

// ListBanks returns the banks supported for bank-transfer payments
func (c *Client) ListBanks(ctx context.Context) ([]Bank, error) {
	env, err := c.do(ctx, http.MethodGet, "/banks", nil)
	if err != nil {
		return nil, fmt.Errorf("fetching banks failed: %w", err)
	}

	var banks []Bank
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &banks); err != nil {
			return nil, fmt.Errorf("decode banks response: %w", err)
		}
	}
	return banks, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
		return nil, fmt.Errorf("unexpected response from gateway: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, msg)
	}

	return &env, nil
}
