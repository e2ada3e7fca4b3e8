package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/handyhub-payment-engine/internal/config"
)

// AuthorizationRequest describes one destination charge: the customer pays
// Amount, the platform keeps ApplicationFeeAmount, the rest settles on the
// provider's connected account.
type AuthorizationRequest struct {
	Amount               int64
	Currency             string
	ApplicationFeeAmount int64
	DestinationAccountID string
	IdempotencyKey       string
	Metadata             map[string]string
}

// AuthorizationResult carries the processor's handle on the created payment
// and the token the client app needs to confirm it.
type AuthorizationResult struct {
	ExternalReference       string
	ClientConfirmationToken string
	Status                  string
}

// RefundResult carries the processor's handle on a created refund
type RefundResult struct {
	RefundID string
	Status   string
}

// LedgerTransaction is one payment record from the processor's settlement ledger
type LedgerTransaction struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"` // Stored in cents/minor units
	Currency  string `json:"currency"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created"`
}

// LedgerPayout is one payout record from the processor's settlement ledger
type LedgerPayout struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	ArrivalDate int64  `json:"arrival_date"`
}

type paymentIntentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type refundResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type transactionListResponse struct {
	Data       []LedgerTransaction `json:"data"`
	HasMore    bool                `json:"has_more"`
	NextCursor string              `json:"next_cursor"`
}

type payoutListResponse struct {
	Data       []LedgerPayout `json:"data"`
	HasMore    bool           `json:"has_more"`
	NextCursor string         `json:"next_cursor"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client talks to the external payment processor's REST API
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	logger       *slog.Logger
	pageSize     int
	maxRetries   int
	retryBackoff time.Duration
}

// NewClient creates a processor client from configuration
func NewClient(logger *slog.Logger, cfg *config.ProcessorConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		logger:       logger,
		pageSize:     cfg.LedgerPageSize,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
	}
}

// AuthorizePayment creates a destination charge. The idempotency key makes the
// call replay-safe: the processor returns the original payment for a repeated
// key instead of charging twice. Failures are reported as *AuthorizationError
// with Transient set for retryable conditions.
func (c *Client) AuthorizePayment(ctx context.Context, req *AuthorizationRequest) (*AuthorizationResult, error) {
	payload := map[string]interface{}{
		"amount":                 req.Amount,
		"currency":               strings.ToLower(req.Currency),
		"application_fee_amount": req.ApplicationFeeAmount,
		"transfer_data": map[string]string{
			"destination": req.DestinationAccountID,
		},
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	var result paymentIntentResponse
	if err := c.post(ctx, "/v1/payment_intents", req.IdempotencyKey, payload, &result); err != nil {
		return nil, err
	}

	return &AuthorizationResult{
		ExternalReference:       result.ID,
		ClientConfirmationToken: result.ClientSecret,
		Status:                  result.Status,
	}, nil
}

// RefundPayment refunds the full charge behind an external reference. Refund
// calls carry their own idempotency key so a replayed request cannot refund
// twice.
func (c *Client) RefundPayment(ctx context.Context, externalReference, idempotencyKey string) (*RefundResult, error) {
	payload := map[string]interface{}{
		"payment_intent": externalReference,
	}

	var result refundResponse
	if err := c.post(ctx, "/v1/refunds", idempotencyKey, payload, &result); err != nil {
		return nil, err
	}

	return &RefundResult{
		RefundID: result.ID,
		Status:   result.Status,
	}, nil
}

// ListTransactions drains every settlement ledger page for payments created in
// [start, end). The full set is returned; a page that cannot be fetched within
// the retry budget aborts the listing with *LedgerFetchError.
func (c *Client) ListTransactions(ctx context.Context, start, end time.Time) ([]LedgerTransaction, error) {
	all := make([]LedgerTransaction, 0)
	cursor := ""

	for {
		params := c.windowParams(start, end)
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page transactionListResponse
		if err := c.getWithRetry(ctx, "transactions", "/v1/balance_transactions", params, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Data...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

// ListPayouts drains every settlement ledger page for payouts created in
// [start, end)
func (c *Client) ListPayouts(ctx context.Context, start, end time.Time) ([]LedgerPayout, error) {
	all := make([]LedgerPayout, 0)
	cursor := ""

	for {
		params := c.windowParams(start, end)
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page payoutListResponse
		if err := c.getWithRetry(ctx, "payouts", "/v1/payouts", params, &page); err != nil {
			return nil, err
		}

		all = append(all, page.Data...)
		if !page.HasMore || page.NextCursor == "" {
			return all, nil
		}
		cursor = page.NextCursor
	}
}

func (c *Client) windowParams(start, end time.Time) url.Values {
	params := url.Values{}
	params.Set("created_gte", strconv.FormatInt(start.Unix(), 10))
	params.Set("created_lt", strconv.FormatInt(end.Unix(), 10))
	params.Set("limit", strconv.Itoa(c.pageSize))
	return params
}

// getWithRetry fetches one ledger page, retrying failed attempts with doubling
// backoff until the configured attempt budget is spent
func (c *Client) getWithRetry(ctx context.Context, operation, path string, params url.Values, dest interface{}) error {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.get(ctx, path, params, dest)
		if lastErr == nil {
			return nil
		}

		c.logger.Warn("Ledger page fetch failed",
			"operation", operation,
			"attempt", attempt,
			"error", lastErr)

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return &LedgerFetchError{Operation: operation, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return &LedgerFetchError{Operation: operation, Attempts: c.maxRetries, Err: lastErr}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dest interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("processor api error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return json.Unmarshal(body, dest)
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode processor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build processor request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &AuthorizationError{Transient: true, Message: "processor unreachable", Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.callError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return fmt.Errorf("failed to decode processor response: %w", err)
	}

	return nil
}

// callError classifies a non-2xx processor response. Rate limits and server
// faults are transient; anything else is a permanent decline.
func (c *Client) callError(statusCode int, body []byte) *AuthorizationError {
	var envelope errorEnvelope
	_ = json.Unmarshal(body, &envelope)

	message := envelope.Error.Message
	if message == "" {
		message = strings.TrimSpace(string(body))
	}

	return &AuthorizationError{
		StatusCode: statusCode,
		Code:       envelope.Error.Code,
		Message:    message,
		Transient:  statusCode >= 500 || statusCode == http.StatusTooManyRequests,
	}
}
