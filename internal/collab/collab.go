// Package collab holds the HTTP clients for the two external collaborators:
// the approval (seller decision) service and the payment submission service.
// Only their request/response contracts matter here; their internals are out
// of scope for the bridge.
package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ApprovalRequest asks the approval collaborator to evaluate a trigger.
type ApprovalRequest struct {
	FromAgent      string  `json:"fromAgent"`
	ToAgent        string  `json:"toAgent"`
	Amount         float64 `json:"amount"`
	EmotionContext string  `json:"emotionContext,omitempty"`
}

// ApprovalDecision is the collaborator's verdict.
type ApprovalDecision struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// PaymentRequest asks the payment collaborator to submit a transaction.
type PaymentRequest struct {
	FromAgent string  `json:"fromAgent"`
	ToAgent   string  `json:"toAgent"`
	Amount    float64 `json:"amount"`
}

// PaymentOutcome is the collaborator's result: a tx hash on success or an
// error string on failure. Hashes are only ever sourced from here.
type PaymentOutcome struct {
	TxHash string `json:"txHash"`
	Error  string `json:"error,omitempty"`
}

// ApprovalError reports an unreachable approval collaborator or an
// unparsable response.
type ApprovalError struct {
	Err error
}

func (e *ApprovalError) Error() string { return "approval collaborator: " + e.Err.Error() }
func (e *ApprovalError) Unwrap() error { return e.Err }

// PaymentError reports an unreachable payment collaborator or an
// unparsable response.
type PaymentError struct {
	Err error
}

func (e *PaymentError) Error() string { return "payment collaborator: " + e.Err.Error() }
func (e *PaymentError) Unwrap() error { return e.Err }

// client is the shared HTTP plumbing for both collaborators.
type client struct {
	baseURL string
	http    *http.Client
	retry   *RetryPolicy
}

func newClient(baseURL string, retry *RetryPolicy) client {
	if retry == nil {
		retry = DefaultRetryPolicy()
	}
	return client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   retry,
	}
}

// postJSON POSTs the payload to path and decodes the JSON response into out.
// Transient transport failures are retried per the client's policy; the
// caller's ctx deadline always wins.
func (c *client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	return c.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}
