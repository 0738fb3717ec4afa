package collab

import (
	"context"
	"errors"
)

// PaymentClient talks to the payment submission service.
type PaymentClient struct {
	client
}

// NewPaymentClient creates a client for the payment service at baseURL.
func NewPaymentClient(baseURL string, retry *RetryPolicy) *PaymentClient {
	return &PaymentClient{client: newClient(baseURL, retry)}
}

// Send submits a payment and returns the resulting tx hash.
// A response with neither a hash nor an error string is unparsable.
func (c *PaymentClient) Send(ctx context.Context, req PaymentRequest) (PaymentOutcome, error) {
	var outcome PaymentOutcome
	if err := c.postJSON(ctx, "/send_payment", req, &outcome); err != nil {
		return PaymentOutcome{}, &PaymentError{Err: err}
	}
	if outcome.TxHash == "" && outcome.Error == "" {
		return PaymentOutcome{}, &PaymentError{Err: errors.New("response carries neither txHash nor error")}
	}
	return outcome, nil
}
