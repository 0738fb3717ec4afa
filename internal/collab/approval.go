package collab

import "context"

// ApprovalClient talks to the approval (seller decision) service.
type ApprovalClient struct {
	client
}

// NewApprovalClient creates a client for the approval service at baseURL.
func NewApprovalClient(baseURL string, retry *RetryPolicy) *ApprovalClient {
	return &ApprovalClient{client: newClient(baseURL, retry)}
}

// Evaluate submits a trigger for a decision. The payment collaborator must
// never be called unless the returned decision is approved.
func (c *ApprovalClient) Evaluate(ctx context.Context, req ApprovalRequest) (ApprovalDecision, error) {
	var decision ApprovalDecision
	if err := c.postJSON(ctx, "/respond", req, &decision); err != nil {
		return ApprovalDecision{}, &ApprovalError{Err: err}
	}
	return decision, nil
}
