package pagerduty

import (
	"context"
)

// Client issues PagerDuty API calls through a shared Queue. The API key is
// passed on every call; the client itself holds no per-caller state.
type Client struct {
	endpoint Endpoint
	queue    *Queue
}

// NewClient returns a client building requests with endpoint and running them
// on queue.
func NewClient(endpoint Endpoint, queue *Queue) *Client {
	return &Client{endpoint: endpoint, queue: queue}
}

// Get enqueues the request and blocks until its response has been decoded into
// into, or the task failed.
func (c *Client) Get(ctx context.Context, request Request, into interface{}) error {
	done := make(chan error, 1)
	c.queue.Enqueue(&Task{
		Context: ctx,
		Request: request,
		Into:    into,
		Done:    func(err error) { done <- err },
	})
	return <-done
}

// SearchTeams returns the teams matching term.
func (c *Client) SearchTeams(ctx context.Context, apiKey, term string) (*TeamList, error) {
	var list TeamList
	if err := c.Get(ctx, c.endpoint.Teams(apiKey, term), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// SearchEscalationPolicies returns the escalation policies matching term.
func (c *Client) SearchEscalationPolicies(ctx context.Context, apiKey, term string) (*EscalationPolicyList, error) {
	var list EscalationPolicyList
	if err := c.Get(ctx, c.endpoint.EscalationPolicies(apiKey, term), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListOnCalls returns the current on-call entries of one escalation policy.
func (c *Client) ListOnCalls(ctx context.Context, apiKey, policyID string) (*OnCallList, error) {
	var list OnCallList
	if err := c.Get(ctx, c.endpoint.OnCalls(apiKey, policyID), &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetUser returns one user with contact methods.
func (c *Client) GetUser(ctx context.Context, apiKey, userID string) (*User, error) {
	var resp UserResponse
	if err := c.Get(ctx, c.endpoint.User(apiKey, userID), &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// SearchUsers returns the users matching term.
func (c *Client) SearchUsers(ctx context.Context, apiKey, term string) (*UserList, error) {
	var list UserList
	if err := c.Get(ctx, c.endpoint.UserSearch(apiKey, term), &list); err != nil {
		return nil, err
	}
	return &list, nil
}
