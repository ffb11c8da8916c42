package client

import (
	"context"
	"net/http"
	"net/url"

	"codestory/internal/api"
)

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (api.DaemonStatus, error) {
	var status api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, nil, &status)
	return status, err
}

// StartRun asks the daemon to begin a new pipeline run.
func (c *Client) StartRun(ctx context.Context, req api.StartRunRequest) (api.Run, error) {
	var run api.Run
	err := c.do(ctx, http.MethodPost, "/api/runs", nil, req, &run)
	return run, err
}

// ListRuns fetches run records, optionally filtered by stage names.
func (c *Client) ListRuns(ctx context.Context, stages ...string) ([]api.Run, error) {
	query := url.Values{}
	for _, stage := range stages {
		query.Add("stage", stage)
	}
	var resp api.RunListResponse
	if err := c.do(ctx, http.MethodGet, "/api/runs", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// GetResult fetches the outcome of one run.
func (c *Client) GetResult(ctx context.Context, id string) (api.ResultResponse, error) {
	var resp api.ResultResponse
	err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(id), nil, nil, &resp)
	return resp, err
}

// Events fetches progress events after the given cursor. With wait set the
// daemon holds the request open until new events arrive or the run ends.
func (c *Client) Events(ctx context.Context, id string, since uint64, limit int, wait bool) (api.EventStreamResponse, error) {
	var resp api.EventStreamResponse
	err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(id)+"/events", eventQuery(since, limit, wait), nil, &resp)
	return resp, err
}

// Cancel stops an in-flight run.
func (c *Client) Cancel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/runs/"+url.PathEscape(id), nil, nil, nil)
}

// Remove cancels a run if needed and deletes its record and artifacts.
func (c *Client) Remove(ctx context.Context, id string) error {
	query := url.Values{}
	query.Set("purge", "1")
	return c.do(ctx, http.MethodDelete, "/api/runs/"+url.PathEscape(id), query, nil, nil)
}

// TestNotification asks the daemon to send a test push notification.
func (c *Client) TestNotification(ctx context.Context) (api.NotifyTestResponse, error) {
	var resp api.NotifyTestResponse
	err := c.do(ctx, http.MethodPost, "/api/notify-test", nil, nil, &resp)
	return resp, err
}
