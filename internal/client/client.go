// Package client is a typed HTTP client for the memora API, used by the CLI.
package client

import (
	"context"
	"fmt"

	"resty.dev/v3"

	"github.com/memora-dev/memora/internal/queue"
	"github.com/memora-dev/memora/internal/server"
	"github.com/memora-dev/memora/internal/statistics"
)

// APIError is the decoded JSON error envelope returned by the server.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client talks to one memora server on behalf of one user.
type Client struct {
	httpClient *resty.Client
}

// New creates a Client. The userID is sent as the identity header on every
// request.
func New(baseURL, userID string) *Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(baseURL)
	httpClient.SetHeader("user_id", userID)
	httpClient.SetHeader("Content-Type", "application/json")

	return &Client{httpClient: httpClient}
}

func (c *Client) Close() error {
	return c.httpClient.Close()
}

func apiErrorFrom(resp *resty.Response) error {
	var envelope errorEnvelope
	if resp.Error() != nil {
		if decoded, ok := resp.Error().(*errorEnvelope); ok {
			envelope = *decoded
		}
	}
	return &APIError{
		StatusCode: resp.StatusCode(),
		Type:       envelope.Error.Type,
		Message:    envelope.Error.Message,
	}
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	return c.httpClient.R().
		SetContext(ctx).
		SetError(&errorEnvelope{})
}

// Due fetches the current review queue. A zero limit uses the server default.
func (c *Client) Due(ctx context.Context, limit int) ([]server.DueItem, error) {
	var result struct {
		Reviews []server.DueItem `json:"reviews"`
	}
	req := c.newRequest(ctx).SetResult(&result)
	if limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}
	resp, err := req.Get("/api/reviews/due")
	if err != nil {
		return nil, fmt.Errorf("get due reviews: %w", err)
	}
	if resp.IsError() {
		return nil, apiErrorFrom(resp)
	}
	return result.Reviews, nil
}

// SubmitReview submits one rating and returns the new schedule.
func (c *Client) SubmitReview(ctx context.Context, req server.SubmitReviewRequest) (server.SubmitReviewResponse, error) {
	var result server.SubmitReviewResponse
	resp, err := c.newRequest(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/api/reviews/")
	if err != nil {
		return server.SubmitReviewResponse{}, fmt.Errorf("submit review: %w", err)
	}
	if resp.IsError() {
		return server.SubmitReviewResponse{}, apiErrorFrom(resp)
	}
	return result, nil
}

// Forecast fetches the projected review load for the next days.
func (c *Client) Forecast(ctx context.Context, days int) ([]queue.ForecastDay, error) {
	var result struct {
		Forecast []queue.ForecastDay `json:"forecast"`
	}
	req := c.newRequest(ctx).SetResult(&result)
	if days > 0 {
		req.SetQueryParam("days", fmt.Sprintf("%d", days))
	}
	resp, err := req.Get("/api/reviews/forecast")
	if err != nil {
		return nil, fmt.Errorf("get forecast: %w", err)
	}
	if resp.IsError() {
		return nil, apiErrorFrom(resp)
	}
	return result.Forecast, nil
}

// History fetches the most recent ledger entries, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]server.HistoryEntry, error) {
	var result struct {
		History []server.HistoryEntry `json:"history"`
	}
	req := c.newRequest(ctx).SetResult(&result)
	if limit > 0 {
		req.SetQueryParam("limit", fmt.Sprintf("%d", limit))
	}
	resp, err := req.Get("/api/reviews/history")
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if resp.IsError() {
		return nil, apiErrorFrom(resp)
	}
	return result.History, nil
}

// Summary fetches the dashboard overview.
func (c *Client) Summary(ctx context.Context) (statistics.Summary, error) {
	var result statistics.Summary
	resp, err := c.newRequest(ctx).
		SetResult(&result).
		Get("/api/analytics/summary")
	if err != nil {
		return statistics.Summary{}, fmt.Errorf("get summary: %w", err)
	}
	if resp.IsError() {
		return statistics.Summary{}, apiErrorFrom(resp)
	}
	return result, nil
}

// Retention fetches the per-day success rate over the given window.
func (c *Client) Retention(ctx context.Context, days int) ([]statistics.RetentionDay, error) {
	var result struct {
		Retention []statistics.RetentionDay `json:"retention"`
	}
	req := c.newRequest(ctx).SetResult(&result)
	if days > 0 {
		req.SetQueryParam("days", fmt.Sprintf("%d", days))
	}
	resp, err := req.Get("/api/analytics/retention")
	if err != nil {
		return nil, fmt.Errorf("get retention: %w", err)
	}
	if resp.IsError() {
		return nil, apiErrorFrom(resp)
	}
	return result.Retention, nil
}

// Topics fetches per-topic performance aggregates.
func (c *Client) Topics(ctx context.Context) ([]statistics.TopicPerformance, error) {
	var result struct {
		Topics []statistics.TopicPerformance `json:"topics"`
	}
	resp, err := c.newRequest(ctx).
		SetResult(&result).
		Get("/api/analytics/topics")
	if err != nil {
		return nil, fmt.Errorf("get topics: %w", err)
	}
	if resp.IsError() {
		return nil, apiErrorFrom(resp)
	}
	return result.Topics, nil
}

// Heatmap fetches per-day review counts over the given window.
func (c *Client) Heatmap(ctx context.Context, days int) ([]statistics.HeatmapDay, error) {
	var result struct {
		Heatmap []statistics.HeatmapDay `json:"heatmap"`
	}
	req := c.newRequest(ctx).SetResult(&result)
	if days > 0 {
		req.SetQueryParam("days", fmt.Sprintf("%d", days))
	}
	resp, err := req.Get("/api/analytics/heatmap")
	if err != nil {
		return nil, fmt.Errorf("get heatmap: %w", err)
	}
	if resp.IsError() {
		return nil, apiErrorFrom(resp)
	}
	return result.Heatmap, nil
}

// CreateItem registers a new item with the scheduler.
func (c *Client) CreateItem(ctx context.Context, req server.CreateItemRequest) (server.ItemResponse, error) {
	var result server.ItemResponse
	resp, err := c.newRequest(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/api/items")
	if err != nil {
		return server.ItemResponse{}, fmt.Errorf("create item: %w", err)
	}
	if resp.IsError() {
		return server.ItemResponse{}, apiErrorFrom(resp)
	}
	return result, nil
}

// ArchiveItem removes an item from future selection.
func (c *Client) ArchiveItem(ctx context.Context, itemID string) error {
	resp, err := c.newRequest(ctx).
		Delete("/api/items/" + itemID)
	if err != nil {
		return fmt.Errorf("archive item: %w", err)
	}
	if resp.IsError() {
		return apiErrorFrom(resp)
	}
	return nil
}

// Settings fetches the user's scheduling preferences.
func (c *Client) Settings(ctx context.Context) (server.SettingsPayload, error) {
	var result server.SettingsPayload
	resp, err := c.newRequest(ctx).
		SetResult(&result).
		Get("/api/settings")
	if err != nil {
		return server.SettingsPayload{}, fmt.Errorf("get settings: %w", err)
	}
	if resp.IsError() {
		return server.SettingsPayload{}, apiErrorFrom(resp)
	}
	return result, nil
}

// SaveSettings replaces the user's scheduling preferences.
func (c *Client) SaveSettings(ctx context.Context, payload server.SettingsPayload) (server.SettingsPayload, error) {
	var result server.SettingsPayload
	resp, err := c.newRequest(ctx).
		SetBody(payload).
		SetResult(&result).
		Put("/api/settings")
	if err != nil {
		return server.SettingsPayload{}, fmt.Errorf("save settings: %w", err)
	}
	if resp.IsError() {
		return server.SettingsPayload{}, apiErrorFrom(resp)
	}
	return result, nil
}
