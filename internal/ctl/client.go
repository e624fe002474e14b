package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/classroom/internal/domain/types"
)

// ErrRequest marks a request the service answered with a non-2xx status.
var ErrRequest = errors.New("request failed")

// APIError carries the service's error body.
type APIError struct {
	Status int
	Body   types.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %d %s", ErrRequest, e.Status, e.Body.Error)
	if e.Body.Details != "" {
		msg += " (" + e.Body.Details + ")"
	}
	return msg
}

func (e *APIError) Unwrap() error { return ErrRequest }

// Client talks to a running classroom service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Pick asks the service to pick a student of classID.
func (c *Client) Pick(ctx context.Context, classID string) (types.PickResponse, error) {
	var out types.PickResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("/random-picker", classID, nil), nil, &out)
	return out, err
}

// Reset discards today's pick history of classID.
func (c *Client) Reset(ctx context.Context, classID string) (types.MessageResponse, error) {
	var out types.MessageResponse
	body := types.PickerAction{Action: types.ActionResetHistory}
	err := c.do(ctx, http.MethodPost, c.endpoint("/random-picker", classID, nil), body, &out)
	return out, err
}

// Stats reads today's picker statistics of classID.
func (c *Client) Stats(ctx context.Context, classID string) (types.StatsResponse, error) {
	var out types.StatsResponse
	q := url.Values{"ajax_data": {"1"}}
	err := c.do(ctx, http.MethodGet, c.endpoint("/random-picker", classID, q), nil, &out)
	return out, err
}

// IssuePass issues a hall pass in classID.
func (c *Client) IssuePass(ctx context.Context, classID string, req types.IssuePassRequest) (types.PassResponse, error) {
	var out types.PassResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("/hall-pass-manager", classID, nil), req, &out)
	return out, err
}

// ReturnPass marks the pass with id as returned.
func (c *Client) ReturnPass(ctx context.Context, id string) (types.PassResponse, error) {
	var out types.PassResponse
	err := c.do(ctx, http.MethodPost, c.endpoint("/return-pass", "", nil), types.ReturnPassRequest{PassID: id}, &out)
	return out, err
}

// ListPasses lists today's passes of classID.
func (c *Client) ListPasses(ctx context.Context, classID string) (types.PassListResponse, error) {
	var out types.PassListResponse
	q := url.Values{"ajax_data": {"1"}}
	err := c.do(ctx, http.MethodGet, c.endpoint("/hall-pass-manager", classID, q), nil, &out)
	return out, err
}

func (c *Client) endpoint(path, classID string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	if classID != "" {
		q.Set("class", classID)
	}
	if len(q) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, &apiErr.Body) != nil || apiErr.Body.Error == "" {
			apiErr.Body.Error = strings.TrimSpace(string(data))
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
