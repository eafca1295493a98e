package controlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client is the RealtimeWorker-side HTTP client for this module's
// control-plane server, implementing realtimeworker.ChatBroadcaster so
// the worker process can speak into a meeting without a direct
// signaling.Registry reference.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

// PublishChatMessage satisfies realtimeworker.ChatBroadcaster. Failures
// are discarded (neither returned nor logged), matching the interface's
// fire-and-forget shape.
func (c *Client) PublishChatMessage(meetingID, text string) {
	_ = c.postJSON(context.Background(), fmt.Sprintf("/control/meetings/%s/chat", meetingID), chatBroadcastRequest{Text: text})
}

// PublishStatus satisfies realtimeworker.ChatBroadcaster.
func (c *Client) PublishStatus(meetingID, text, uiState string) {
	_ = c.postJSON(context.Background(), fmt.Sprintf("/control/meetings/%s/status", meetingID), statusBroadcastRequest{Text: text, UIState: uiState})
}

// Release satisfies realtimeworker.CredentialReleaser, letting the
// worker process release its meeting's STT credential through the
// control plane that actually owns the pool.
func (c *Client) Release(ctx context.Context, meetingID string) (bool, error) {
	var out struct {
		Released bool `json:"released"`
	}
	if err := c.postJSONResult(ctx, fmt.Sprintf("/control/meetings/%s/release-credential", meetingID), nil, &out); err != nil {
		return false, err
	}
	return out.Released, nil
}

func (c *Client) postJSONResult(ctx context.Context, path string, body interface{}, out interface{}) error {
	var buf []byte
	var err error
	if body != nil {
		buf, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("controlapi client: marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("controlapi client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controlapi client: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("controlapi client: %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, path string, body interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("controlapi client: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("controlapi client: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("controlapi client: %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("controlapi client: %s: status %d", path, resp.StatusCode)
	}
	return nil
}
