package restapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/teamatoi/meetcore/internal/realtimeworker"
)

// Client is the RealtimeWorker's HTTP client for the platform
// backend: transcript upload and lifecycle notifications. It
// implements realtimeworker.TranscriptUploader and
// realtimeworker.BackendNotifier.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

var _ realtimeworker.TranscriptUploader = (*Client)(nil)
var _ realtimeworker.BackendNotifier = (*Client)(nil)

func (c *Client) UploadSegment(ctx context.Context, meetingID string, seg realtimeworker.TranscriptSegment) (int64, error) {
	body, err := json.Marshal(map[string]interface{}{
		"user_id":               seg.UserID,
		"start_ms":              seg.StartMs,
		"end_ms":                seg.EndMs,
		"text":                  seg.Text,
		"confidence":            seg.Confidence,
		"min_confidence":        seg.MinConfidence,
		"agent_call":            seg.AgentCall,
		"agent_call_keyword":    seg.AgentCallKeyword,
		"agent_call_confidence": seg.AgentCallConfidence,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal transcript segment: %w", err)
	}

	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.postJSON(ctx, fmt.Sprintf("/meetings/%s/transcript-segments", meetingID), body, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

func (c *Client) NotifyContextUpdate(ctx context.Context, meetingID, userID string) error {
	body, _ := json.Marshal(map[string]string{"user_id": userID})
	return c.postJSON(ctx, fmt.Sprintf("/meetings/%s/context-update", meetingID), body, nil)
}

func (c *Client) NotifyMeetingComplete(ctx context.Context, meetingID string) error {
	return c.postJSON(ctx, fmt.Sprintf("/meetings/%s/complete", meetingID), nil, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("backend %s returned %d", path, resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
