// Package agentstream is the RealtimeWorker's SSE consumer for the
// orchestration service's agent streaming contract: server-sent events
// shaped `event: {status|message|done|error}` with JSON
// `data: {content, ...}`.
package agentstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/r3labs/sse/v2"

	"github.com/teamatoi/meetcore/pkg/protocol"
)

// Client consumes one agent run's SSE stream from the orchestration
// service. Starting a run and subscribing to it are two separate HTTP
// calls: r3labs/sse/v2's client only knows how to GET-subscribe, so
// Stream first POSTs the triggering message to kick the run off, then
// subscribes to the channel it was started on.
type Client struct {
	sse      *sse.Client
	http     *http.Client
	startURL string
}

// New builds a Client against baseURL, the orchestration service's host
// (e.g. "http://agentsvc:8081"); it POSTs to baseURL+"/agent/voice/runs"
// to start a run and subscribes for events at
// baseURL+"/agent/voice/stream".
func New(baseURL string) *Client {
	return &Client{
		sse:      sse.NewClient(baseURL + "/agent/voice/stream"),
		http:     &http.Client{Timeout: 10 * time.Second},
		startURL: baseURL + "/agent/voice/runs",
	}
}

type startRunRequest struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// Stream starts a voice-mode run for message on channel, then
// subscribes to its events and invokes onEvent for each decoded
// AgentStreamEvent, blocking until a "done"/"error" event or ctx
// cancellation (the RealtimeWorker cancels ctx on wake-word
// barge-in).
func (c *Client) Stream(ctx context.Context, channel, message string, onEvent func(protocol.AgentStreamEvent)) error {
	if err := c.startRun(ctx, channel, message); err != nil {
		return err
	}

	events := make(chan *sse.Event)
	go func() {
		_ = c.sse.SubscribeChanWithContext(ctx, channel, events)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			decoded, stop, err := decode(ev)
			if err != nil {
				return fmt.Errorf("agentstream: decode event: %w", err)
			}
			onEvent(decoded)
			if stop {
				return nil
			}
		}
	}
}

// startRun POSTs the triggering message so the orchestration service
// creates channel's SSE stream and begins publishing to it before this
// client subscribes.
func (c *Client) startRun(ctx context.Context, channel, message string) error {
	buf, err := json.Marshal(startRunRequest{Channel: channel, Message: message})
	if err != nil {
		return fmt.Errorf("agentstream: marshal start request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.startURL, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("agentstream: build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agentstream: start run: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("agentstream: start run: status %d", resp.StatusCode)
	}
	return nil
}

func decode(ev *sse.Event) (protocol.AgentStreamEvent, bool, error) {
	kind := string(ev.Event)
	if kind == "" {
		kind = protocol.AgentStreamMessage
	}

	var payload struct {
		Content string `json:"content"`
	}
	if len(ev.Data) > 0 {
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			return protocol.AgentStreamEvent{}, false, err
		}
	}

	out := protocol.AgentStreamEvent{Event: kind, Content: payload.Content}
	stop := kind == protocol.AgentStreamDone || kind == protocol.AgentStreamError
	return out, stop, nil
}
