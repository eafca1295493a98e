// Package agentsvc exposes the orchestration graph over HTTP: an SSE
// streaming endpoint for voice-mode runs (consumed by
// internal/agentstream.Client) and a synchronous JSON pair for
// spotlight-mode runs that may interrupt for HITL confirmation.
package agentsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/r3labs/sse/v2"

	"github.com/teamatoi/meetcore/internal/orchestration"
	"github.com/teamatoi/meetcore/internal/telemetry"
	"github.com/teamatoi/meetcore/internal/tools"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

// ContextProvider supplies the orchestration planner's context
// snapshot for a meeting, bridging internal/context.Manager into a run
// without this package importing it directly (keeps agentsvc testable
// with a fake).
type ContextProvider interface {
	CurrentContextSnapshot(meetingID string) string
}

// Server hosts one Runner behind HTTP for both orchestration variants.
type Server struct {
	runner  *orchestration.Runner
	sse     *sse.Server
	context ContextProvider
	metrics *telemetry.Metrics
}

// NewServer builds the agent service. metrics may be nil (no
// recording), which tests use.
func NewServer(runner *orchestration.Runner, context ContextProvider, metrics *telemetry.Metrics) *Server {
	s := &Server{
		runner:  runner,
		sse:     sse.New(),
		context: context,
		metrics: metrics,
	}
	s.sse.AutoReplay = false
	return s
}

// RegisterRoutes wires this service's endpoints onto mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /agent/voice/runs", s.handleVoiceStart)
	mux.HandleFunc("GET /agent/voice/stream", s.handleVoiceSubscribe)
	mux.HandleFunc("POST /agent/runs", s.handleSpotlightStart)
	mux.HandleFunc("POST /agent/runs/{runID}/resume", s.handleSpotlightResume)
}

type voiceStartRequest struct {
	MeetingID string `json:"meeting_id"`
	Channel   string `json:"channel"` // SSE stream key the caller subscribes to
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
}

// handleVoiceStart kicks off a voice-mode run in the background,
// publishing its events onto req.Channel, and returns immediately: the
// caller subscribes separately via handleVoiceSubscribe (split from a
// single request/response because r3labs/sse's client-side Subscribe
// issues its own GET, so starting and consuming a run can't share one
// HTTP round trip).
func (s *Server) handleVoiceStart(w http.ResponseWriter, r *http.Request) {
	var req voiceStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Channel == "" {
		req.Channel = req.MeetingID
	}
	s.sse.CreateStream(req.Channel)

	st := &orchestration.State{
		Mode:    tools.ModeVoice,
		Channel: orchestration.ChannelVoice,
		Messages: []orchestration.Message{
			{Role: "user", Content: req.Message},
		},
	}
	if s.context != nil {
		st.ContextSnapshot = s.context.CurrentContextSnapshot(req.MeetingID)
	}

	ctx := tools.WithCallerUserID(r.Context(), req.UserID)
	st.StreamFn = func(token string) {
		s.sse.Publish(req.Channel, &sse.Event{Event: []byte(protocol.AgentStreamMessage), Data: []byte(marshalContent(token))})
	}

	go func() {
		s.sse.Publish(req.Channel, &sse.Event{Event: []byte(protocol.AgentStreamStatus), Data: []byte(marshalContent("thinking"))})
		final, err := s.runner.Start(context.WithoutCancel(ctx), st)
		if err != nil {
			// Voice mode carries query tools only, so a HITL interrupt
			// here is a programming error, not a flow we stream around.
			slog.Error("agentsvc: voice run failed", "meeting_id", req.MeetingID, "error", err)
			s.sse.Publish(req.Channel, &sse.Event{Event: []byte(protocol.AgentStreamError), Data: []byte(marshalContent(err.Error()))})
			return
		}
		s.sse.Publish(req.Channel, &sse.Event{Event: []byte(protocol.AgentStreamDone), Data: []byte(marshalContent(final.FinalResponse))})
	}()

	writeJSON(w, http.StatusAccepted, struct {
		Channel string `json:"channel"`
	}{req.Channel})
}

// handleVoiceSubscribe serves the SSE stream for a channel already
// started by handleVoiceStart; sse.Server reads the "stream" query
// parameter itself (r3labs/sse/v2's CreateStream/Publish model).
func (s *Server) handleVoiceSubscribe(w http.ResponseWriter, r *http.Request) {
	s.sse.ServeHTTP(w, r)
}

func marshalContent(content string) string {
	out, _ := json.Marshal(struct {
		Content string `json:"content"`
	}{content})
	return string(out)
}

type spotlightRunRequest struct {
	MeetingID string `json:"meeting_id"`
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
}

type spotlightRunResponse struct {
	RunID         string                 `json:"run_id"`
	FinalResponse string                 `json:"final_response,omitempty"`
	HITL          *protocol.HITLPayload  `json:"hitl,omitempty"`
}

// handleSpotlightStart runs a spotlight-mode query synchronously to
// completion or HITL interrupt, returning whichever comes first.
func (s *Server) handleSpotlightStart(w http.ResponseWriter, r *http.Request) {
	var req spotlightRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	st := &orchestration.State{
		RunID:   uuid.NewString(),
		Mode:    tools.ModeSpotlight,
		Channel: orchestration.ChannelText,
		Messages: []orchestration.Message{
			{Role: "user", Content: req.Message},
		},
	}
	if s.context != nil {
		st.ContextSnapshot = s.context.CurrentContextSnapshot(req.MeetingID)
	}

	ctx := tools.WithCallerUserID(r.Context(), req.UserID)
	final, err := s.runner.Start(ctx, st)
	s.writeRunResult(w, st.RunID, final, err)
}

type spotlightResumeRequest struct {
	protocol.HITLResume
	UserID string `json:"user_id"`
}

func (s *Server) handleSpotlightResume(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	var req spotlightResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := tools.WithCallerUserID(r.Context(), req.UserID)
	final, err := s.runner.Resume(ctx, runID, req.HITLResume)
	if err == nil && s.metrics != nil {
		s.metrics.RecordHITLResolution(req.Action)
	}
	s.writeRunResult(w, runID, final, err)
}

func (s *Server) writeRunResult(w http.ResponseWriter, runID string, final *orchestration.State, err error) {
	if interrupted, ok := err.(*orchestration.ErrInterrupted); ok {
		if s.metrics != nil {
			s.metrics.RecordHITLInterrupt(interrupted.Payload.ToolName)
		}
		writeJSON(w, http.StatusOK, spotlightRunResponse{RunID: interrupted.RunID, HITL: &interrupted.Payload})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, spotlightRunResponse{RunID: runID, FinalResponse: final.FinalResponse})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
