// Package controlapi is this module's control-plane HTTP surface:
// meeting start/stop (credential allocation + RealtimeWorker
// lifecycle), worker listing, and the bot-broadcast endpoints a
// RealtimeWorker process calls to speak into a meeting's signaling hub
// without opening a second WebSocket connection. Distinct from
// internal/restapi, which stands in for the external platform backend.
package controlapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teamatoi/meetcore/internal/apperr"
	"github.com/teamatoi/meetcore/internal/credential"
	"github.com/teamatoi/meetcore/internal/signaling"
	"github.com/teamatoi/meetcore/internal/telemetry"
	"github.com/teamatoi/meetcore/internal/workermanager"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

// Server hosts the control-plane endpoints.
type Server struct {
	engine *gin.Engine

	credentials credential.Pool
	workers     workermanager.Manager
	registry    *signaling.Registry
	metrics     *telemetry.Metrics
}

// NewServer builds the control plane. metrics may be nil (no
// recording), which tests use.
func NewServer(credentials credential.Pool, workers workermanager.Manager, registry *signaling.Registry, metrics *telemetry.Metrics) *Server {
	s := &Server{
		engine:      gin.New(),
		credentials: credentials,
		workers:     workers,
		registry:    registry,
		metrics:     metrics,
	}
	s.routes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) routes() {
	s.engine.POST("/control/meetings/:id/start", s.handleStartMeeting)
	s.engine.POST("/control/meetings/:id/stop", s.handleStopMeeting)
	s.engine.GET("/control/meetings/:id/workers", s.handleListWorkers)
	s.engine.GET("/control/credentials", s.handleCredentialStatus)
	s.engine.POST("/control/meetings/:id/chat", s.handleBroadcastChat)
	s.engine.POST("/control/meetings/:id/status", s.handleBroadcastStatus)
	s.engine.POST("/control/meetings/:id/release-credential", s.handleReleaseCredential)
}

// handleReleaseCredential lets a RealtimeWorker process release its
// own meeting's STT credential on exit, since the pool itself lives
// only in this control-plane process, not the worker's.
func (s *Server) handleReleaseCredential(c *gin.Context) {
	meetingID := c.Param("id")
	released, err := s.credentials.Release(c.Request.Context(), meetingID)
	if err != nil {
		c.JSON(httpStatusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": released})
}

// httpStatusFor maps the error taxonomy onto HTTP statuses; anything
// unclassified is a 500.
func httpStatusFor(err error) int {
	kind, ok := apperr.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.Conflict:
		return http.StatusConflict
	case apperr.QuotaExhausted:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type startMeetingResponse struct {
	WorkerID        string `json:"worker_id"`
	CredentialIndex int    `json:"credential_index"`
}

// handleStartMeeting allocates a credential and starts the meeting's
// RealtimeWorker, releasing the credential again if worker start
// fails.
func (s *Server) handleStartMeeting(c *gin.Context) {
	meetingID := c.Param("id")

	index, err := s.credentials.Allocate(c.Request.Context(), meetingID)
	if err != nil {
		if errors.Is(err, credential.ErrExhausted) && s.metrics != nil {
			s.metrics.RecordCredentialAllocation(false)
		}
		c.JSON(httpStatusFor(err), gin.H{"error": err.Error()})
		return
	}
	if s.metrics != nil {
		s.metrics.RecordCredentialAllocation(true)
		s.metrics.ActiveMeetings.Inc()
	}

	workerID, err := s.workers.StartWorker(c.Request.Context(), meetingID, index)
	if err != nil {
		_, _ = s.credentials.Release(c.Request.Context(), meetingID)
		if s.metrics != nil {
			s.metrics.ActiveMeetings.Dec()
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, startMeetingResponse{WorkerID: workerID, CredentialIndex: index})
}

type stopMeetingRequest struct {
	WorkerID string `json:"worker_id" binding:"required"`
}

func (s *Server) handleStopMeeting(c *gin.Context) {
	meetingID := c.Param("id")
	var req stopMeetingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stopped, err := s.workers.StopWorker(c.Request.Context(), req.WorkerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	released, err := s.credentials.Release(c.Request.Context(), meetingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if s.metrics != nil && released {
		s.metrics.ActiveMeetings.Dec()
	}
	c.JSON(http.StatusOK, gin.H{"stopped": stopped, "credential_released": released})
}

func (s *Server) handleListWorkers(c *gin.Context) {
	meetingID := c.Param("id")
	workers, err := s.workers.ListWorkers(c.Request.Context(), meetingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workers": workers})
}

func (s *Server) handleCredentialStatus(c *gin.Context) {
	status, err := s.credentials.Status(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if s.metrics != nil {
		for _, cs := range status {
			s.metrics.CredentialPoolLoad.WithLabelValues(strconv.Itoa(cs.Index)).Set(float64(cs.Meetings))
		}
	}
	c.JSON(http.StatusOK, gin.H{"credentials": status})
}

type chatBroadcastRequest struct {
	Text string `json:"text" binding:"required"`
}

// handleBroadcastChat lets a RealtimeWorker process speak a completed
// agent response into the meeting's chat as a bot participant, without
// the worker holding a direct *signaling.Registry reference across the
// process boundary.
func (s *Server) handleBroadcastChat(c *gin.Context) {
	meetingID := c.Param("id")
	var req chatBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.registry.Broadcast(meetingID, protocol.OutboundMessage{
		Type: protocol.EventChatMessage,
		Payload: map[string]interface{}{
			"userId":   "agent",
			"userName": "Assistant",
			"content":  req.Text,
		},
	}, "")
	c.Status(http.StatusNoContent)
}

type statusBroadcastRequest struct {
	Text    string `json:"text"`
	UIState string `json:"ui_state" binding:"required"`
}

// handleBroadcastStatus relays the agent pipeline's ephemeral UI status
// (thinking/speaking/listening/idle) to every participant, backing
// realtimeworker.ChatBroadcaster.PublishStatus over HTTP.
func (s *Server) handleBroadcastStatus(c *gin.Context) {
	meetingID := c.Param("id")
	var req statusBroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.registry.Broadcast(meetingID, protocol.OutboundMessage{
		Type: protocol.EventAgentStatus,
		Payload: map[string]interface{}{
			"text":    req.Text,
			"uiState": req.UIState,
		},
	}, "")
	c.Status(http.StatusNoContent)
}
