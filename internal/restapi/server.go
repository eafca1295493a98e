// Package restapi hosts the meeting-room and transcript-upload REST
// surface workers talk to. Room scheduling itself belongs to the
// platform backend; the room endpoints here are thin in-memory stand-
// ins, while transcript upload and the context-update/complete hooks
// are backed by this module's own stores.
package restapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	mcontext "github.com/teamatoi/meetcore/internal/context"
)

// RoomStatus mirrors the platform's meeting lifecycle.
type RoomStatus string

const (
	RoomScheduled RoomStatus = "SCHEDULED"
	RoomOngoing   RoomStatus = "ONGOING"
	RoomCompleted RoomStatus = "COMPLETED"
)

// TranscriptStore is the persistence collaborator this server inserts
// finalized utterances into (internal/store/pg.TranscriptStore in
// production, an in-memory fake in tests). Its ID assignment, not this
// server's in-memory counter, is authoritative when set.
type TranscriptStore interface {
	InsertUtterance(ctx context.Context, meetingID string, u mcontext.Utterance) (int64, error)
}

// Server is the stub collaborator backend.
type Server struct {
	engine *gin.Engine

	transcripts  TranscriptStore
	mu           sync.Mutex
	rooms        map[string]*room
	onContextUpd func(meetingID, userID string)
	onComplete   func(meetingID string)
}

type room struct {
	status          RoomStatus
	participants    []string
	maxParticipants int
	nextUtteranceID int64
}

// NewServer builds the stub server. transcripts may be nil, in which
// case transcript-segments are only counted, not persisted.
// onContextUpd/onComplete are optional hooks integration tests use to
// observe worker notifications without standing up a real event bus.
func NewServer(transcripts TranscriptStore, onContextUpd func(meetingID, userID string), onComplete func(meetingID string)) *Server {
	s := &Server{
		engine:       gin.New(),
		transcripts:  transcripts,
		rooms:        make(map[string]*room),
		onContextUpd: onContextUpd,
		onComplete:   onComplete,
	}
	s.routes()
	return s
}

// Engine exposes the underlying gin.Engine for httptest.NewServer.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Seed registers a meeting room for tests that need GET /room to
// succeed before any POST /start.
func (s *Server) Seed(meetingID string, maxParticipants int, participants ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[meetingID] = &room{status: RoomScheduled, participants: participants, maxParticipants: maxParticipants}
}

func (s *Server) getOrCreate(meetingID string) *room {
	r, ok := s.rooms[meetingID]
	if !ok {
		r = &room{status: RoomScheduled, maxParticipants: 50}
		s.rooms[meetingID] = r
	}
	return r
}

func (s *Server) routes() {
	s.engine.GET("/meetings/:id/room", s.handleGetRoom)
	s.engine.POST("/meetings/:id/start", s.handleStart)
	s.engine.POST("/meetings/:id/end", s.handleEnd)
	s.engine.POST("/meetings/:id/transcript-segments", s.handleTranscriptSegment)
	s.engine.POST("/meetings/:id/context-update", s.handleContextUpdate)
	s.engine.POST("/meetings/:id/complete", s.handleComplete)
}

func (s *Server) handleGetRoom(c *gin.Context) {
	meetingID := c.Param("id")

	s.mu.Lock()
	r, ok := s.rooms[meetingID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meetingId":       meetingID,
		"status":          r.status,
		"participants":    r.participants,
		"iceServers":      []gin.H{},
		"maxParticipants": r.maxParticipants,
	})
}

func (s *Server) handleStart(c *gin.Context) {
	meetingID := c.Param("id")

	s.mu.Lock()
	r := s.getOrCreate(meetingID)
	if r.status != RoomScheduled {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "meeting already started"})
		return
	}
	r.status = RoomOngoing
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"meetingId": meetingID, "status": r.status})
}

func (s *Server) handleEnd(c *gin.Context) {
	meetingID := c.Param("id")

	s.mu.Lock()
	r := s.getOrCreate(meetingID)
	r.status = RoomCompleted
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"meetingId": meetingID, "status": r.status})
}

// transcriptSegmentRequest is the transcript-segments request body.
type transcriptSegmentRequest struct {
	UserID              string  `json:"user_id" binding:"required"`
	StartMs             int64   `json:"start_ms"`
	EndMs               int64   `json:"end_ms"`
	Text                string  `json:"text" binding:"required"`
	Confidence          float64 `json:"confidence"`
	MinConfidence       float64 `json:"min_confidence"`
	AgentCall           bool    `json:"agent_call"`
	AgentCallKeyword    string  `json:"agent_call_keyword"`
	AgentCallConfidence float64 `json:"agent_call_confidence"`
}

func (s *Server) handleTranscriptSegment(c *gin.Context) {
	meetingID := c.Param("id")
	var req transcriptSegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.transcripts != nil {
		u := mcontext.Utterance{
			SpeakerID:         req.UserID,
			Text:              req.Text,
			StartMs:           req.StartMs,
			EndMs:             req.EndMs,
			Confidence:        req.Confidence,
			AbsoluteTimestamp: time.Now(),
		}
		id, err := s.transcripts.InsertUtterance(c.Request.Context(), meetingID, u)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": id})
		return
	}

	s.mu.Lock()
	r := s.getOrCreate(meetingID)
	r.nextUtteranceID++
	id := r.nextUtteranceID
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"id": id})
}

type contextUpdateRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleContextUpdate(c *gin.Context) {
	meetingID := c.Param("id")
	var req contextUpdateRequest
	_ = c.ShouldBindJSON(&req)
	if s.onContextUpd != nil {
		s.onContextUpd(meetingID, req.UserID)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleComplete(c *gin.Context) {
	meetingID := c.Param("id")
	s.mu.Lock()
	r := s.getOrCreate(meetingID)
	r.status = RoomCompleted
	s.mu.Unlock()
	if s.onComplete != nil {
		s.onComplete(meetingID)
	}
	c.Status(http.StatusNoContent)
}
