package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/teamatoi/meetcore/pkg/protocol"
)

// Server is the WebSocket signaling gateway: it upgrades connections,
// authenticates the caller, and runs each connection's read loop
// against the dispatcher until "leave" or socket close.
type Server struct {
	registry   *Registry
	dispatcher *Dispatcher
	auth       Authenticator

	allowedOrigins []string
	rateLimitRPM   int
	upgrader       websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux
}

type Identity struct {
	UserID   string
	UserName string
	Role     Role
}

// Authenticator resolves a join request into a participant identity.
// Production deployments validate the request's bearer token (the
// `?token=` query parameter) against the auth collaborator; the
// default QueryAuthenticator trusts the caller-supplied identity and
// is only suitable for development.
type Authenticator interface {
	Authenticate(r *http.Request, meetingID string) (Identity, error)
}

// QueryAuthenticator reads the identity straight from query parameters
// with no token validation.
type QueryAuthenticator struct{}

func (QueryAuthenticator) Authenticate(r *http.Request, meetingID string) (Identity, error) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		return Identity{}, fmt.Errorf("missing user_id")
	}
	role := Role(r.URL.Query().Get("role"))
	if role == "" {
		role = RoleParticipant
	}
	return Identity{
		UserID:   userID,
		UserName: r.URL.Query().Get("user_name"),
		Role:     role,
	}, nil
}

// NewServer builds the gateway. auth may be nil, in which case the
// insecure QueryAuthenticator is used. rateLimitRPM bounds inbound
// messages per connection per minute; 0 disables limiting.
func NewServer(registry *Registry, dispatcher *Dispatcher, auth Authenticator, allowedOrigins []string, rateLimitRPM int) *Server {
	if auth == nil {
		auth = QueryAuthenticator{}
	}
	s := &Server{
		registry:       registry,
		dispatcher:     dispatcher,
		auth:           auth,
		allowedOrigins: allowedOrigins,
		rateLimitRPM:   rateLimitRPM,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// checkOrigin allows all origins when none are configured (dev mode),
// always allows non-browser clients with no Origin header, otherwise
// matches against the allow-list.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, a := range s.allowedOrigins {
		if origin == a || a == "*" {
			return true
		}
	}
	slog.Warn("signaling: CORS rejected", "origin", origin)
	return false
}

func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/meetings/", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	s.mux = mux
	return mux
}

func (s *Server) Start(ctx context.Context, addr string) error {
	mux := s.BuildMux()
	s.httpServer = &http.Server{Addr: addr, Handler: mux}

	slog.Info("signaling server starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("signaling server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, `{"status":"ok"}`)
}

// handleWebSocket upgrades the connection, identifies the caller, and
// runs its read loop until "leave" or disconnect.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	meetingID := strings.TrimPrefix(r.URL.Path, "/ws/meetings/")
	meetingID = strings.TrimSuffix(meetingID, "/ws")
	if meetingID == "" {
		http.Error(w, "missing meeting id", http.StatusBadRequest)
		return
	}

	identity, err := s.auth.Authenticate(r, meetingID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("signaling: websocket upgrade failed", "error", err)
		return
	}
	conn := NewConn(ws)

	if s.registry.Connect(meetingID, identity.UserID, identity.UserName, identity.Role, conn) {
		// The same user reconnected and displaced an earlier socket:
		// tell everyone else the old session is gone before the new
		// join flows.
		s.registry.Broadcast(meetingID, eventParticipantLeft(identity.UserID), identity.UserID)
	}
	slog.Info("signaling: participant connected", "meeting_id", meetingID, "user_id", identity.UserID)

	defer func() {
		if s.registry.DisconnectConn(meetingID, identity.UserID, conn) {
			s.registry.Broadcast(meetingID, eventParticipantLeft(identity.UserID), identity.UserID)
		}
		conn.Close()
		slog.Info("signaling: participant disconnected", "meeting_id", meetingID, "user_id", identity.UserID)
	}()

	s.readLoop(r.Context(), ws, meetingID, identity.UserID)
}

func (s *Server) readLoop(ctx context.Context, ws *websocket.Conn, meetingID, userID string) {
	var limiter *rate.Limiter
	if s.rateLimitRPM > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(s.rateLimitRPM)/60.0), s.rateLimitRPM)
	}

	for {
		var msg protocol.InboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Warn("signaling: read error", "meeting_id", meetingID, "user_id", userID, "error", err)
			}
			return
		}
		if limiter != nil && !limiter.Allow() {
			slog.Warn("signaling: rate limit exceeded, dropping message", "meeting_id", meetingID, "user_id", userID, "kind", msg.Type)
			continue
		}
		if s.dispatcher.Dispatch(ctx, meetingID, userID, msg) {
			return
		}
	}
}

func eventParticipantLeft(userID string) protocol.OutboundMessage {
	return protocol.OutboundMessage{
		Type:    protocol.EventParticipantLeft,
		Payload: map[string]interface{}{"userId": userID},
	}
}
