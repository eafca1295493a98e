package signaling

import (
	"log/slog"
	"sync"

	"github.com/teamatoi/meetcore/pkg/protocol"
)

// meetingState holds one meeting's participants and connections behind
// its own lock, so independent meetings never contend.
type meetingState struct {
	mu           sync.RWMutex
	participants map[string]*Participant
	conns        map[string]wsConn
}

func newMeetingState() *meetingState {
	return &meetingState{
		participants: make(map[string]*Participant),
		conns:        make(map[string]wsConn),
	}
}

// Registry is the ConnectionRegistry: per-meeting participant and
// connection maps, safe under concurrent inbound messages.
type Registry struct {
	mu       sync.RWMutex
	meetings map[string]*meetingState
}

func NewRegistry() *Registry {
	return &Registry{meetings: make(map[string]*meetingState)}
}

func (r *Registry) meeting(meetingID string) *meetingState {
	r.mu.RLock()
	m, ok := r.meetings[meetingID]
	r.mu.RUnlock()
	if ok {
		return m
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[meetingID]; ok {
		return m
	}
	m = newMeetingState()
	r.meetings[meetingID] = m
	return m
}

// Connect registers a participant's connection. If a prior connection
// exists for the same (meetingID, userID), it is closed first and
// displaced reports true, so the caller can emit the leave/join pair
// the displacement implies. At most one live connection exists per
// (meetingID, userID).
func (r *Registry) Connect(meetingID, userID, userName string, role Role, conn wsConn) (displaced bool) {
	m := r.meeting(meetingID)

	m.mu.Lock()
	old, had := m.conns[userID]
	m.conns[userID] = conn
	m.participants[userID] = &Participant{UserID: userID, UserName: userName, Role: role}
	m.mu.Unlock()

	if had {
		old.Close()
	}
	return had
}

// Disconnect removes a participant's state and closes its connection.
// Returns false if the participant was not present (caller should skip
// the PARTICIPANT_LEFT broadcast in that case).
func (r *Registry) Disconnect(meetingID, userID string) bool {
	m := r.meeting(meetingID)

	m.mu.Lock()
	conn, existed := m.conns[userID]
	delete(m.conns, userID)
	delete(m.participants, userID)
	m.mu.Unlock()

	if existed && conn != nil {
		conn.Close()
	}
	return existed
}

// DisconnectConn removes the participant only if conn is still the one
// registered for (meetingID, userID). A handler whose connection was
// displaced by a newer one calls this on teardown and gets false back,
// leaving the newer connection untouched.
func (r *Registry) DisconnectConn(meetingID, userID string, conn wsConn) bool {
	m := r.meeting(meetingID)

	m.mu.Lock()
	current, existed := m.conns[userID]
	if !existed || current != conn {
		m.mu.Unlock()
		return false
	}
	delete(m.conns, userID)
	delete(m.participants, userID)
	m.mu.Unlock()

	conn.Close()
	return true
}

func (r *Registry) GetParticipant(meetingID, userID string) (Participant, bool) {
	m := r.meeting(meetingID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[userID]
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

func (r *Registry) GetParticipants(meetingID string) []Participant {
	m := r.meeting(meetingID)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Participant, 0, len(m.participants))
	for _, p := range m.participants {
		out = append(out, *p)
	}
	return out
}

func (r *Registry) UpdateMuteStatus(meetingID, userID string, muted bool) {
	m := r.meeting(meetingID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.participants[userID]; ok {
		p.AudioMuted = muted
	}
}

// SendToUser is point-to-point; it drops silently if the recipient is
// absent.
func (r *Registry) SendToUser(meetingID, userID string, msg protocol.OutboundMessage) {
	m := r.meeting(meetingID)
	m.mu.RLock()
	conn, ok := m.conns[userID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if err := conn.WriteJSON(msg); err != nil {
		slog.Warn("signaling: send to user failed", "meeting_id", meetingID, "user_id", userID, "error", err)
	}
}

// Broadcast fans a message out to every connected participant except
// excludeUserID (pass "" to include everyone). A send failure to one
// recipient is isolated and does not affect the others.
func (r *Registry) Broadcast(meetingID string, msg protocol.OutboundMessage, excludeUserID string) {
	m := r.meeting(meetingID)
	m.mu.RLock()
	targets := make(map[string]wsConn, len(m.conns))
	for uid, c := range m.conns {
		if uid == excludeUserID {
			continue
		}
		targets[uid] = c
	}
	m.mu.RUnlock()

	for uid, conn := range targets {
		if err := conn.WriteJSON(msg); err != nil {
			slog.Warn("signaling: broadcast failed", "meeting_id", meetingID, "user_id", uid, "error", err)
		}
	}
}
