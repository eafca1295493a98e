// Package signaling implements the WebRTC signaling hub: a
// connection registry tracking per-meeting participants and sockets,
// and a message dispatcher routing inbound signaling messages to
// per-kind handlers.
package signaling

// Role is a participant's privilege level within a meeting.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// Participant is the registry's view of one connected user.
type Participant struct {
	UserID     string
	UserName   string
	Role       Role
	AudioMuted bool
}

func (p Participant) IsHost() bool { return p.Role == RoleHost }
