// Package protocol defines the wire-level message and event shapes shared
// between the signaling hub, the realtime worker, and the orchestration
// graph. Signaling message fields use camelCase and the HITL payload
// types in agentstream.go use snake_case, each matching the external
// contract.
package protocol

import "encoding/json"

// Inbound signaling message kinds (client -> server).
const (
	KindJoin                = "join"
	KindOffer               = "offer"
	KindAnswer              = "answer"
	KindICECandidate        = "ice-candidate"
	KindMute                = "mute"
	KindForceMute           = "force-mute"
	KindScreenShareStart    = "screen-share-start"
	KindScreenShareStop     = "screen-share-stop"
	KindScreenOffer         = "screen-offer"
	KindScreenAnswer        = "screen-answer"
	KindScreenICECandidate  = "screen-ice-candidate"
	KindChatMessage         = "chat-message"
	KindLeave               = "leave"
)

// Outbound signaling message kinds (server -> client).
const (
	EventConnected            = "connected"
	EventJoined               = "joined"
	EventParticipantJoined    = "participant-joined"
	EventParticipantLeft      = "participant-left"
	EventParticipantMuted     = "participant-muted"
	EventForceMuted           = "force-muted"
	EventOffer                = "offer"
	EventAnswer               = "answer"
	EventICECandidate         = "ice-candidate"
	EventScreenShareStarted   = "screen-share-started"
	EventScreenShareStopped   = "screen-share-stopped"
	EventScreenOffer          = "screen-offer"
	EventScreenAnswer         = "screen-answer"
	EventScreenICECandidate   = "screen-ice-candidate"
	EventChatMessage          = "chat-message"
	EventAgentStatus          = "agent-status"
	EventError                = "error"
)

// Agent UI-status values carried in an EventAgentStatus payload,
// distinct from the SSE AgentStreamStatus values in agentstream.go:
// these are ephemeral per-meeting broadcast states, not per-run stream
// events, and reach every participant's WebSocket rather than one SSE
// subscriber.
const (
	AgentUIIdle      = "idle"
	AgentUIListening = "listening"
	AgentUIThinking  = "thinking"
	AgentUISpeaking  = "speaking"
)

// Error codes carried in an EventError payload.
const (
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeNotFound         = "not_found"
	ErrCodeInvalidInput     = "invalid_input"
)

// InboundMessage is the generic envelope for a signaling message received
// from a participant's WebSocket connection.
type InboundMessage struct {
	Type         string                 `json:"type"`
	TargetUserID string                 `json:"targetUserId,omitempty"`
	SDP          map[string]interface{} `json:"sdp,omitempty"`
	Candidate    map[string]interface{} `json:"candidate,omitempty"`
	Muted        bool                   `json:"muted,omitempty"`
	Text         string                 `json:"content,omitempty"`
	Raw          map[string]interface{} `json:"-"`
}

// OutboundMessage is the generic envelope sent to a participant. Payload's
// fields are flattened alongside "type" at the top level of the
// marshaled JSON object, matching the wire shape the original handlers
// emit (e.g. {"type":"joined","participants":[...]}) rather than
// nesting under a "payload" key.
type OutboundMessage struct {
	Type    string
	Payload interface{}
}

func (m OutboundMessage) MarshalJSON() ([]byte, error) {
	base := map[string]interface{}{"type": m.Type}

	switch p := m.Payload.(type) {
	case nil:
	case map[string]interface{}:
		for k, v := range p {
			base[k] = v
		}
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		var asMap map[string]interface{}
		if err := json.Unmarshal(raw, &asMap); err != nil {
			return nil, err
		}
		for k, v := range asMap {
			base[k] = v
		}
	}
	return json.Marshal(base)
}

// ErrorPayload is the payload shape for EventError messages. The
// envelope's "type" field comes from OutboundMessage.Type, so the
// payload carries only code and message.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParticipantView is the participant shape sent over the wire.
type ParticipantView struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	Role       string `json:"role"`
	AudioMuted bool   `json:"audioMuted"`
}
