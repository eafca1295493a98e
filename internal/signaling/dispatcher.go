package signaling

import (
	"context"
	"log/slog"
	"strings"

	"github.com/teamatoi/meetcore/pkg/protocol"
)

// HandlerFunc processes one inbound message for a participant already
// connected to meetingID. stop reports whether the connection loop
// should terminate after this message (true only for "leave").
type HandlerFunc func(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) (stop bool)

// Dispatcher routes inbound signaling messages to a kind -> handler
// table built once at construction.
type Dispatcher struct {
	registry  *Registry
	chatStore ChatStore
	handlers  map[string]HandlerFunc
}

func NewDispatcher(registry *Registry, chatStore ChatStore) *Dispatcher {
	d := &Dispatcher{registry: registry, chatStore: chatStore}
	d.handlers = map[string]HandlerFunc{
		protocol.KindJoin:               d.handleJoin,
		protocol.KindOffer:              d.offerAnswerHandler(protocol.EventOffer),
		protocol.KindAnswer:             d.offerAnswerHandler(protocol.EventAnswer),
		protocol.KindICECandidate:       d.iceCandidateHandler(protocol.EventICECandidate, true),
		protocol.KindMute:               d.handleMute,
		protocol.KindForceMute:          d.handleForceMute,
		protocol.KindScreenShareStart:   d.screenShareHandler(protocol.EventScreenShareStarted),
		protocol.KindScreenShareStop:    d.screenShareHandler(protocol.EventScreenShareStopped),
		protocol.KindScreenOffer:        d.offerAnswerHandler(protocol.EventScreenOffer),
		protocol.KindScreenAnswer:       d.offerAnswerHandler(protocol.EventScreenAnswer),
		protocol.KindScreenICECandidate: d.iceCandidateHandler(protocol.EventScreenICECandidate, false),
		protocol.KindChatMessage:        d.handleChatMessage,
	}
	return d
}

// Dispatch routes msg by its Type field. It returns stop=true only for
// "leave", signaling the connection loop to terminate. Unknown kinds
// log a warning and never panic.
func (d *Dispatcher) Dispatch(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) (stop bool) {
	if msg.Type == protocol.KindLeave {
		return true
	}

	h, ok := d.handlers[msg.Type]
	if !ok {
		slog.Warn("signaling: unknown message kind", "kind", msg.Type, "meeting_id", meetingID, "user_id", userID)
		return false
	}
	return h(ctx, meetingID, userID, msg)
}

func (d *Dispatcher) handleJoin(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) bool {
	participants := d.registry.GetParticipants(meetingID)
	views := make([]protocol.ParticipantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, protocol.ParticipantView{
			UserID: p.UserID, UserName: p.UserName, Role: string(p.Role), AudioMuted: p.AudioMuted,
		})
	}
	d.registry.SendToUser(meetingID, userID, protocol.OutboundMessage{
		Type:    protocol.EventJoined,
		Payload: map[string]interface{}{"participants": views},
	})

	if current, ok := d.registry.GetParticipant(meetingID, userID); ok {
		d.registry.Broadcast(meetingID, protocol.OutboundMessage{
			Type: protocol.EventParticipantJoined,
			Payload: map[string]interface{}{"participant": protocol.ParticipantView{
				UserID: current.UserID, UserName: current.UserName, Role: string(current.Role), AudioMuted: current.AudioMuted,
			}},
		}, userID)
	}
	return false
}

// offerAnswerHandler builds the unified offer/answer and
// screen-offer/screen-answer forwarders: silently drop when
// targetUserId or sdp is missing.
func (d *Dispatcher) offerAnswerHandler(eventType string) HandlerFunc {
	return func(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) bool {
		if msg.TargetUserID == "" || len(msg.SDP) == 0 {
			return false
		}
		d.registry.SendToUser(meetingID, msg.TargetUserID, protocol.OutboundMessage{
			Type: eventType,
			Payload: map[string]interface{}{
				"sdp":        msg.SDP,
				"fromUserId": userID,
			},
		})
		return false
	}
}

// iceCandidateHandler handles both the general and screen-share ICE
// candidate kinds. Only the general kind broadcasts when no target is
// given; a targetless screen candidate is logged and dropped.
func (d *Dispatcher) iceCandidateHandler(eventType string, broadcastIfNoTarget bool) HandlerFunc {
	return func(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) bool {
		if len(msg.Candidate) == 0 {
			return false
		}
		if msg.TargetUserID != "" {
			d.registry.SendToUser(meetingID, msg.TargetUserID, protocol.OutboundMessage{
				Type: eventType,
				Payload: map[string]interface{}{
					"candidate":  msg.Candidate,
					"fromUserId": userID,
				},
			})
			return false
		}
		if broadcastIfNoTarget {
			d.registry.Broadcast(meetingID, protocol.OutboundMessage{
				Type: eventType,
				Payload: map[string]interface{}{
					"candidate":  msg.Candidate,
					"fromUserId": userID,
				},
			}, userID)
			return false
		}
		slog.Warn("signaling: screen ICE candidate missing target", "meeting_id", meetingID, "user_id", userID)
		return false
	}
}

func (d *Dispatcher) handleMute(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) bool {
	d.registry.UpdateMuteStatus(meetingID, userID, msg.Muted)
	d.registry.Broadcast(meetingID, protocol.OutboundMessage{
		Type:    protocol.EventParticipantMuted,
		Payload: map[string]interface{}{"userId": userID, "muted": msg.Muted},
	}, userID)
	return false
}

// handleForceMute enforces host-only authorization and refuses
// self-targeting. The target gets a direct FORCE_MUTED notice; the
// mute-state change is broadcast to everyone.
func (d *Dispatcher) handleForceMute(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) bool {
	if msg.TargetUserID == "" {
		return false
	}
	if msg.TargetUserID == userID {
		d.registry.SendToUser(meetingID, userID, protocol.OutboundMessage{
			Type: protocol.EventError,
			Payload: protocol.ErrorPayload{
				Code:    protocol.ErrCodeInvalidInput,
				Message: "cannot force mute yourself; use regular mute instead",
			},
		})
		return false
	}

	requester, ok := d.registry.GetParticipant(meetingID, userID)
	if !ok || !requester.IsHost() {
		d.registry.SendToUser(meetingID, userID, protocol.OutboundMessage{
			Type: protocol.EventError,
			Payload: protocol.ErrorPayload{
				Code:    protocol.ErrCodePermissionDenied,
				Message: "only the host can force mute participants",
			},
		})
		return false
	}

	d.registry.UpdateMuteStatus(meetingID, msg.TargetUserID, msg.Muted)
	d.registry.SendToUser(meetingID, msg.TargetUserID, protocol.OutboundMessage{
		Type:    protocol.EventForceMuted,
		Payload: map[string]interface{}{"muted": msg.Muted, "byUserId": userID},
	})
	d.registry.Broadcast(meetingID, protocol.OutboundMessage{
		Type:    protocol.EventParticipantMuted,
		Payload: map[string]interface{}{"userId": msg.TargetUserID, "muted": msg.Muted},
	}, "")
	return false
}

func (d *Dispatcher) screenShareHandler(eventType string) HandlerFunc {
	return func(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) bool {
		d.registry.Broadcast(meetingID, protocol.OutboundMessage{
			Type:    eventType,
			Payload: map[string]interface{}{"userId": userID},
		}, userID)
		return false
	}
}

func (d *Dispatcher) handleChatMessage(ctx context.Context, meetingID, userID string, msg protocol.InboundMessage) bool {
	content := strings.TrimSpace(msg.Text)
	if content == "" {
		return false
	}
	if d.chatStore == nil {
		slog.Warn("signaling: chat message received but no chat store configured", "meeting_id", meetingID)
		return false
	}

	stored, err := d.chatStore.CreateMessage(ctx, meetingID, userID, content)
	if err != nil {
		slog.Warn("signaling: invalid chat message", "meeting_id", meetingID, "user_id", userID, "error", err)
		return false
	}

	userName := userID
	if p, ok := d.registry.GetParticipant(meetingID, userID); ok {
		userName = p.UserName
	}

	d.registry.Broadcast(meetingID, protocol.OutboundMessage{
		Type: protocol.EventChatMessage,
		Payload: map[string]interface{}{
			"messageId": stored.ID,
			"userId":    userID,
			"userName":  userName,
			"content":   stored.Content,
			"createdAt": stored.CreatedAt,
		},
	}, "")
	return false
}
