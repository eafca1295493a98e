package signaling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

type fakeChatStore struct{}

func (fakeChatStore) CreateMessage(ctx context.Context, meetingID, userID, content string) (ChatMessage, error) {
	return ChatMessage{ID: "msg-1", MeetingID: meetingID, UserID: userID, Content: content, CreatedAt: time.Unix(0, 0)}, nil
}

func TestDispatcher_OfferIsForwardedToTarget(t *testing.T) {
	r := NewRegistry()
	host := &fakeConn{}
	guest := &fakeConn{}
	r.Connect("m1", "host", "Host", RoleHost, host)
	r.Connect("m1", "guest", "Guest", RoleParticipant, guest)
	d := NewDispatcher(r, fakeChatStore{})

	stop := d.Dispatch(context.Background(), "m1", "host", protocol.InboundMessage{
		Type: protocol.KindOffer, TargetUserID: "guest", SDP: map[string]interface{}{"sdp": "v=0"},
	})
	require.False(t, stop)
	require.Len(t, guest.written, 1)
	require.Equal(t, protocol.EventOffer, guest.written[0].Type)
	require.Empty(t, host.written)
}

func TestDispatcher_OfferMissingSDPIsDroppedSilently(t *testing.T) {
	r := NewRegistry()
	guest := &fakeConn{}
	r.Connect("m1", "guest", "Guest", RoleParticipant, guest)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "host", protocol.InboundMessage{
		Type: protocol.KindOffer, TargetUserID: "guest",
	})
	require.Empty(t, guest.written)
}

func TestDispatcher_ForceMuteRequiresHostRole(t *testing.T) {
	r := NewRegistry()
	guest1 := &fakeConn{}
	guest2 := &fakeConn{}
	r.Connect("m1", "guest1", "G1", RoleParticipant, guest1)
	r.Connect("m1", "guest2", "G2", RoleParticipant, guest2)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "guest1", protocol.InboundMessage{
		Type: protocol.KindForceMute, TargetUserID: "guest2", Muted: true,
	})

	require.Len(t, guest1.written, 1)
	require.Equal(t, protocol.EventError, guest1.written[0].Type)
	errPayload := guest1.written[0].Payload.(protocol.ErrorPayload)
	require.Equal(t, protocol.ErrCodePermissionDenied, errPayload.Code)
	require.Empty(t, guest2.written)
}

func TestDispatcher_ForceMuteRefusesSelfTarget(t *testing.T) {
	r := NewRegistry()
	host := &fakeConn{}
	r.Connect("m1", "host", "Host", RoleHost, host)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "host", protocol.InboundMessage{
		Type: protocol.KindForceMute, TargetUserID: "host", Muted: true,
	})

	require.Len(t, host.written, 1)
	errPayload := host.written[0].Payload.(protocol.ErrorPayload)
	require.Equal(t, protocol.ErrCodeInvalidInput, errPayload.Code)
}

func TestDispatcher_ForceMuteByHostNotifiesTargetAndBroadcasts(t *testing.T) {
	r := NewRegistry()
	host := &fakeConn{}
	target := &fakeConn{}
	bystander := &fakeConn{}
	r.Connect("m1", "host", "Host", RoleHost, host)
	r.Connect("m1", "target", "Target", RoleParticipant, target)
	r.Connect("m1", "bystander", "Bystander", RoleParticipant, bystander)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "host", protocol.InboundMessage{
		Type: protocol.KindForceMute, TargetUserID: "target", Muted: true,
	})

	require.Len(t, target.written, 2) // FORCE_MUTED + broadcast PARTICIPANT_MUTED
	require.Len(t, bystander.written, 1)
	require.Len(t, host.written, 1) // broadcast PARTICIPANT_MUTED

	p, ok := r.GetParticipant("m1", "target")
	require.True(t, ok)
	require.True(t, p.AudioMuted)
}

func TestDispatcher_LeaveStopsTheLoop(t *testing.T) {
	d := NewDispatcher(NewRegistry(), fakeChatStore{})
	stop := d.Dispatch(context.Background(), "m1", "u1", protocol.InboundMessage{Type: protocol.KindLeave})
	require.True(t, stop)
}

func TestDispatcher_UnknownKindIsIgnoredNotPanicked(t *testing.T) {
	d := NewDispatcher(NewRegistry(), fakeChatStore{})
	require.NotPanics(t, func() {
		stop := d.Dispatch(context.Background(), "m1", "u1", protocol.InboundMessage{Type: "unknown-kind"})
		require.False(t, stop)
	})
}

func TestDispatcher_ChatMessagePersistsAndBroadcastsToAllIncludingSender(t *testing.T) {
	r := NewRegistry()
	sender := &fakeConn{}
	other := &fakeConn{}
	r.Connect("m1", "sender", "Sender", RoleParticipant, sender)
	r.Connect("m1", "other", "Other", RoleParticipant, other)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "sender", protocol.InboundMessage{
		Type: protocol.KindChatMessage, Text: "hello",
	})

	require.Len(t, sender.written, 1)
	require.Len(t, other.written, 1)
	require.Equal(t, protocol.EventChatMessage, sender.written[0].Type)
}

func TestDispatcher_ChatMessageIgnoresBlankContent(t *testing.T) {
	r := NewRegistry()
	sender := &fakeConn{}
	r.Connect("m1", "sender", "Sender", RoleParticipant, sender)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "sender", protocol.InboundMessage{
		Type: protocol.KindChatMessage, Text: "   ",
	})
	require.Empty(t, sender.written)
}

func TestDispatcher_ICECandidateBroadcastsWhenNoTarget(t *testing.T) {
	r := NewRegistry()
	sender := &fakeConn{}
	other := &fakeConn{}
	r.Connect("m1", "sender", "Sender", RoleParticipant, sender)
	r.Connect("m1", "other", "Other", RoleParticipant, other)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "sender", protocol.InboundMessage{
		Type: protocol.KindICECandidate, Candidate: map[string]interface{}{"candidate": "c1"},
	})

	require.Empty(t, sender.written)
	require.Len(t, other.written, 1)
}

func TestDispatcher_ScreenICECandidateWithoutTargetIsDropped(t *testing.T) {
	r := NewRegistry()
	other := &fakeConn{}
	r.Connect("m1", "other", "Other", RoleParticipant, other)
	d := NewDispatcher(r, fakeChatStore{})

	d.Dispatch(context.Background(), "m1", "sender", protocol.InboundMessage{
		Type: protocol.KindScreenICECandidate, Candidate: map[string]interface{}{"candidate": "c1"},
	})
	require.Empty(t, other.written)
}
