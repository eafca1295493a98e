package signaling

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

type fakeConn struct {
	closed  bool
	written []protocol.OutboundMessage
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.written = append(f.written, v.(protocol.OutboundMessage))
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func outboundTestMessage() protocol.OutboundMessage {
	return protocol.OutboundMessage{Type: "ping"}
}

func TestRegistry_ConnectDisplacesPriorConnection(t *testing.T) {
	r := NewRegistry()

	first := &fakeConn{}
	second := &fakeConn{}

	r.Connect("m1", "u1", "Alice", RoleParticipant, first)
	_, ok := r.GetParticipant("m1", "u1")
	require.True(t, ok)

	r.Connect("m1", "u1", "Alice", RoleParticipant, second)
	p, ok := r.GetParticipant("m1", "u1")
	require.True(t, ok)
	require.Equal(t, "Alice", p.UserName)
	require.True(t, first.closed)
}

func TestRegistry_StaleDisconnectLeavesNewConnectionAlone(t *testing.T) {
	r := NewRegistry()

	first := &fakeConn{}
	second := &fakeConn{}

	displaced := r.Connect("m1", "u1", "Alice", RoleParticipant, first)
	require.False(t, displaced)
	displaced = r.Connect("m1", "u1", "Alice", RoleParticipant, second)
	require.True(t, displaced)

	// The displaced handler's teardown must not tear down the newer
	// connection registered under the same user.
	require.False(t, r.DisconnectConn("m1", "u1", first))
	_, ok := r.GetParticipant("m1", "u1")
	require.True(t, ok)

	require.True(t, r.DisconnectConn("m1", "u1", second))
	_, ok = r.GetParticipant("m1", "u1")
	require.False(t, ok)
}

func TestRegistry_DisconnectReportsExistence(t *testing.T) {
	r := NewRegistry()
	r.Connect("m1", "u1", "Alice", RoleParticipant, &fakeConn{})

	existed := r.Disconnect("m1", "u1")
	require.True(t, existed)

	existedAgain := r.Disconnect("m1", "u1")
	require.False(t, existedAgain)
}

func TestRegistry_UpdateMuteStatus(t *testing.T) {
	r := NewRegistry()
	r.Connect("m1", "u1", "Alice", RoleParticipant, &fakeConn{})

	r.UpdateMuteStatus("m1", "u1", true)
	p, ok := r.GetParticipant("m1", "u1")
	require.True(t, ok)
	require.True(t, p.AudioMuted)
}

func TestRegistry_SendToUnknownUserIsANoop(t *testing.T) {
	r := NewRegistry()
	require.NotPanics(t, func() {
		r.SendToUser("m1", "ghost", outboundTestMessage())
	})
}

func TestRegistry_BroadcastExcludesSender(t *testing.T) {
	r := NewRegistry()
	sender := &fakeConn{}
	other := &fakeConn{}
	r.Connect("m1", "sender", "Sender", RoleParticipant, sender)
	r.Connect("m1", "other", "Other", RoleParticipant, other)

	r.Broadcast("m1", outboundTestMessage(), "sender")

	require.Empty(t, sender.written)
	require.Len(t, other.written, 1)
}

func TestRegistry_DifferentMeetingsAreIndependent(t *testing.T) {
	r := NewRegistry()
	r.Connect("m1", "u1", "Alice", RoleParticipant, &fakeConn{})
	r.Connect("m2", "u1", "Bob", RoleHost, &fakeConn{})

	p1, _ := r.GetParticipant("m1", "u1")
	p2, _ := r.GetParticipant("m2", "u1")
	require.Equal(t, "Alice", p1.UserName)
	require.Equal(t, "Bob", p2.UserName)
}
