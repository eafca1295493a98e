package restapi

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teamatoi/meetcore/internal/realtimeworker"
)

func TestServer_RoomLifecycle(t *testing.T) {
	srv := NewServer(nil, nil, nil)
	srv.Seed("m1", 10)
	ts := httptest.NewServer(srv.Engine())
	defer ts.Close()

	client := NewClient(ts.URL)

	err := client.postJSON(context.Background(), "/meetings/m1/start", nil, nil)
	require.NoError(t, err)

	err = client.postJSON(context.Background(), "/meetings/m1/end", nil, nil)
	require.NoError(t, err)
}

func TestServer_TranscriptSegmentsAssignMonotonicIDs(t *testing.T) {
	var notified []string
	srv := NewServer(nil, func(meetingID, userID string) {
		notified = append(notified, userID)
	}, nil)
	ts := httptest.NewServer(srv.Engine())
	defer ts.Close()

	client := NewClient(ts.URL)

	id1, err := client.UploadSegment(context.Background(), "m2", realtimeworker.TranscriptSegment{UserID: "alice", Text: "hello"})
	require.NoError(t, err)
	id2, err := client.UploadSegment(context.Background(), "m2", realtimeworker.TranscriptSegment{UserID: "bob", Text: "hi"})
	require.NoError(t, err)
	require.Greater(t, id2, id1)

	require.NoError(t, client.NotifyContextUpdate(context.Background(), "m2", "alice"))
	require.Equal(t, []string{"alice"}, notified)
}

func TestServer_CompleteInvokesHook(t *testing.T) {
	completed := make(chan string, 1)
	srv := NewServer(nil, nil, func(meetingID string) { completed <- meetingID })
	ts := httptest.NewServer(srv.Engine())
	defer ts.Close()

	client := NewClient(ts.URL)
	require.NoError(t, client.NotifyMeetingComplete(context.Background(), "m3"))

	select {
	case got := <-completed:
		require.Equal(t, "m3", got)
	default:
		t.Fatal("onComplete hook was not invoked")
	}
}
