package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeKG struct{}

func (fakeKG) ListMeetings(ctx context.Context, userID string) ([]MeetingSummary, error) {
	return []MeetingSummary{{ID: "m1", Title: "Standup"}}, nil
}
func (fakeKG) GetMeeting(ctx context.Context, meetingID string) (MeetingDetail, error) {
	return MeetingDetail{}, nil
}
func (fakeKG) UpcomingMeetings(ctx context.Context, userID string) ([]MeetingSummary, error) {
	return nil, nil
}
func (fakeKG) MeetingTranscript(ctx context.Context, meetingID string) (string, error) { return "", nil }
func (fakeKG) MeetingSummary(ctx context.Context, meetingID string) (string, error)    { return "", nil }
func (fakeKG) MyTeams(ctx context.Context, userID string) ([]TeamSummary, error)       { return nil, nil }
func (fakeKG) GetTeam(ctx context.Context, teamID string) (TeamDetail, error)          { return TeamDetail{}, nil }
func (fakeKG) TeamMembers(ctx context.Context, teamID string) ([]UserProfile, error)   { return nil, nil }
func (fakeKG) GetUserProfile(ctx context.Context, userID string) (UserProfile, error)  { return UserProfile{}, nil }
func (fakeKG) ActionItemsByAssignee(ctx context.Context, assigneeID string) ([]ActionItem, error) {
	return nil, nil
}
func (fakeKG) TeamGroundTruth(ctx context.Context, teamID string) ([]Decision, error) { return nil, nil }
func (fakeKG) Search(ctx context.Context, query string) (SearchResult, error) {
	return SearchResult{Query: query}, nil
}

func TestRegistry_RegisterAndList(t *testing.T) {
	r := NewRegistry()
	RegisterAll(r, fakeKG{}, nil)

	voiceTools := r.List(ModeVoice)
	require.NotEmpty(t, voiceTools)
	for _, tl := range voiceTools {
		require.Equal(t, CategoryQuery, tl.Category)
	}

	_, ok := r.Get("list_meetings")
	require.True(t, ok)
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	r := NewRegistry()
	r.Register(Meta{Name: "x", Fn: func(ctx context.Context, args map[string]interface{}) (string, error) { return "", nil }})
	require.Panics(t, func() {
		r.Register(Meta{Name: "x", Fn: func(ctx context.Context, args map[string]interface{}) (string, error) { return "", nil }})
	})
}

func TestRegistry_CallerUserIDRoundTrip(t *testing.T) {
	ctx := WithCallerUserID(context.Background(), "u1")
	id, ok := CallerUserID(ctx)
	require.True(t, ok)
	require.Equal(t, "u1", id)
}
