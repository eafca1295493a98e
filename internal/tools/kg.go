package tools

import "context"

// KGRepository is the read-only knowledge-graph collaborator
// contract: only the operations the tools invoke. The query
// implementation lives in a separate service.
type KGRepository interface {
	ListMeetings(ctx context.Context, userID string) ([]MeetingSummary, error)
	GetMeeting(ctx context.Context, meetingID string) (MeetingDetail, error)
	UpcomingMeetings(ctx context.Context, userID string) ([]MeetingSummary, error)
	MeetingTranscript(ctx context.Context, meetingID string) (string, error)
	MeetingSummary(ctx context.Context, meetingID string) (string, error)

	MyTeams(ctx context.Context, userID string) ([]TeamSummary, error)
	GetTeam(ctx context.Context, teamID string) (TeamDetail, error)
	TeamMembers(ctx context.Context, teamID string) ([]UserProfile, error)
	GetUserProfile(ctx context.Context, userID string) (UserProfile, error)

	ActionItemsByAssignee(ctx context.Context, assigneeID string) ([]ActionItem, error)
	TeamGroundTruth(ctx context.Context, teamID string) ([]Decision, error)

	// Search runs a free-text knowledge-graph search, exercised by the
	// search tool's thin wrapper.
	Search(ctx context.Context, query string) (SearchResult, error)
}

// MutationRepository is the read-write collaborator for
// spotlight-mode mutation tools. All mutations are invoked only after
// a confirmed HITL round trip.
type MutationRepository interface {
	CreateMeeting(ctx context.Context, userID string, in CreateMeetingInput) (MeetingSummary, error)
	UpdateMeeting(ctx context.Context, userID, meetingID string, in UpdateMeetingInput) (MeetingSummary, error)
	DeleteMeeting(ctx context.Context, userID, meetingID string) error
	InviteMeetingParticipant(ctx context.Context, userID, meetingID, inviteeUserID string) error

	CreateTeam(ctx context.Context, userID string, name string) (TeamSummary, error)
	UpdateTeam(ctx context.Context, userID, teamID, name string) (TeamSummary, error)
	DeleteTeam(ctx context.Context, userID, teamID string) error
	InviteTeamMember(ctx context.Context, userID, teamID, inviteeUserID string) error
	GenerateTeamInviteLink(ctx context.Context, userID, teamID string) (string, error)
}

type MeetingSummary struct {
	ID       string
	Title    string
	Status   string
	StartsAt string
	TeamID   string
}

type MeetingDetail struct {
	MeetingSummary
	HostUserID   string
	Participants []UserProfile
}

type TeamSummary struct {
	ID   string
	Name string
}

type TeamDetail struct {
	TeamSummary
	MemberCount int
}

type UserProfile struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

type ActionItem struct {
	ID          string
	Description string
	AssigneeID  string
	MeetingID   string
	Status      string
}

type Decision struct {
	ID        string
	TeamID    string
	Text      string
	DecidedAt string
}

type SearchResult struct {
	Query   string
	Results []SearchHit
}

type SearchHit struct {
	Kind    string // "decision" | "action_item" | "meeting" | "user"
	ID      string
	Text    string
	TeamID  string
}

type CreateMeetingInput struct {
	Title  string
	TeamID string
}

type UpdateMeetingInput struct {
	Title string
}
