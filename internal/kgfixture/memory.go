// Package kgfixture is an in-memory stand-in for the knowledge-graph
// collaborator, whose real query implementation lives in a separate
// service. It is NOT a production implementation: it exists so
// cmd/serve.go has something concrete to wire tools.RegisterAll
// against for local development, demos, and tests of the tool catalog
// and orchestration graph without a real backend running.
package kgfixture

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/teamatoi/meetcore/internal/apperr"
	"github.com/teamatoi/meetcore/internal/tools"
)

// Store is a mutex-guarded in-memory graph: meetings, teams, users,
// action items, and decisions keyed by ID, with simple slice-scan
// lookups standing in for graph traversal.
type Store struct {
	mu sync.Mutex

	meetings    map[string]tools.MeetingDetail
	teams       map[string]tools.TeamDetail
	users       map[string]tools.UserProfile
	teamMembers map[string][]string // teamID -> userIDs
	userTeams   map[string][]string // userID -> teamIDs
	actionItems map[string]tools.ActionItem
	decisions   map[string]tools.Decision
}

func New() *Store {
	return &Store{
		meetings:    make(map[string]tools.MeetingDetail),
		teams:       make(map[string]tools.TeamDetail),
		users:       make(map[string]tools.UserProfile),
		teamMembers: make(map[string][]string),
		userTeams:   make(map[string][]string),
		actionItems: make(map[string]tools.ActionItem),
		decisions:   make(map[string]tools.Decision),
	}
}

// Seed populates fixture data for local/demo use; tests call the
// individual Add* helpers directly for finer control.
func (s *Store) Seed() *Store {
	s.AddUser(tools.UserProfile{UserID: "u-1", Name: "Alice", Email: "alice@example.com", Role: "member"})
	s.AddUser(tools.UserProfile{UserID: "u-2", Name: "Bob", Email: "bob@example.com", Role: "member"})
	team := s.AddTeam("Platform", "u-1", "u-2")
	s.AddMeeting(tools.MeetingSummary{Title: "Weekly sync", Status: "scheduled", TeamID: team.ID}, "u-1", "u-1", "u-2")
	return s
}

func (s *Store) AddUser(u tools.UserProfile) tools.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.UserID == "" {
		u.UserID = uuid.NewString()
	}
	s.users[u.UserID] = u
	return u
}

func (s *Store) AddTeam(name string, memberIDs ...string) tools.TeamSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.teams[id] = tools.TeamDetail{TeamSummary: tools.TeamSummary{ID: id, Name: name}, MemberCount: len(memberIDs)}
	s.teamMembers[id] = append([]string(nil), memberIDs...)
	for _, uid := range memberIDs {
		s.userTeams[uid] = append(s.userTeams[uid], id)
	}
	return s.teams[id].TeamSummary
}

func (s *Store) AddMeeting(m tools.MeetingSummary, hostUserID string, participantIDs ...string) tools.MeetingDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	participants := make([]tools.UserProfile, 0, len(participantIDs))
	for _, uid := range participantIDs {
		if p, ok := s.users[uid]; ok {
			participants = append(participants, p)
		}
	}
	detail := tools.MeetingDetail{MeetingSummary: m, HostUserID: hostUserID, Participants: participants}
	s.meetings[m.ID] = detail
	return detail
}

func (s *Store) ListMeetings(ctx context.Context, userID string) ([]tools.MeetingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tools.MeetingSummary
	for _, m := range s.meetings {
		if m.HostUserID == userID || containsParticipant(m.Participants, userID) {
			out = append(out, m.MeetingSummary)
		}
	}
	sortMeetings(out)
	return out, nil
}

func (s *Store) GetMeeting(ctx context.Context, meetingID string) (tools.MeetingDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return tools.MeetingDetail{}, apperr.New(apperr.NotFound, "kgfixture: meeting "+meetingID+" not found")
	}
	return m, nil
}

func (s *Store) UpcomingMeetings(ctx context.Context, userID string) ([]tools.MeetingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tools.MeetingSummary
	for _, m := range s.meetings {
		if m.Status != "scheduled" {
			continue
		}
		if m.HostUserID == userID || containsParticipant(m.Participants, userID) {
			out = append(out, m.MeetingSummary)
		}
	}
	sortMeetings(out)
	return out, nil
}

func (s *Store) MeetingTranscript(ctx context.Context, meetingID string) (string, error) {
	if _, err := s.GetMeeting(ctx, meetingID); err != nil {
		return "", err
	}
	return "", nil
}

func (s *Store) MeetingSummary(ctx context.Context, meetingID string) (string, error) {
	if _, err := s.GetMeeting(ctx, meetingID); err != nil {
		return "", err
	}
	return "", nil
}

func (s *Store) MyTeams(ctx context.Context, userID string) ([]tools.TeamSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tools.TeamSummary
	for _, tid := range s.userTeams[userID] {
		if t, ok := s.teams[tid]; ok {
			out = append(out, t.TeamSummary)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetTeam(ctx context.Context, teamID string) (tools.TeamDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return tools.TeamDetail{}, apperr.New(apperr.NotFound, "kgfixture: team "+teamID+" not found")
	}
	return t, nil
}

func (s *Store) TeamMembers(ctx context.Context, teamID string) ([]tools.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tools.UserProfile
	for _, uid := range s.teamMembers[teamID] {
		if u, ok := s.users[uid]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Store) GetUserProfile(ctx context.Context, userID string) (tools.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return tools.UserProfile{}, apperr.New(apperr.NotFound, "kgfixture: user "+userID+" not found")
	}
	return u, nil
}

func (s *Store) ActionItemsByAssignee(ctx context.Context, assigneeID string) ([]tools.ActionItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tools.ActionItem
	for _, a := range s.actionItems {
		if a.AssigneeID == assigneeID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) TeamGroundTruth(ctx context.Context, teamID string) ([]tools.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []tools.Decision
	for _, d := range s.decisions {
		if d.TeamID == teamID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Search is a substring scan over meetings, teams, and decisions. A
// real knowledge-graph search (embeddings, Cypher traversal) belongs to
// the out-of-scope collaborator this fixture stands in for.
func (s *Store) Search(ctx context.Context, query string) (tools.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	var hits []tools.SearchHit
	for _, m := range s.meetings {
		if strings.Contains(strings.ToLower(m.Title), q) {
			hits = append(hits, tools.SearchHit{Kind: "meeting", ID: m.ID, Text: m.Title, TeamID: m.TeamID})
		}
	}
	for _, d := range s.decisions {
		if strings.Contains(strings.ToLower(d.Text), q) {
			hits = append(hits, tools.SearchHit{Kind: "decision", ID: d.ID, Text: d.Text, TeamID: d.TeamID})
		}
	}
	for _, a := range s.actionItems {
		if strings.Contains(strings.ToLower(a.Description), q) {
			hits = append(hits, tools.SearchHit{Kind: "action_item", ID: a.ID, Text: a.Description, TeamID: a.MeetingID})
		}
	}
	return tools.SearchResult{Query: query, Results: hits}, nil
}

func (s *Store) CreateMeeting(ctx context.Context, userID string, in tools.CreateMeetingInput) (tools.MeetingSummary, error) {
	s.mu.Lock()
	id := uuid.NewString()
	m := tools.MeetingSummary{ID: id, Title: in.Title, Status: "scheduled", TeamID: in.TeamID}
	s.meetings[id] = tools.MeetingDetail{MeetingSummary: m, HostUserID: userID}
	s.mu.Unlock()
	return m, nil
}

func (s *Store) UpdateMeeting(ctx context.Context, userID, meetingID string, in tools.UpdateMeetingInput) (tools.MeetingSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return tools.MeetingSummary{}, apperr.New(apperr.NotFound, "kgfixture: meeting "+meetingID+" not found")
	}
	if in.Title != "" {
		m.Title = in.Title
	}
	s.meetings[meetingID] = m
	return m.MeetingSummary, nil
}

func (s *Store) DeleteMeeting(ctx context.Context, userID, meetingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.meetings[meetingID]; !ok {
		return apperr.New(apperr.NotFound, "kgfixture: meeting "+meetingID+" not found")
	}
	delete(s.meetings, meetingID)
	return nil
}

func (s *Store) InviteMeetingParticipant(ctx context.Context, userID, meetingID, inviteeUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return apperr.New(apperr.NotFound, "kgfixture: meeting "+meetingID+" not found")
	}
	if u, ok := s.users[inviteeUserID]; ok {
		m.Participants = append(m.Participants, u)
		s.meetings[meetingID] = m
	}
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, userID string, name string) (tools.TeamSummary, error) {
	return s.AddTeam(name, userID), nil
}

func (s *Store) UpdateTeam(ctx context.Context, userID, teamID, name string) (tools.TeamSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		return tools.TeamSummary{}, apperr.New(apperr.NotFound, "kgfixture: team "+teamID+" not found")
	}
	t.Name = name
	s.teams[teamID] = t
	return t.TeamSummary, nil
}

func (s *Store) DeleteTeam(ctx context.Context, userID, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return apperr.New(apperr.NotFound, "kgfixture: team "+teamID+" not found")
	}
	delete(s.teams, teamID)
	delete(s.teamMembers, teamID)
	return nil
}

func (s *Store) InviteTeamMember(ctx context.Context, userID, teamID, inviteeUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return apperr.New(apperr.NotFound, "kgfixture: team "+teamID+" not found")
	}
	s.teamMembers[teamID] = append(s.teamMembers[teamID], inviteeUserID)
	s.userTeams[inviteeUserID] = append(s.userTeams[inviteeUserID], teamID)
	return nil
}

func (s *Store) GenerateTeamInviteLink(ctx context.Context, userID, teamID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return "", apperr.New(apperr.NotFound, "kgfixture: team "+teamID+" not found")
	}
	return fmt.Sprintf("https://meet.example.com/invite/team/%s/%s", teamID, uuid.NewString()), nil
}

func containsParticipant(participants []tools.UserProfile, userID string) bool {
	for _, p := range participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

func sortMeetings(m []tools.MeetingSummary) {
	sort.Slice(m, func(i, j int) bool { return m[i].StartsAt < m[j].StartsAt })
}

var (
	_ tools.KGRepository     = (*Store)(nil)
	_ tools.MutationRepository = (*Store)(nil)
)
