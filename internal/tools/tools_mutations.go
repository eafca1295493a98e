package tools

import (
	"context"
	"fmt"
)

// RegisterMutationTools registers the spotlight-only mutation tools
// (create/update/delete meeting, invite participant, create/update/
// delete team, invite team member, generate invite link). Each carries
// HITLFields so the orchestration graph's tool executor can build the
// confirmation payload.
func RegisterMutationTools(r *Registry, repo MutationRepository) {
	r.Register(Meta{
		Name:                "create_meeting",
		Description:         "Create a new meeting.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Create meeting \"{{title}}\" for team {{team_id}}",
		ConfirmationMessage: "새 회의를 생성할까요?",
		HITLFields: []HITLFieldSpec{
			{Name: "title", Description: "Meeting title", Type: "string", Required: true, InputType: "text"},
			{Name: "team_id", Description: "Owning team", Type: "uuid", Required: true, InputType: "select", OptionsSource: "user_teams"},
		},
		Params: map[string]ParamSpec{
			"title":   {Type: "string", Description: "Meeting title", Required: true},
			"team_id": {Type: "string", Description: "Owning team UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			title, _ := args["title"].(string)
			teamID, _ := args["team_id"].(string)
			m, err := repo.CreateMeeting(ctx, userID, CreateMeetingInput{Title: title, TeamID: teamID})
			if err != nil {
				return "", fmt.Errorf("create_meeting: %w", err)
			}
			return fmt.Sprintf("회의 \"%s\"가 생성되었습니다.", m.Title), nil
		},
	})

	r.Register(Meta{
		Name:                "update_meeting",
		Description:         "Update a meeting's title.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Rename meeting {{meeting_id}} to \"{{title}}\"",
		ConfirmationMessage: "회의 정보를 수정할까요?",
		HITLFields: []HITLFieldSpec{
			{Name: "meeting_id", Description: "Meeting to update", Type: "uuid", Required: true, InputType: "text"},
			{Name: "title", Description: "New title", Type: "string", Required: true, InputType: "text"},
		},
		Params: map[string]ParamSpec{
			"meeting_id": {Type: "string", Required: true},
			"title":      {Type: "string", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			id, _ := args["meeting_id"].(string)
			title, _ := args["title"].(string)
			m, err := repo.UpdateMeeting(ctx, userID, id, UpdateMeetingInput{Title: title})
			if err != nil {
				return "", fmt.Errorf("update_meeting: %w", err)
			}
			return fmt.Sprintf("회의 \"%s\"가 수정되었습니다.", m.Title), nil
		},
	})

	r.Register(Meta{
		Name:                "delete_meeting",
		Description:         "Delete a meeting.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Delete meeting {{meeting_id}}",
		ConfirmationMessage: "이 회의를 삭제할까요? 되돌릴 수 없습니다.",
		HITLFields: []HITLFieldSpec{
			{Name: "meeting_id", Description: "Meeting to delete", Type: "uuid", Required: true, InputType: "text"},
		},
		Params: map[string]ParamSpec{"meeting_id": {Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			id, _ := args["meeting_id"].(string)
			if err := repo.DeleteMeeting(ctx, userID, id); err != nil {
				return "", fmt.Errorf("delete_meeting: %w", err)
			}
			return "회의가 삭제되었습니다.", nil
		},
	})

	r.Register(Meta{
		Name:                "invite_meeting_participant",
		Description:         "Invite a user to a meeting.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Invite {{invitee_user_id}} to meeting {{meeting_id}}",
		ConfirmationMessage: "이 참가자를 회의에 초대할까요?",
		HITLFields: []HITLFieldSpec{
			{Name: "meeting_id", Description: "Meeting", Type: "uuid", Required: true, InputType: "text"},
			{Name: "invitee_user_id", Description: "User to invite", Type: "uuid", Required: true, InputType: "text"},
		},
		Params: map[string]ParamSpec{
			"meeting_id":      {Type: "string", Required: true},
			"invitee_user_id": {Type: "string", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			meetingID, _ := args["meeting_id"].(string)
			invitee, _ := args["invitee_user_id"].(string)
			if err := repo.InviteMeetingParticipant(ctx, userID, meetingID, invitee); err != nil {
				return "", fmt.Errorf("invite_meeting_participant: %w", err)
			}
			return "참가자가 초대되었습니다.", nil
		},
	})

	r.Register(Meta{
		Name:                "create_team",
		Description:         "Create a new team.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Create team \"{{name}}\"",
		ConfirmationMessage: "새 팀을 생성할까요?",
		HITLFields: []HITLFieldSpec{
			{Name: "name", Description: "Team name", Type: "string", Required: true, InputType: "text"},
		},
		Params: map[string]ParamSpec{"name": {Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			name, _ := args["name"].(string)
			team, err := repo.CreateTeam(ctx, userID, name)
			if err != nil {
				return "", fmt.Errorf("create_team: %w", err)
			}
			return fmt.Sprintf("팀 \"%s\"가 생성되었습니다.", team.Name), nil
		},
	})

	r.Register(Meta{
		Name:                "update_team",
		Description:         "Rename a team.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Rename team {{team_id}} to \"{{name}}\"",
		ConfirmationMessage: "팀 이름을 수정할까요?",
		HITLFields: []HITLFieldSpec{
			{Name: "team_id", Description: "Team", Type: "uuid", Required: true, InputType: "select", OptionsSource: "user_teams"},
			{Name: "name", Description: "New name", Type: "string", Required: true, InputType: "text"},
		},
		Params: map[string]ParamSpec{
			"team_id": {Type: "string", Required: true},
			"name":    {Type: "string", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			id, _ := args["team_id"].(string)
			name, _ := args["name"].(string)
			team, err := repo.UpdateTeam(ctx, userID, id, name)
			if err != nil {
				return "", fmt.Errorf("update_team: %w", err)
			}
			return fmt.Sprintf("팀 \"%s\"가 수정되었습니다.", team.Name), nil
		},
	})

	r.Register(Meta{
		Name:                "delete_team",
		Description:         "Delete a team.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Delete team {{team_id}}",
		ConfirmationMessage: "이 팀을 삭제할까요? 되돌릴 수 없습니다.",
		HITLFields: []HITLFieldSpec{
			{Name: "team_id", Description: "Team to delete", Type: "uuid", Required: true, InputType: "select", OptionsSource: "user_teams"},
		},
		Params: map[string]ParamSpec{"team_id": {Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			id, _ := args["team_id"].(string)
			if err := repo.DeleteTeam(ctx, userID, id); err != nil {
				return "", fmt.Errorf("delete_team: %w", err)
			}
			return "팀이 삭제되었습니다.", nil
		},
	})

	r.Register(Meta{
		Name:                "invite_team_member",
		Description:         "Invite a user to a team.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Invite {{invitee_user_id}} to team {{team_id}}",
		ConfirmationMessage: "이 사용자를 팀에 초대할까요?",
		HITLFields: []HITLFieldSpec{
			{Name: "team_id", Description: "Team", Type: "uuid", Required: true, InputType: "select", OptionsSource: "user_teams"},
			{Name: "invitee_user_id", Description: "User to invite", Type: "uuid", Required: true, InputType: "text"},
		},
		Params: map[string]ParamSpec{
			"team_id":         {Type: "string", Required: true},
			"invitee_user_id": {Type: "string", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			teamID, _ := args["team_id"].(string)
			invitee, _ := args["invitee_user_id"].(string)
			if err := repo.InviteTeamMember(ctx, userID, teamID, invitee); err != nil {
				return "", fmt.Errorf("invite_team_member: %w", err)
			}
			return "팀원이 초대되었습니다.", nil
		},
	})

	r.Register(Meta{
		Name:                "generate_team_invite_link",
		Description:         "Generate a shareable invite link for a team.",
		Category:            CategoryMutation,
		Modes:               []Mode{ModeSpotlight},
		DisplayTemplate:     "Generate invite link for team {{team_id}}",
		ConfirmationMessage: "팀 초대 링크를 생성할까요?",
		HITLFields: []HITLFieldSpec{
			{Name: "team_id", Description: "Team", Type: "uuid", Required: true, InputType: "select", OptionsSource: "user_teams"},
		},
		Params: map[string]ParamSpec{"team_id": {Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			teamID, _ := args["team_id"].(string)
			link, err := repo.GenerateTeamInviteLink(ctx, userID, teamID)
			if err != nil {
				return "", fmt.Errorf("generate_team_invite_link: %w", err)
			}
			return fmt.Sprintf("초대 링크가 생성되었습니다: %s", link), nil
		},
	})
}
