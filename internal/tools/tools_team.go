package tools

import (
	"context"
	"fmt"
)

// RegisterTeamTools registers team/user-facing query tools (my teams,
// team detail, team members, user profile).
func RegisterTeamTools(r *Registry, repo KGRepository) {
	r.Register(Meta{
		Name:        "my_teams",
		Description: "List teams the caller belongs to.",
		Category:    CategoryQuery,
		Params:      map[string]ParamSpec{},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			userID, _ := CallerUserID(ctx)
			teams, err := repo.MyTeams(ctx, userID)
			if err != nil {
				return "", fmt.Errorf("my_teams: %w", err)
			}
			return marshalToolResult(teams)
		},
	})

	r.Register(Meta{
		Name:        "get_team_detail",
		Description: "Get details for a specific team by id.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"team_id": {Type: "string", Description: "Team UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["team_id"].(string)
			detail, err := repo.GetTeam(ctx, id)
			if err != nil {
				return "", fmt.Errorf("get_team_detail: %w", err)
			}
			return marshalToolResult(detail)
		},
	})

	r.Register(Meta{
		Name:        "team_members",
		Description: "List the members of a team.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"team_id": {Type: "string", Description: "Team UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["team_id"].(string)
			members, err := repo.TeamMembers(ctx, id)
			if err != nil {
				return "", fmt.Errorf("team_members: %w", err)
			}
			return marshalToolResult(members)
		},
	})

	r.Register(Meta{
		Name:        "user_profile",
		Description: "Get a user's profile by id.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"user_id": {Type: "string", Description: "User UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["user_id"].(string)
			profile, err := repo.GetUserProfile(ctx, id)
			if err != nil {
				return "", fmt.Errorf("user_profile: %w", err)
			}
			return marshalToolResult(profile)
		},
	})
}
