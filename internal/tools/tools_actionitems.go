package tools

import (
	"context"
	"fmt"
)

// RegisterActionItemTools registers the action-items-by-assignee and
// team-ground-truth query tools.
func RegisterActionItemTools(r *Registry, repo KGRepository) {
	r.Register(Meta{
		Name:        "action_items_by_assignee",
		Description: "List open action items assigned to a user.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"assignee_id": {Type: "string", Description: "Assignee user UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["assignee_id"].(string)
			items, err := repo.ActionItemsByAssignee(ctx, id)
			if err != nil {
				return "", fmt.Errorf("action_items_by_assignee: %w", err)
			}
			return marshalToolResult(items)
		},
	})

	r.Register(Meta{
		Name:        "team_ground_truth",
		Description: "Fetch the latest-status decisions (ground truth) for a team.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"team_id": {Type: "string", Description: "Team UUID", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			id, _ := args["team_id"].(string)
			decisions, err := repo.TeamGroundTruth(ctx, id)
			if err != nil {
				return "", fmt.Errorf("team_ground_truth: %w", err)
			}
			return marshalToolResult(decisions)
		},
	})
}
