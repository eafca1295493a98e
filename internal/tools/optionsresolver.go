package tools

import (
	"context"
	"fmt"

	"github.com/teamatoi/meetcore/pkg/protocol"
)

// KGOptionsResolver implements orchestration.OptionsResolver, the only
// options_source used anywhere in the mutation tool catalog being
// "user_teams" (tools_mutations.go's team_id HITL fields).
type KGOptionsResolver struct {
	Repo KGRepository
}

func NewKGOptionsResolver(repo KGRepository) *KGOptionsResolver {
	return &KGOptionsResolver{Repo: repo}
}

func (r *KGOptionsResolver) Options(ctx context.Context, source, callerUserID string) ([]protocol.HITLOption, error) {
	switch source {
	case "user_teams":
		teams, err := r.Repo.MyTeams(ctx, callerUserID)
		if err != nil {
			return nil, fmt.Errorf("resolve user_teams options: %w", err)
		}
		out := make([]protocol.HITLOption, 0, len(teams))
		for _, t := range teams {
			out = append(out, protocol.HITLOption{Value: t.ID, Label: t.Name})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("tools: unknown options_source %q", source)
	}
}
