package orchestration

import (
	"context"
	"strings"

	"github.com/teamatoi/meetcore/internal/tools"
)

// mutationSuccessMarkers are the literal substrings a mutation tool's
// result text carries on success, matching the Korean strings
// tools_mutations.go returns.
var mutationSuccessMarkers = []string{"생성되었습니다", "수정되었습니다", "삭제되었습니다"}

func hasMutationSuccessMarker(results string) bool {
	for _, marker := range mutationSuccessMarkers {
		if strings.Contains(results, marker) {
			return true
		}
	}
	return false
}

// containsSearchResultBlock is a cheap heuristic: the search tool's
// JSON result always carries a "Query"/"Results" field (tools.SearchResult),
// so its presence in the accumulated tool-results text marks a
// completed search round.
func containsSearchResultBlock(results string) bool {
	lower := strings.ToLower(results)
	return strings.Contains(lower, `"results"`)
}

// Planner decides each round's next move: answer directly, queue a
// composite follow-up, or select a tool via the LLM's tool-calling
// surface.
type Planner struct {
	LLM       PlannerLLM
	Registry  *tools.Registry
	Composite CompositeConfig
	MaxRetry  int
}

// Run advances st through one planner decision and sets st.NextNode.
func (p *Planner) Run(ctx context.Context, st *State) (*State, error) {
	if p.MaxRetry > 0 && st.RetryCount >= p.MaxRetry {
		// Retry ceiling reached: force success with whatever's
		// accumulated rather than looping forever.
		st.EvalStatus = EvalSuccess
		st.NextNode = NodeGenerator
		return st, nil
	}

	if st.ToolResults != "" && st.ToolResults != ResetToolResults && hasMutationSuccessMarker(st.ToolResults) {
		st.NextNode = NodeGenerator
		return st, nil
	}

	query := st.LastUserMessage()
	if st.ToolResults != "" && st.ToolResults != ResetToolResults &&
		containsSearchResultBlock(st.ToolResults) &&
		p.Composite.isCompositeQuery(query) &&
		!p.Composite.isSubquery(query) {
		st.NextSubquery = nextStepSubquery()
		st.IsSubquery = true
		st.Messages = append(st.Messages, Message{Role: "user", Content: st.NextSubquery})
	}

	available := p.Registry.List(st.Mode)
	call, err := p.LLM.Plan(ctx, st.Messages, available)
	if err != nil {
		return st, err
	}

	if call.ToolName == "" {
		st.FinalResponse = call.DirectResponse
		st.NextNode = NodeGenerator
		return st, nil
	}

	meta, ok := p.Registry.Get(call.ToolName)
	if !ok {
		st.FinalResponse = "죄송합니다, 요청을 처리할 수 없습니다."
		st.NextNode = NodeGenerator
		return st, nil
	}

	st.SelectedTool = call.ToolName
	st.ToolArgs = call.Args
	st.ToolCategory = meta.Category
	st.NextNode = NodeTools
	return st, nil
}
