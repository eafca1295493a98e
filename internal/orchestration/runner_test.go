package orchestration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teamatoi/meetcore/internal/tools"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

func newTestRegistry() *tools.Registry {
	r := tools.NewRegistry()
	r.Register(tools.Meta{
		Name:     "search_knowledge_graph",
		Category: tools.CategoryQuery,
		Params:   map[string]tools.ParamSpec{"query": {Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			b, _ := json.Marshal(map[string]interface{}{"results": []string{"Decision: ship it", "assignee: alice"}})
			return string(b), nil
		},
	})
	r.Register(tools.Meta{
		Name:            "delete_team",
		Category:        tools.CategoryMutation,
		Modes:           []tools.Mode{tools.ModeSpotlight},
		DisplayTemplate: "Delete team {{team_id}}",
		HITLFields: []tools.HITLFieldSpec{
			{Name: "team_id", Required: true, InputType: "text"},
		},
		Params: map[string]tools.ParamSpec{"team_id": {Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "팀이 삭제되었습니다.", nil
		},
	})
	return r
}

type fakePlannerLLM struct {
	calls []ToolCall
	i     int
}

func (f *fakePlannerLLM) Plan(ctx context.Context, messages []Message, available []tools.Meta) (ToolCall, error) {
	if f.i >= len(f.calls) {
		return ToolCall{DirectResponse: "done"}, nil
	}
	c := f.calls[f.i]
	f.i++
	return c, nil
}

func newRunner(registry *tools.Registry, planner PlannerLLM) *Runner {
	cp := NewMemoryCheckpointer()
	return &Runner{
		Planner: &Planner{
			LLM:      planner,
			Registry: registry,
			Composite: CompositeConfig{
				AssignmentHints:  []string{"담당자"},
				TeamHints:        []string{"같은 팀"},
				ReferentialHints: []string{"이전에 찾은"},
			},
			MaxRetry: 3,
		},
		ToolExecutor: &ToolExecutor{Registry: registry},
		Evaluator: &Evaluator{
			MaxRounds: 3,
			Composite: CompositeConfig{
				AssignmentHints:  []string{"담당자"},
				TeamHints:        []string{"같은 팀"},
				ReferentialHints: []string{"이전에 찾은"},
			},
		},
		Generator:    &ResponseGenerator{},
		Checkpointer: cp,
	}
}

func TestRunner_QueryToolEndsAtGenerator(t *testing.T) {
	registry := newTestRegistry()
	planner := &fakePlannerLLM{calls: []ToolCall{{ToolName: "search_knowledge_graph", Args: map[string]interface{}{"query": "hi"}}}}
	runner := newRunner(registry, planner)

	st := &State{Mode: tools.ModeVoice, Messages: []Message{{Role: "user", Content: "hi"}}}
	out, err := runner.Start(context.Background(), st)
	require.NoError(t, err)
	require.NotEmpty(t, out.FinalResponse)
}

func TestRunner_MutationInterruptsForHITL(t *testing.T) {
	registry := newTestRegistry()
	planner := &fakePlannerLLM{calls: []ToolCall{{ToolName: "delete_team", Args: map[string]interface{}{"team_id": "t1"}}}}
	runner := newRunner(registry, planner)

	st := &State{Mode: tools.ModeSpotlight, Messages: []Message{{Role: "user", Content: "팀을 삭제해줘"}}}
	_, err := runner.Start(context.Background(), st)
	require.Error(t, err)

	interrupted, ok := err.(*ErrInterrupted)
	require.True(t, ok)
	require.Equal(t, "delete_team", interrupted.Payload.ToolName)
	require.NotEmpty(t, interrupted.Payload.HITLRequestID)
}

func TestRunner_ResumeConfirmExecutesToolExactlyOnce(t *testing.T) {
	registry := newTestRegistry()
	planner := &fakePlannerLLM{calls: []ToolCall{{ToolName: "delete_team", Args: map[string]interface{}{"team_id": "t1"}}}}
	runner := newRunner(registry, planner)

	st := &State{RunID: "run-1", Mode: tools.ModeSpotlight, Messages: []Message{{Role: "user", Content: "팀을 삭제해줘"}}}
	_, err := runner.Start(context.Background(), st)
	require.Error(t, err)

	out, err := runner.Resume(context.Background(), "run-1", protocol.HITLResume{Action: "confirm"})
	require.NoError(t, err)
	require.Contains(t, out.FinalResponse, "삭제되었습니다")

	// Resuming again must not re-invoke the tool: the checkpoint was
	// deleted on completion.
	_, err = runner.Resume(context.Background(), "run-1", protocol.HITLResume{Action: "confirm"})
	require.Error(t, err)
}

func TestRunner_ResumeCancelIsSilentOrExplicit(t *testing.T) {
	registry := newTestRegistry()
	planner := &fakePlannerLLM{calls: []ToolCall{{ToolName: "delete_team", Args: map[string]interface{}{"team_id": "t1"}}}}
	runner := newRunner(registry, planner)

	st := &State{RunID: "run-2", Mode: tools.ModeSpotlight, Messages: []Message{{Role: "user", Content: "팀을 삭제해줘"}}}
	_, err := runner.Start(context.Background(), st)
	require.Error(t, err)

	out, err := runner.Resume(context.Background(), "run-2", protocol.HITLResume{Action: "cancel"})
	require.NoError(t, err)
	require.Equal(t, "취소되었습니다", out.FinalResponse)
}

func TestRunner_RetryCeilingForcesSuccess(t *testing.T) {
	registry := newTestRegistry()
	planner := &fakePlannerLLM{} // always returns DirectResponse immediately
	runner := newRunner(registry, planner)
	runner.Planner.MaxRetry = 3

	st := &State{Mode: tools.ModeVoice, Messages: []Message{{Role: "user", Content: "hi"}}, RetryCount: 3}
	out, err := runner.Start(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, EvalSuccess, out.EvalStatus)
}

func TestRunner_CompositeQueryRunsTwoToolRounds(t *testing.T) {
	registry := tools.NewRegistry()
	var queries []string
	registry.Register(tools.Meta{
		Name:     "search_knowledge_graph",
		Category: tools.CategoryQuery,
		Params:   map[string]tools.ParamSpec{"query": {Type: "string", Required: true}},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			q, _ := args["query"].(string)
			queries = append(queries, q)
			var payload map[string]interface{}
			if len(queries) == 1 {
				payload = map[string]interface{}{"results": []string{"Decision: action X", "assignee: alice"}}
			} else {
				payload = map[string]interface{}{"results": []string{"alice", "bob", "carol"}}
			}
			b, _ := json.Marshal(payload)
			return string(b), nil
		},
	})

	planner := &fakePlannerLLM{calls: []ToolCall{
		{ToolName: "search_knowledge_graph", Args: map[string]interface{}{"query": "action X 담당자"}},
		{ToolName: "search_knowledge_graph", Args: map[string]interface{}{"query": "이전에 찾은 담당자의 팀원"}},
	}}
	runner := newRunner(registry, planner)

	st := &State{
		Mode:     tools.ModeSpotlight,
		Messages: []Message{{Role: "user", Content: "action X 담당자와 같은 팀의 팀원은?"}},
	}
	out, err := runner.Start(context.Background(), st)
	require.NoError(t, err)

	// The first search round resolves the assignee; the evaluator hands
	// control back to the planner, which queues the follow-up sub-query
	// and runs a second tool round before answering.
	require.Len(t, queries, 2)
	require.True(t, out.IsSubquery)
	require.NotEmpty(t, out.NextSubquery)
	require.Equal(t, EvalSuccess, out.EvalStatus)
	require.NotEmpty(t, out.FinalResponse)
}

func TestCompositeConfig_DetectsCompositeAndSubquery(t *testing.T) {
	cfg := CompositeConfig{
		AssignmentHints:  []string{"담당자"},
		TeamHints:        []string{"같은 팀"},
		ReferentialHints: []string{"이전에 찾은"},
	}
	require.True(t, cfg.isCompositeQuery("액션 X 담당자와 같은 팀의 팀원은?"))
	require.False(t, cfg.isSubquery("액션 X 담당자와 같은 팀의 팀원은?"))
	require.True(t, cfg.isSubquery("이전에 찾은 담당자와 같은 팀의 팀원들은 누구인가?"))
}
