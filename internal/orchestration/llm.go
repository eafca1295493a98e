package orchestration

import (
	"context"

	"github.com/teamatoi/meetcore/internal/tools"
)

// ToolCall is what the planner's LLM call decided to do: either invoke
// a named tool with arguments, or answer directly.
type ToolCall struct {
	ToolName       string
	Args           map[string]interface{}
	DirectResponse string // non-empty means "no tool call, answer is this"
}

// PlannerLLM is the collaborator contract for the planner node's
// tool-calling LLM invocation. Implementations bind the
// mode-appropriate tool schemas (tools.Meta.Params) and translate the
// provider's native tool-call shape into ToolCall.
type PlannerLLM interface {
	Plan(ctx context.Context, messages []Message, available []tools.Meta) (ToolCall, error)
}

// EvaluatorLLM is the collaborator contract for the evaluator node's
// fallback LLM call when deterministic rules don't already resolve the
// status.
type EvaluatorLLM interface {
	Evaluate(ctx context.Context, query, toolResults string) (status EvalStatus, reason string, err error)
}

// GeneratorLLM is the collaborator contract for the response
// generator node, streaming tokens via emit.
type GeneratorLLM interface {
	Generate(ctx context.Context, prompt string, emit func(token string)) (string, error)
}
