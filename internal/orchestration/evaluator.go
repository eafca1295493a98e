package orchestration

import (
	"context"
	"strings"
)

// Evaluator examines tool results after each tool round and decides
// whether the run can answer now (success), should try the same plan
// again (retry), or needs a new plan (replanning).
type Evaluator struct {
	LLM       EvaluatorLLM
	MaxRounds int

	// Composite mirrors the planner's composite-query heuristics: a
	// successful first search round of a composite query is routed back
	// to the planner (which queues the follow-up sub-query) instead of
	// straight to the generator.
	Composite CompositeConfig
}

// Run examines st.ToolResults and decides success/retry/replanning.
func (e *Evaluator) Run(ctx context.Context, st *State) (*State, error) {
	if st.HITLStatus == HITLCancelled {
		st.EvalStatus = EvalSuccess
		st.NextNode = NodeGenerator
		return st, nil
	}

	if hasMutationSuccessMarker(st.ToolResults) {
		st.EvalStatus = EvalSuccess
		st.NextNode = NodeGenerator
		return st, nil
	}

	if containsSearchResultBlock(st.ToolResults) && !strings.Contains(st.ToolResults, `"results":[]`) && !strings.Contains(st.ToolResults, `"Results":null`) {
		st.EvalStatus = EvalSuccess
		if !st.IsSubquery && e.Composite.isCompositeQuery(st.LastUserMessage()) {
			// Composite query, first round done: the planner emits the
			// follow-up sub-query and requests another tool round.
			st.NextNode = NodePlanner
		} else {
			st.NextNode = NodeGenerator
		}
		return st, nil
	}

	if e.MaxRounds > 0 && st.RetryCount >= e.MaxRounds {
		// Hard ceiling forces success.
		st.EvalStatus = EvalSuccess
		st.NextNode = NodeGenerator
		return st, nil
	}

	if e.LLM == nil {
		st.EvalStatus = EvalSuccess
		st.NextNode = NodeGenerator
		return st, nil
	}

	status, reason, err := e.LLM.Evaluate(ctx, st.LastUserMessage(), st.ToolResults)
	if err != nil {
		// Evaluator LLM failures don't stall the run: fall through to
		// success so the generator can produce a best-effort answer.
		st.EvalStatus = EvalSuccess
		st.NextNode = NodeGenerator
		return st, nil
	}

	st.EvalStatus = status
	st.EvalReason = reason
	switch status {
	case EvalSuccess:
		st.NextNode = NodeGenerator
	default: // retry or replanning
		st.RetryCount++
		st.NextNode = NodePlanner
	}
	return st, nil
}
