package orchestration

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/teamatoi/meetcore/internal/telemetry"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

// Runner drives one graph run through its nodes, dispatching on
// State.NextNode until the run ends or interrupts.
type Runner struct {
	Planner      *Planner
	ToolExecutor *ToolExecutor
	Evaluator    *Evaluator
	Generator    *ResponseGenerator
	Checkpointer Checkpointer

	// MaxIterations is a backstop around the per-node retry ceilings,
	// guarding against a pathological planner/evaluator loop never
	// reaching NodeEnd.
	MaxIterations int
}

func (r *Runner) maxIterations() int {
	if r.MaxIterations > 0 {
		return r.MaxIterations
	}
	return 20
}

// Start begins a new run from an initial user message, ending either at
// NodeEnd (st.FinalResponse populated) or with *ErrInterrupted (a
// mutation tool needs confirmation).
func (r *Runner) Start(ctx context.Context, st *State) (*State, error) {
	if st.RunID == "" {
		st.RunID = uuid.NewString()
	}
	st.NextNode = NodePlanner
	return r.run(ctx, st)
}

// Resume replays a suspended run from its last checkpoint with an
// externally supplied HITLResume value. Resuming the same runID twice
// is safe: the second call finds no checkpoint (the first resume
// deleted it on completion) and returns an error instead of invoking
// the mutation tool again.
func (r *Runner) Resume(ctx context.Context, runID string, resume protocol.HITLResume) (*State, error) {
	st, err := r.Checkpointer.Load(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("resume run %s: %w", runID, err)
	}
	st.PendingResume = &resume
	st.NextNode = NodeTools
	return r.run(ctx, st)
}

func (r *Runner) run(ctx context.Context, st *State) (*State, error) {
	for i := 0; i < r.maxIterations(); i++ {
		var err error
		node := st.NextNode
		spanCtx, span := telemetry.StartSpan(ctx, "orchestration."+string(node))
		switch node {
		case NodePlanner:
			st, err = r.Planner.Run(spanCtx, st)
		case NodeTools:
			st, err = r.ToolExecutor.Run(spanCtx, st)
		case NodeEvaluator:
			st, err = r.Evaluator.Run(spanCtx, st)
		case NodeGenerator:
			st, err = r.Generator.Run(spanCtx, st)
		case NodeEnd, "":
			span.End()
			if r.Checkpointer != nil {
				_ = r.Checkpointer.Delete(ctx, st.RunID)
			}
			return st, nil
		default:
			span.End()
			return st, fmt.Errorf("orchestration: unknown node %q", st.NextNode)
		}
		span.End()

		if err != nil {
			if interrupted, ok := err.(*ErrInterrupted); ok {
				if r.Checkpointer != nil {
					if saveErr := r.Checkpointer.Save(ctx, st.RunID, st); saveErr != nil {
						return st, fmt.Errorf("checkpoint interrupted run: %w", saveErr)
					}
				}
				return st, interrupted
			}
			// Planning/tool exceptions fall through to a canned
			// apology rather than aborting the run.
			st.FinalResponse = fallbackApology(st)
			st.NextNode = NodeEnd
			continue
		}
	}

	st.FinalResponse = fallbackApology(st)
	st.NextNode = NodeEnd
	if r.Checkpointer != nil {
		_ = r.Checkpointer.Delete(ctx, st.RunID)
	}
	return st, nil
}
