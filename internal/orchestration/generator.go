package orchestration

import (
	"context"
	"fmt"
)

// ResponseGenerator builds the final natural-language answer from the
// channel kind, context snapshot, and accumulated tool results.
type ResponseGenerator struct {
	LLM GeneratorLLM
}

const guideSystemPreamble = "You are answering a how-do-I-use-this-product question. Be concise and point to the relevant feature."

// Run builds st.FinalResponse. An LLM-generated answer streams its
// tokens through st.StreamFn as they're produced; a preset answer, a
// bypassed mutation echo, or the fallback apology is sent through
// st.StreamFn as one chunk.
func (g *ResponseGenerator) Run(ctx context.Context, st *State) (*State, error) {
	if st.FinalResponse != "" {
		// Already set by the planner (direct LLM response, no tool
		// call) or the planner's unknown-tool apology.
		st.NextNode = NodeEnd
		emitIfSet(st, st.FinalResponse)
		return st, nil
	}

	if hasMutationSuccessMarker(st.ToolResults) || st.HITLStatus == HITLCancelled {
		// Mutation success / cancellation bypasses the LLM entirely and
		// echoes the tool's own message.
		st.FinalResponse = st.ToolResults
		st.NextNode = NodeEnd
		emitIfSet(st, st.FinalResponse)
		return st, nil
	}

	if g.LLM == nil {
		st.FinalResponse = fallbackApology(st)
		st.NextNode = NodeEnd
		emitIfSet(st, st.FinalResponse)
		return st, nil
	}

	prompt := g.buildPrompt(st)
	resp, err := g.LLM.Generate(ctx, prompt, st.StreamFn)
	if err != nil {
		st.FinalResponse = fallbackApology(st)
		st.NextNode = NodeEnd
		emitIfSet(st, st.FinalResponse)
		return st, nil
	}

	st.FinalResponse = resp
	st.NextNode = NodeEnd
	return st, nil
}

func (g *ResponseGenerator) buildPrompt(st *State) string {
	preamble := ""
	if st.SimpleRouteGuide {
		preamble = guideSystemPreamble + "\n\n"
	}
	return fmt.Sprintf(
		"%sChannel: %s\nContext: %s\n\nUser question: %s\n\nTool results:\n%s\n\nAnswer naturally in the same language as the question.",
		preamble, st.Channel, st.ContextSnapshot, st.LastUserMessage(), st.ToolResults,
	)
}

func fallbackApology(st *State) string {
	if st.Channel == ChannelVoice {
		return "죄송합니다, 지금은 답변을 드릴 수 없습니다."
	}
	return "Sorry, I'm unable to answer that right now."
}

func emitIfSet(st *State, text string) {
	if st.StreamFn != nil {
		st.StreamFn(text)
	}
}
