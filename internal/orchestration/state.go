// Package orchestration implements the agent graph: planner -> tool
// executor -> evaluator -> response generator, with human-in-the-loop
// interrupts on mutation tools and retry/replanning, realized as an
// explicit state machine with a typed checkpointer.
package orchestration

import (
	"github.com/teamatoi/meetcore/internal/tools"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

// ResetToolResults is a sentinel value for ToolResults: the planner
// treats ToolResults equal to it the same as empty. Nothing in this
// package writes it.
const ResetToolResults = "\x00RESET\x00"

// Channel is the output channel the response generator tailors its
// answer for.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelText  Channel = "text"
)

// EvalStatus is the evaluator's verdict.
type EvalStatus string

const (
	EvalNone        EvalStatus = ""
	EvalSuccess     EvalStatus = "success"
	EvalRetry       EvalStatus = "retry"
	EvalReplanning  EvalStatus = "replanning"
)

// HITLStatus tracks a mutation tool's confirmation lifecycle.
type HITLStatus string

const (
	HITLNone      HITLStatus = "none"
	HITLPending   HITLStatus = "pending"
	HITLConfirmed HITLStatus = "confirmed"
	HITLCancelled HITLStatus = "cancelled"
	HITLExecuted  HITLStatus = "executed"
)

// Message is one conversation turn fed to the planner/generator LLM
// calls.
type Message struct {
	Role    string // "user" | "assistant" | "tool"
	Content string
}

// node names, used as State.NextNode values by the runner's dispatch.
const (
	NodePlanner   = "planner"
	NodeTools     = "tools"
	NodeEvaluator = "evaluator"
	NodeGenerator = "generator"
	NodeEnd       = "end"
)

// State is everything threaded through one graph run, checkpointed
// across HITL interrupts.
type State struct {
	RunID   string
	Mode    tools.Mode
	Channel Channel

	Messages          []Message
	ContextSnapshot   string
	SimpleRouteGuide  bool // true if a fast classifier tagged this query "guide"

	Plan         string
	SelectedTool string
	ToolArgs     map[string]interface{}
	ToolCategory tools.Category
	ToolResults  string

	RetryCount int

	EvalStatus EvalStatus
	EvalReason string

	HITLStatus    HITLStatus
	HITLPayload   *protocol.HITLPayload
	PendingResume *protocol.HITLResume

	// NextSubquery holds the planner-emitted follow-up query for a
	// composite query's second tool round.
	NextSubquery string
	IsSubquery   bool

	FinalResponse string
	NextNode      string

	// StreamFn, if set, receives each response-generator token as it is
	// produced. nil means non-streaming callers just read FinalResponse
	// after the run returns.
	StreamFn func(token string) `json:"-"`
}

// LastUserMessage returns the most recent user-role message's content,
// or "" if none.
func (s *State) LastUserMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}
