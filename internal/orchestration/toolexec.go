package orchestration

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/teamatoi/meetcore/internal/telemetry"
	"github.com/teamatoi/meetcore/internal/tools"
	"github.com/teamatoi/meetcore/pkg/protocol"
)

// OptionsResolver loads the dynamic option list for a HITL field's
// options_source (e.g. "user_teams"). buildHITLPayload matches a raw
// argument value (often a UUID) against these options to get the
// human-readable label for params_display.
type OptionsResolver interface {
	Options(ctx context.Context, source, callerUserID string) ([]protocol.HITLOption, error)
}

// ErrInterrupted is the sentinel the graph runner returns when a
// mutation tool suspends for HITL confirmation. Callers surface
// Payload to the client and later resume with Runner.Resume.
type ErrInterrupted struct {
	RunID   string
	Payload protocol.HITLPayload
}

func (e *ErrInterrupted) Error() string {
	return fmt.Sprintf("orchestration: run %s interrupted for HITL confirmation of %s", e.RunID, e.Payload.ToolName)
}

// ToolExecutor runs the selected tool: query tools immediately,
// mutation tools behind a confirm-or-cancel interrupt.
type ToolExecutor struct {
	Registry *tools.Registry
	Resolver OptionsResolver
	CallerID func(ctx context.Context) string
	Metrics  *telemetry.Metrics
}

// Run executes st.SelectedTool. Query tools run immediately. Mutation
// tools interrupt for confirmation unless st.PendingResume is already
// set (the resumed leg of a prior interrupt), in which case confirm/
// cancel is applied and the tool runs (or is skipped) accordingly.
func (e *ToolExecutor) Run(ctx context.Context, st *State) (*State, error) {
	meta, ok := e.Registry.Get(st.SelectedTool)
	if !ok {
		st.ToolResults = fmt.Sprintf("알 수 없는 도구입니다: %s", st.SelectedTool)
		st.NextNode = NodeEvaluator
		return st, nil
	}

	if meta.Category == tools.CategoryQuery {
		return e.invoke(ctx, st, meta, st.ToolArgs)
	}

	return e.runMutation(ctx, st, meta)
}

func (e *ToolExecutor) runMutation(ctx context.Context, st *State, meta tools.Meta) (*State, error) {
	if st.PendingResume == nil {
		payload, err := e.buildHITLPayload(ctx, st, meta)
		if err != nil {
			return st, err
		}
		st.HITLStatus = HITLPending
		st.HITLPayload = &payload
		st.NextNode = NodeEvaluator // set so a resumed run without a new Resume call degrades gracefully
		return st, &ErrInterrupted{RunID: st.RunID, Payload: payload}
	}

	resume := st.PendingResume
	st.PendingResume = nil

	if resume.Action == "cancel" {
		st.HITLStatus = HITLCancelled
		if resume.Silent {
			st.ToolResults = ""
		} else {
			st.ToolResults = "취소되었습니다"
		}
		st.NextNode = NodeEvaluator
		return st, nil
	}

	args := st.ToolArgs
	if len(resume.Params) > 0 {
		merged := make(map[string]interface{}, len(args)+len(resume.Params))
		for k, v := range args {
			merged[k] = v
		}
		for k, v := range resume.Params {
			merged[k] = v
		}
		args = merged
	}
	st.HITLStatus = HITLConfirmed
	result, err := e.invoke(ctx, st, meta, args)
	if err == nil {
		st.HITLStatus = HITLExecuted
	}
	return result, err
}

func (e *ToolExecutor) invoke(ctx context.Context, st *State, meta tools.Meta, args map[string]interface{}) (*State, error) {
	callerID := ""
	if e.CallerID != nil {
		callerID = e.CallerID(ctx)
	}
	invokeCtx := tools.WithCallerUserID(ctx, callerID)

	result, err := meta.Fn(invokeCtx, args)
	if err != nil {
		// Tool execution errors become the tool's result text so the
		// generator can surface a graceful message.
		st.ToolResults = fmt.Sprintf("도구 실행 중 오류가 발생했습니다: %v", err)
	} else {
		st.ToolResults = result
	}
	if e.Metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.Metrics.RecordToolExecution(meta.Name, status)
	}
	st.NextNode = NodeEvaluator
	return st, nil
}

// buildHITLPayload renders the interrupt payload: required_fields
// from the tool's HITLFields, options loaded from the resolver for
// fields with a dynamic options_source, and UUID arguments substituted
// with human labels in params_display.
func (e *ToolExecutor) buildHITLPayload(ctx context.Context, st *State, meta tools.Meta) (protocol.HITLPayload, error) {
	callerID := ""
	if e.CallerID != nil {
		callerID = e.CallerID(ctx)
	}

	paramsDisplay := make(map[string]string, len(st.ToolArgs))
	fields := make([]protocol.HITLField, 0, len(meta.HITLFields))

	for _, f := range meta.HITLFields {
		var options []protocol.HITLOption
		if f.OptionsSource != "" && e.Resolver != nil {
			opts, err := e.Resolver.Options(ctx, f.OptionsSource, callerID)
			if err != nil {
				return protocol.HITLPayload{}, fmt.Errorf("resolve hitl options for %s: %w", f.Name, err)
			}
			options = opts
		}

		display := fmt.Sprintf("%v", st.ToolArgs[f.Name])
		for _, opt := range options {
			if opt.Value == display {
				display = opt.Label
				break
			}
		}
		paramsDisplay[f.Name] = display

		fields = append(fields, protocol.HITLField{
			Name:        f.Name,
			Description: f.Description,
			Type:        f.Type,
			Required:    f.Required,
			InputType:   f.InputType,
			Placeholder: f.Placeholder,
			Options:     options,
		})
	}

	return protocol.HITLPayload{
		ToolName:            meta.Name,
		Params:              st.ToolArgs,
		ParamsDisplay:       paramsDisplay,
		RequiredFields:      fields,
		DisplayTemplate:     renderDisplayTemplate(meta.DisplayTemplate, paramsDisplay),
		ConfirmationMessage: meta.ConfirmationMessage,
		HITLRequestID:       uuid.NewString(),
	}, nil
}

// renderDisplayTemplate substitutes {{param}} placeholders in tmpl with
// paramsDisplay values.
func renderDisplayTemplate(tmpl string, paramsDisplay map[string]string) string {
	out := tmpl
	for k, v := range paramsDisplay {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}
