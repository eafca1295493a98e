package orchestration

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teamatoi/meetcore/internal/tools"
)

// OpenAILLM implements PlannerLLM, EvaluatorLLM, and GeneratorLLM
// over OpenAI's chat completions tool-calling API.
type OpenAILLM struct {
	client *openai.Client
	model  string
}

func NewOpenAILLM(client *openai.Client, model string) *OpenAILLM {
	return &OpenAILLM{client: client, model: model}
}

func (o *OpenAILLM) Plan(ctx context.Context, messages []Message, available []tools.Meta) (ToolCall, error) {
	req := openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(available),
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ToolCall{}, fmt.Errorf("planner llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ToolCall{}, fmt.Errorf("planner llm: empty choices")
	}

	choice := resp.Choices[0].Message
	if len(choice.ToolCalls) == 0 {
		return ToolCall{DirectResponse: choice.Content}, nil
	}

	tc := choice.ToolCalls[0]
	var args map[string]interface{}
	if tc.Function.Arguments != "" {
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return ToolCall{}, fmt.Errorf("planner llm: parse tool args: %w", err)
		}
	}
	return ToolCall{ToolName: tc.Function.Name, Args: args}, nil
}

func (o *OpenAILLM) Evaluate(ctx context.Context, query, toolResults string) (EvalStatus, string, error) {
	prompt := fmt.Sprintf(evaluatorPrompt, query, toolResults)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
	})
	if err != nil {
		return EvalRetry, "", fmt.Errorf("evaluator llm: %w", err)
	}
	if len(resp.Choices) == 0 {
		return EvalRetry, "", fmt.Errorf("evaluator llm: empty choices")
	}

	parsed, ok := extractJSON(resp.Choices[0].Message.Content)
	if !ok {
		return EvalRetry, "unparseable evaluator response", nil
	}
	statusStr, _ := parsed["status"].(string)
	reason, _ := parsed["reason"].(string)
	switch EvalStatus(statusStr) {
	case EvalSuccess:
		return EvalSuccess, reason, nil
	case EvalReplanning:
		return EvalReplanning, reason, nil
	default:
		return EvalRetry, reason, nil
	}
}

func (o *OpenAILLM) Generate(ctx context.Context, prompt string, emit func(token string)) (string, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("generator llm: %w", err)
	}
	defer stream.Close()

	var full string
	for {
		resp, err := stream.Recv()
		if err != nil {
			break
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full += delta
		if emit != nil {
			emit(delta)
		}
	}
	return full, nil
}

const evaluatorPrompt = `Query: %s

Tool results:
%s

Decide whether these results adequately answer the query. Respond with
JSON only: {"status": "success"|"retry"|"replanning", "reason": string}.`

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		case "tool":
			role = openai.ChatMessageRoleTool
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func toOpenAITools(available []tools.Meta) []openai.Tool {
	out := make([]openai.Tool, 0, len(available))
	for _, t := range available {
		props := make(map[string]interface{}, len(t.Params))
		var required []string
		for name, p := range t.Params {
			prop := map[string]interface{}{"type": jsonSchemaType(p.Type), "description": p.Description}
			if len(p.Enum) > 0 {
				prop["enum"] = p.Enum
			}
			props[name] = prop
			if p.Required {
				required = append(required, name)
			}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters: map[string]interface{}{
					"type":       "object",
					"properties": props,
					"required":   required,
				},
			},
		})
	}
	return out
}

func jsonSchemaType(t string) string {
	switch t {
	case "uuid":
		return "string"
	case "":
		return "string"
	default:
		return t
	}
}
