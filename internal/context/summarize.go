package context

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teamatoi/meetcore/internal/llmclient"
)

// SummaryResult is the structured output of one summarization call.
type SummaryResult struct {
	Summary      string
	KeyPoints    []string
	KeyDecisions []string
	PendingItems []string
	Participants []string
	Keywords     []string
}

// Summarizer turns a slice of utterances into a SummaryResult, either
// fresh (SummarizeTopic) or merged into a prior summary
// (RecursiveSummarize). On any LLM failure it falls back to a
// deterministic summary so utterances are never dropped.
type Summarizer struct {
	llm          llmclient.Client
	maxTokens    int
	tokenEncoder *tiktoken.Tiktoken
}

func NewSummarizer(llm llmclient.Client, maxTokens int) *Summarizer {
	enc, _ := tiktoken.GetEncoding("cl100k_base")
	return &Summarizer{llm: llm, maxTokens: maxTokens, tokenEncoder: enc}
}

// EstimateTokens approximates the token cost of utterance text, used
// by the Manager's token-budget trigger to summarize early before the
// window outgrows the prompt. Returns a rough char/4 estimate if no
// encoder loaded.
func (s *Summarizer) EstimateTokens(utterances []Utterance) int {
	if s.tokenEncoder == nil {
		total := 0
		for _, u := range utterances {
			total += len(u.Text) / 4
		}
		return total
	}
	total := 0
	for _, u := range utterances {
		total += len(s.tokenEncoder.Encode(u.Text, nil, nil))
	}
	return total
}

// SummarizeTopic produces a brand-new TopicSegment body for a topic
// that has no prior segment yet.
func (s *Summarizer) SummarizeTopic(ctx context.Context, topic string, utterances []Utterance) SummaryResult {
	if len(utterances) == 0 {
		return SummaryResult{}
	}
	if s.llm == nil {
		return s.fallback(topic, utterances)
	}

	prompt := fmt.Sprintf(defaultSummarizePrompt, topic, formatUtterances(utterances))
	resp, err := s.llm.Complete(ctx, prompt, s.maxTokens)
	if err != nil {
		return s.fallback(topic, utterances)
	}
	result, ok := parseSummaryJSON(resp)
	if !ok {
		return s.fallback(topic, utterances)
	}
	return result
}

// RecursiveSummarize extends an existing summary with new utterances
// under the same topic.
func (s *Summarizer) RecursiveSummarize(ctx context.Context, topic, previousSummary string, utterances []Utterance) SummaryResult {
	if len(utterances) == 0 {
		return SummaryResult{Summary: previousSummary}
	}
	if s.llm == nil {
		return s.fallback(topic, utterances)
	}

	prompt := fmt.Sprintf(defaultRecursiveSummarizePrompt, topic, previousSummary, formatUtterances(utterances))
	resp, err := s.llm.Complete(ctx, prompt, s.maxTokens)
	if err != nil {
		return s.fallback(topic, utterances)
	}
	result, ok := parseSummaryJSON(resp)
	if !ok {
		return s.fallback(topic, utterances)
	}
	return result
}

// fallback builds a deterministic summary combining the topic name,
// utterance count, and first/last text snippets.
func (s *Summarizer) fallback(topic string, utterances []Utterance) SummaryResult {
	first := snippet(utterances[0].Text)
	last := snippet(utterances[len(utterances)-1].Text)
	summary := fmt.Sprintf("%s: %d utterances, from %q to %q", topic, len(utterances), first, last)

	seen := make(map[string]bool)
	var participants []string
	for _, u := range utterances {
		if u.SpeakerName != "" && !seen[u.SpeakerName] {
			seen[u.SpeakerName] = true
			participants = append(participants, u.SpeakerName)
		}
	}

	return SummaryResult{
		Summary:      summary,
		Participants: participants,
	}
}

func snippet(text string) string {
	const maxLen = 80
	text = strings.TrimSpace(text)
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen] + "..."
}

func parseSummaryJSON(resp string) (SummaryResult, bool) {
	parsed, ok := extractJSON(resp)
	if !ok {
		return SummaryResult{}, false
	}
	summary, _ := parsed["summary"].(string)
	return SummaryResult{
		Summary:      summary,
		KeyPoints:    normalizeStringList(parsed["key_points"]),
		KeyDecisions: normalizeStringList(parsed["key_decisions"]),
		PendingItems: normalizeStringList(parsed["pending_items"]),
		Participants: normalizeStringList(parsed["participants"]),
		Keywords:     normalizeStringList(parsed["keywords"]),
	}, true
}
