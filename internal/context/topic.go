package context

import (
	"context"
	"fmt"
	"strings"

	"github.com/teamatoi/meetcore/internal/llmclient"
)

// TopicChange is the result of a topic-detection pass.
type TopicChange struct {
	Changed      bool
	CurrentTopic string
}

// TopicDetector decides whether a meeting's conversation has moved to
// a new topic, combining a cheap keyword fast-path with an LLM-backed
// check.
type TopicDetector struct {
	llm              llmclient.Client
	transitionHints  []string
}

func NewTopicDetector(llm llmclient.Client, transitionHints []string) *TopicDetector {
	return &TopicDetector{llm: llm, transitionHints: transitionHints}
}

// QuickCheck is the lexical fast path: true if the latest utterance
// contains one of the configured transition hint phrases. It never
// calls the LLM and never itself decides the new topic name.
func (d *TopicDetector) QuickCheck(latest Utterance) bool {
	text := latest.Text
	for _, hint := range d.transitionHints {
		if hint == "" {
			continue
		}
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

// Detect runs the LLM topic-change check over the most recent window
// plus the current topic's running summary. On any LLM failure
// (disabled client, timeout, unparseable response) it reports no
// change: never force a spurious topic split on a transient LLM
// error.
func (d *TopicDetector) Detect(ctx context.Context, currentTopic, currentSummary string, recent []Utterance) TopicChange {
	if d.llm == nil {
		return TopicChange{Changed: false, CurrentTopic: currentTopic}
	}

	prompt := fmt.Sprintf(defaultTopicDetectPrompt, currentTopic, formatUtterances(recent))
	if currentSummary != "" {
		prompt += "\n\nPrevious topic summary: " + currentSummary
	}

	resp, err := d.llm.Complete(ctx, prompt, 256)
	if err != nil {
		return TopicChange{Changed: false, CurrentTopic: currentTopic}
	}

	parsed, ok := extractJSON(resp)
	if !ok {
		return TopicChange{Changed: false, CurrentTopic: currentTopic}
	}

	changed, _ := parsed["topic_changed"].(bool)
	name, _ := parsed["current_topic"].(string)
	if !changed {
		return TopicChange{Changed: false, CurrentTopic: currentTopic}
	}
	if name == "" {
		name = currentTopic
	}
	return TopicChange{Changed: true, CurrentTopic: name}
}

func formatUtterances(utterances []Utterance) string {
	var b strings.Builder
	for _, u := range utterances {
		fmt.Fprintf(&b, "%s: %s\n", u.SpeakerName, u.Text)
	}
	return b.String()
}
