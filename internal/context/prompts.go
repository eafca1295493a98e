package context

// Prompt templates for the two LLM-backed collaborators this package
// calls out to: topic-change detection and recursive summarization.
// Exact wording is not part of any external contract.
const (
	defaultTopicDetectPrompt = `You are monitoring a meeting transcript for topic changes.
Current topic: %s

Recent utterances:
%s

Decide whether the conversation has moved to a new topic. Respond with
JSON only, no prose: {"topic_changed": bool, "current_topic": string}.
If the topic changed, current_topic should be a short (2-4 word) name
for the new topic. If it did not, set current_topic to the existing
topic name.`

	defaultSummarizePrompt = `Summarize the following meeting utterances under the topic "%s".

Utterances:
%s

Respond with JSON only, no prose, shaped exactly as:
{"summary": string, "key_points": [string], "key_decisions": [string],
 "pending_items": [string], "participants": [string], "keywords": [string]}`

	defaultRecursiveSummarizePrompt = `Existing summary for topic "%s":
%s

New utterances to merge in:
%s

Produce an updated summary that extends the existing one with the new
content (do not drop prior key points unless superseded). Respond with
JSON only, no prose, shaped exactly as:
{"summary": string, "key_points": [string], "key_decisions": [string],
 "pending_items": [string], "participants": [string], "keywords": [string]}`
)
