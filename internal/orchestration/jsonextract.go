package orchestration

import (
	"encoding/json"
	"strings"
)

// extractJSON tolerantly parses an LLM response expected to be a JSON
// object but possibly wrapped in prose: strict parse first, then slice
// from the first '{' to the last '}'. Duplicated from
// internal/context rather than shared, since the two packages' JSON
// shapes and error semantics differ.
func extractJSON(text string) (map[string]interface{}, bool) {
	var direct map[string]interface{}
	if err := json.Unmarshal([]byte(text), &direct); err == nil {
		return direct, true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, false
	}

	var sliced map[string]interface{}
	if err := json.Unmarshal([]byte(text[start:end+1]), &sliced); err != nil {
		return nil, false
	}
	return sliced, true
}
