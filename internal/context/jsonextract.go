package context

import (
	"encoding/json"
	"strings"
)

// extractJSON tolerantly parses an LLM response that is expected to
// be a JSON object but may be wrapped in prose. It tries a strict
// parse first, then falls back to slicing from the first '{' to the
// last '}'.
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

// normalizeStringList coerces a loosely-typed JSON value (string,
// []interface{}, or nil) into a []string.
func normalizeStringList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}

// mergeUnique merges two string lists without duplicates, preserving
// the order of first appearance.
func mergeUnique(existing, additions []string) []string {
	seen := make(map[string]bool, len(existing)+len(additions))
	merged := make([]string, 0, len(existing)+len(additions))
	for _, item := range append(append([]string{}, existing...), additions...) {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		merged = append(merged, item)
	}
	return merged
}
