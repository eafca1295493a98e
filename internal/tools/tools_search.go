package tools

import (
	"context"
	"fmt"
)

// RegisterSearchTool registers the knowledge-graph search tool. The
// search implementation itself lives in a separate retrieval service;
// this wrapper only shapes the tool call and result for the
// planner/evaluator.
func RegisterSearchTool(r *Registry, repo KGRepository) {
	r.Register(Meta{
		Name:        "search_knowledge_graph",
		Description: "Free-text search over meetings, decisions, action items, and users.",
		Category:    CategoryQuery,
		Params: map[string]ParamSpec{
			"query": {Type: "string", Description: "Search query text", Required: true},
		},
		Fn: func(ctx context.Context, args map[string]interface{}) (string, error) {
			q, _ := args["query"].(string)
			result, err := repo.Search(ctx, q)
			if err != nil {
				return "", fmt.Errorf("search_knowledge_graph: %w", err)
			}
			return marshalToolResult(result)
		},
	})
}
