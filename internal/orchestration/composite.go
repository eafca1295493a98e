package orchestration

import "strings"

// CompositeConfig holds the lexical-heuristic keyword lists used to
// detect a composite query (one needing two sequential tool rounds).
// The lists are configuration, not hardcoded: deployments tune them
// per language and domain.
type CompositeConfig struct {
	AssignmentHints  []string
	TeamHints        []string
	ReferentialHints []string
}

// isCompositeQuery reports whether query contains both an assignment
// hint ("담당/책임자") and a team hint ("팀원/같은 팀"), marking it as
// needing two tool rounds.
func (c CompositeConfig) isCompositeQuery(query string) bool {
	return containsAny(query, c.AssignmentHints) && containsAny(query, c.TeamHints)
}

// isSubquery reports whether query already carries a referential token
// ("이전에 찾은" etc.), meaning it's the follow-up round the planner
// itself emitted rather than the original composite query.
func (c CompositeConfig) isSubquery(query string) bool {
	return containsAny(query, c.ReferentialHints)
}

func containsAny(text string, hints []string) bool {
	for _, h := range hints {
		if h != "" && strings.Contains(text, h) {
			return true
		}
	}
	return false
}

// nextStepSubquery builds the follow-up query issued after the first
// tool round of a composite query resolves.
func nextStepSubquery() string {
	return "이전에 찾은 담당자와 같은 팀의 팀원들은 누구인가?"
}
