package domain

import "github.com/google/uuid"

// ThreadContext is the caller-supplied description of the thread the agent is
// about to respond in. Container is required.
type ThreadContext struct {
	Container  string `json:"container"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	ParentText string `json:"parent_text"`
}

// QueryText joins the thread's textual parts into one retrieval query.
func (t ThreadContext) QueryText() string {
	q := t.Title
	if t.Body != "" {
		q += "\n" + t.Body
	}
	if t.ParentText != "" {
		q += "\n" + t.ParentText
	}
	return q
}

// AssembledContext is the token-budgeted bundle handed to prompt rendering.
type AssembledContext struct {
	Beliefs        []BeliefNode                 `json:"beliefs"`
	Edges          []BeliefEdge                 `json:"edges"`
	Evidence       map[uuid.UUID][]EvidenceLink `json:"evidence"`
	PastStatements []InteractionWithScore       `json:"past_statements"`
	Thread         ThreadContext                `json:"thread"`
	TokenCount     int                          `json:"token_count"`
}
