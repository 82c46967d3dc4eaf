package domain

import (
	"time"

	"github.com/google/uuid"
)

// InteractionType classifies an episodic memory entry.
type InteractionType string

const (
	InteractionPost    InteractionType = "post"
	InteractionComment InteractionType = "comment"
	InteractionReply   InteractionType = "reply"
)

func ValidInteractionType(t string) bool {
	switch InteractionType(t) {
	case InteractionPost, InteractionComment, InteractionReply:
		return true
	}
	return false
}

// Metadata keys required when logging an interaction.
const (
	MetaExternalRef = "external_ref"
	MetaContainer   = "container"
	MetaParentRef   = "parent_ref"
)

// Interaction is one timestamped entry in a persona's episodic memory.
// ExternalRef is unique across all interactions; Container is the
// subreddit-equivalent grouping the interaction happened in.
type Interaction struct {
	ID          uuid.UUID       `json:"id"`
	PersonaID   uuid.UUID       `json:"persona_id"`
	Content     string          `json:"content"`
	Type        InteractionType `json:"type"`
	ExternalRef string          `json:"external_ref"`
	Container   string          `json:"container"`
	ParentRef   *string         `json:"parent_ref,omitempty"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
	Embedding   []float32       `json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
}

// InteractionWithScore pairs an interaction with its similarity to a query,
// where similarity = 1 / (1 + distance).
type InteractionWithScore struct {
	Interaction
	Similarity float32 `json:"similarity"`
}
