package domain

import (
	"context"

	"github.com/google/uuid"
)

type PersonaStore interface {
	Create(ctx context.Context, p *Persona) error
	GetByID(ctx context.Context, id uuid.UUID) (*Persona, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GraphQueryOpts filters QueryGraph. Tags match any, case-insensitive.
type GraphQueryOpts struct {
	Tags          []string
	MinConfidence *float32
}

type BeliefStore interface {
	CreateNode(ctx context.Context, n *BeliefNode) error
	GetNode(ctx context.Context, personaID, id uuid.UUID) (*BeliefNode, error)
	DeleteNode(ctx context.Context, personaID, id uuid.UUID) error
	QueryGraph(ctx context.Context, personaID uuid.UUID, opts GraphQueryOpts) (*GraphResult, error)
	CreateEdge(ctx context.Context, e *BeliefEdge) error
	DeleteEdge(ctx context.Context, personaID, id uuid.UUID) error
	EdgesForNodes(ctx context.Context, personaID uuid.UUID, nodeIDs []uuid.UUID) ([]BeliefEdge, error)
	TouchNode(ctx context.Context, personaID, id uuid.UUID) error
}

// ReplaceStanceInput drives the atomic stance transition: deprecate the
// existing current stance (if any), insert the new current one, update the
// belief's confidence and append one audit row, all in one transaction.
type ReplaceStanceInput struct {
	PersonaID  uuid.UUID
	BeliefID   uuid.UUID
	Text       string
	Confidence *float32
	Rationale  string
	Reason     string
	Trigger    TriggerType
	Actor      string
}

type StanceStore interface {
	// GetActive returns the current-or-locked stance for a belief.
	GetActive(ctx context.Context, personaID, beliefID uuid.UUID) (*StanceVersion, error)
	ReplaceCurrent(ctx context.Context, in ReplaceStanceInput) (*StanceVersion, error)
	Lock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*StanceVersion, error)
	Unlock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*StanceVersion, error)
	ListByBelief(ctx context.Context, personaID, beliefID uuid.UUID) ([]StanceVersion, error)
	ListUpdates(ctx context.Context, personaID, beliefID uuid.UUID) ([]BeliefUpdate, error)
}

type EvidenceStore interface {
	Create(ctx context.Context, e *EvidenceLink) error
	ListByBelief(ctx context.Context, personaID, beliefID uuid.UUID, limit int) ([]EvidenceLink, error)
}

type InteractionStore interface {
	Create(ctx context.Context, i *Interaction) error
	GetByIDs(ctx context.Context, personaID uuid.UUID, ids []uuid.UUID) ([]Interaction, error)
	ListByPersona(ctx context.Context, personaID uuid.UUID) ([]Interaction, error)
	UpdateEmbedding(ctx context.Context, personaID, id uuid.UUID, embedding []float32) error
}

// IndexMatch is one nearest-neighbor hit from a persona's vector index.
type IndexMatch struct {
	ID       uuid.UUID
	Distance float32
}

// VectorIndex is the per-persona nearest-neighbor index over interaction
// embeddings. Implementations isolate personas from each other and persist
// each index as sidecar artifacts regenerable from the relational store.
type VectorIndex interface {
	Add(personaID, id uuid.UUID, vector []float32) error
	Search(personaID uuid.UUID, vector []float32, k int) ([]IndexMatch, error)
	Replace(personaID uuid.UUID, ids []uuid.UUID, vectors [][]float32) error
	Size(personaID uuid.UUID) int
	Persist(personaID uuid.UUID) error
	Load(personaID uuid.UUID) error
	Clear(personaID uuid.UUID) error
}

type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Tokenizer counts tokens for budget enforcement. Optional; callers fall back
// to a length/4 approximation when none is configured.
type Tokenizer interface {
	CountTokens(text string) int
}
