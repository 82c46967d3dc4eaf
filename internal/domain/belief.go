package domain

import (
	"time"

	"github.com/google/uuid"
)

// Relation describes how one belief relates to another.
type Relation string

const (
	RelationSupports    Relation = "supports"
	RelationContradicts Relation = "contradicts"
	RelationDependsOn   Relation = "depends_on"
	RelationEvidenceFor Relation = "evidence_for"
)

func ValidRelation(r string) bool {
	switch Relation(r) {
	case RelationSupports, RelationContradicts, RelationDependsOn, RelationEvidenceFor:
		return true
	}
	return false
}

// EvidenceStrength buckets how hard a piece of evidence pushes a belief.
type EvidenceStrength string

const (
	StrengthWeak     EvidenceStrength = "weak"
	StrengthModerate EvidenceStrength = "moderate"
	StrengthStrong   EvidenceStrength = "strong"
)

func ValidStrength(s string) bool {
	switch EvidenceStrength(s) {
	case StrengthWeak, StrengthModerate, StrengthStrong:
		return true
	}
	return false
}

// Delta returns the base log-odds delta for a strength bucket.
func (s EvidenceStrength) Delta() float64 {
	switch s {
	case StrengthWeak:
		return 0.05
	case StrengthModerate:
		return 0.10
	case StrengthStrong:
		return 0.20
	default:
		return 0
	}
}

// Direction of a confidence update.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

func ValidDirection(d string) bool {
	switch Direction(d) {
	case DirectionIncrease, DirectionDecrease:
		return true
	}
	return false
}

// Sign returns +1 for increase, -1 for decrease.
func (d Direction) Sign() float64 {
	if d == DirectionDecrease {
		return -1
	}
	return 1
}

// EvidenceSourceType identifies where an evidence link points.
type EvidenceSourceType string

const (
	SourceRedditComment EvidenceSourceType = "reddit_comment"
	SourceExternalLink  EvidenceSourceType = "external_link"
	SourceNote          EvidenceSourceType = "note"
)

func ValidEvidenceSourceType(s string) bool {
	switch EvidenceSourceType(s) {
	case SourceRedditComment, SourceExternalLink, SourceNote:
		return true
	}
	return false
}

// StanceStatus is the lifecycle state of a stance version. At most one stance
// per belief is "current" or "locked" at any instant.
type StanceStatus string

const (
	StanceCurrent    StanceStatus = "current"
	StanceDeprecated StanceStatus = "deprecated"
	StanceLocked     StanceStatus = "locked"
)

// TriggerType records what caused a belief update.
type TriggerType string

const (
	TriggerManual   TriggerType = "manual"
	TriggerEvidence TriggerType = "evidence"
	TriggerConflict TriggerType = "conflict"
	TriggerAgent    TriggerType = "agent"
)

// BeliefNode is a titled, confidence-rated proposition owned by a persona.
type BeliefNode struct {
	ID                uuid.UUID `json:"id"`
	PersonaID         uuid.UUID `json:"persona_id"`
	Title             string    `json:"title"`
	Summary           string    `json:"summary"`
	CurrentConfidence *float32  `json:"current_confidence"`
	Tags              []string  `json:"tags"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// BeliefEdge links two belief nodes of the same persona.
type BeliefEdge struct {
	ID        uuid.UUID `json:"id"`
	PersonaID uuid.UUID `json:"persona_id"`
	SourceID  uuid.UUID `json:"source_id"`
	TargetID  uuid.UUID `json:"target_id"`
	Relation  Relation  `json:"relation"`
	Weight    float32   `json:"weight"`
	CreatedAt time.Time `json:"created_at"`
}

// StanceVersion is one timestamped snapshot of a belief's opinion.
type StanceVersion struct {
	ID         uuid.UUID    `json:"id"`
	BeliefID   uuid.UUID    `json:"belief_id"`
	Text       string       `json:"text"`
	Confidence *float32     `json:"confidence"`
	Status     StanceStatus `json:"status"`
	Rationale  string       `json:"rationale"`
	CreatedAt  time.Time    `json:"created_at"`
}

// EvidenceLink ties a belief to a source. Immutable once created.
type EvidenceLink struct {
	ID         uuid.UUID          `json:"id"`
	BeliefID   uuid.UUID          `json:"belief_id"`
	SourceType EvidenceSourceType `json:"source_type"`
	SourceRef  string             `json:"source_ref"`
	Strength   EvidenceStrength   `json:"strength"`
	CreatedAt  time.Time          `json:"created_at"`
}

// BeliefUpdate is an append-only audit row capturing a stance transition.
// Old fields are nil for the first version of a belief.
type BeliefUpdate struct {
	ID            uuid.UUID    `json:"id"`
	BeliefID      uuid.UUID    `json:"belief_id"`
	OldText       *string      `json:"old_text"`
	NewText       string       `json:"new_text"`
	OldConfidence *float32     `json:"old_confidence"`
	NewConfidence *float32     `json:"new_confidence"`
	OldStatus     *StanceStatus `json:"old_status"`
	NewStatus     StanceStatus `json:"new_status"`
	Reason        string       `json:"reason"`
	TriggerType   TriggerType  `json:"trigger_type"`
	Actor         string       `json:"actor"`
	CreatedAt     time.Time    `json:"created_at"`
}

// GraphResult is the shape returned by graph queries.
type GraphResult struct {
	Nodes []BeliefNode `json:"nodes"`
	Edges []BeliefEdge `json:"edges"`
}
