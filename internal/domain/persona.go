package domain

import (
	"time"

	"github.com/google/uuid"
)

// Persona is the isolation boundary. Every belief, stance, evidence link and
// interaction belongs to exactly one persona; deleting a persona cascades to
// all of it.
type Persona struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PersonaConfig carries the prompt-facing identity of a persona. It is
// supplied by the caller (the agent loop owns persona configuration).
type PersonaConfig struct {
	Name          string   `json:"name"`
	Background    string   `json:"background"`
	WritingRules  []string `json:"writing_rules"`
	VoiceExamples []string `json:"voice_examples"`
}
