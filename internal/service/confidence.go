package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidStrength    = errors.New("invalid evidence strength")
	ErrInvalidDirection   = errors.New("invalid direction")
	ErrInvalidNudgeAmount = errors.New("nudge amount must be in (0, 0.5]")
	ErrConflictIncomplete = errors.New("conflict requires explanation and evidence_strength")
)

const (
	// MinConfidence and MaxConfidence bound every confidence value the engine
	// produces; clamping before the log-odds transform avoids the
	// singularities at 0 and 1.
	MinConfidence = 0.01
	MaxConfidence = 0.99
	// LogOddsScale amplifies strength deltas so a single update is
	// perceptible in probability space.
	LogOddsScale = 5.0
	// HighConfidenceThreshold is where "strong claims need strong evidence"
	// kicks in for conflicts.
	HighConfidenceThreshold = 0.8
	// ModerateConfidenceThreshold separates the full-strength band from the
	// free band below it.
	ModerateConfidenceThreshold = 0.5
	// DefaultPriorConfidence stands in when a stance has no recorded
	// confidence yet.
	DefaultPriorConfidence = 0.5
)

func Logit(p float64) float64 {
	p = clampConfidence(p)
	return math.Log(p / (1 - p))
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func clampConfidence(p float64) float64 {
	if p < MinConfidence {
		return MinConfidence
	}
	if p > MaxConfidence {
		return MaxConfidence
	}
	return p
}

// CalculateNewConfidence applies one evidence update in log-odds space.
// Updates saturate near 0 and 1 and are symmetric under equal-and-opposite
// applications. The result is clamped to [0.01, 0.99] and rounded to three
// decimal places.
func CalculateNewConfidence(current float64, strength domain.EvidenceStrength, direction domain.Direction) float64 {
	logOdds := Logit(current)
	logOdds += direction.Sign() * strength.Delta() * LogOddsScale
	p := clampConfidence(Sigmoid(logOdds))
	return math.Round(p*1000) / 1000
}

// ConflictInput describes a challenge against a belief.
type ConflictInput struct {
	Explanation      string                  `json:"explanation"`
	EvidenceStrength domain.EvidenceStrength `json:"evidence_strength"`
	SourceRef        string                  `json:"source_ref,omitempty"`
}

// ConfidenceService owns the numeric update rules and the conflict policy.
// All mutations flow through the stance store's atomic transition, so every
// confidence change produces a stance version and an audit row together.
type ConfidenceService struct {
	stanceStore domain.StanceStore
	beliefStore domain.BeliefStore
	logger      *zap.Logger
}

func NewConfidenceService(ss domain.StanceStore, bs domain.BeliefStore, logger *zap.Logger) *ConfidenceService {
	return &ConfidenceService{
		stanceStore: ss,
		beliefStore: bs,
		logger:      logger,
	}
}

// UpdateFromEvidence recomputes the belief's confidence from one piece of
// evidence and records it as a new stance version with the same text.
func (s *ConfidenceService) UpdateFromEvidence(ctx context.Context, personaID, beliefID uuid.UUID, strength domain.EvidenceStrength, reason string, direction domain.Direction, actor string) (*domain.StanceVersion, error) {
	if !domain.ValidStrength(string(strength)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrength, strength)
	}
	if !domain.ValidDirection(string(direction)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}

	active, err := s.activeStance(ctx, personaID, beliefID)
	if err != nil {
		return nil, err
	}
	if active.Status == domain.StanceLocked {
		return nil, fmt.Errorf("%w: belief %s for persona %s cannot take evidence updates while locked", ErrStanceLocked, beliefID, personaID)
	}

	before := stanceConfidence(active)
	after := CalculateNewConfidence(before, strength, direction)
	newConf := float32(after)

	rationale := fmt.Sprintf("%s evidence (%s): confidence %.3f -> %.3f. %s",
		strength, direction, before, after, reason)

	sv, err := s.stanceStore.ReplaceCurrent(ctx, domain.ReplaceStanceInput{
		PersonaID:  personaID,
		BeliefID:   beliefID,
		Text:       active.Text,
		Confidence: &newConf,
		Rationale:  rationale,
		Reason:     reason,
		Trigger:    domain.TriggerEvidence,
		Actor:      actor,
	})
	if err != nil {
		return nil, translateStanceErr(err, personaID, beliefID)
	}

	s.logger.Debug("confidence updated from evidence",
		zap.String("persona_id", personaID.String()),
		zap.String("belief_id", beliefID.String()),
		zap.String("strength", string(strength)),
		zap.String("direction", string(direction)),
		zap.Float64("before", before),
		zap.Float64("after", after))
	return sv, nil
}

// UpdateFromConflict applies the "strong claims need strong evidence" policy.
// It returns false, with no state change and no error, when the conflict is
// legitimately rejected: evidence too weak for a high-confidence belief, or a
// locked stance. Malformed input and a missing belief still fail.
//
// Above the high-confidence threshold even strong evidence is deliberately
// applied at only moderate magnitude, so a strong challenge nudges a
// high-confidence belief rather than swinging it.
func (s *ConfidenceService) UpdateFromConflict(ctx context.Context, personaID, beliefID uuid.UUID, conflict ConflictInput, actor string) (bool, error) {
	if conflict.Explanation == "" || conflict.EvidenceStrength == "" {
		return false, ErrConflictIncomplete
	}
	if !domain.ValidStrength(string(conflict.EvidenceStrength)) {
		return false, fmt.Errorf("%w: %q", ErrInvalidStrength, conflict.EvidenceStrength)
	}

	active, err := s.activeStance(ctx, personaID, beliefID)
	if err != nil {
		return false, err
	}
	if active.Status == domain.StanceLocked {
		s.logger.Debug("conflict rejected: stance locked",
			zap.String("persona_id", personaID.String()),
			zap.String("belief_id", beliefID.String()))
		return false, nil
	}

	before := stanceConfidence(active)
	applied := conflict.EvidenceStrength
	switch {
	case before >= HighConfidenceThreshold:
		if conflict.EvidenceStrength != domain.StrengthStrong {
			s.logger.Debug("conflict rejected: high-confidence belief requires strong evidence",
				zap.String("persona_id", personaID.String()),
				zap.String("belief_id", beliefID.String()),
				zap.Float64("confidence", before),
				zap.String("strength", string(conflict.EvidenceStrength)))
			return false, nil
		}
		applied = domain.StrengthModerate
	case before >= ModerateConfidenceThreshold:
		// full strength
	default:
		// below the moderate band any strength applies freely
	}

	after := CalculateNewConfidence(before, applied, domain.DirectionDecrease)
	newConf := float32(after)
	rationale := fmt.Sprintf("conflict (%s evidence applied as %s): confidence %.3f -> %.3f. %s",
		conflict.EvidenceStrength, applied, before, after, conflict.Explanation)

	if _, err := s.stanceStore.ReplaceCurrent(ctx, domain.ReplaceStanceInput{
		PersonaID:  personaID,
		BeliefID:   beliefID,
		Text:       active.Text,
		Confidence: &newConf,
		Rationale:  rationale,
		Reason:     conflict.Explanation,
		Trigger:    domain.TriggerConflict,
		Actor:      actor,
	}); err != nil {
		return false, translateStanceErr(err, personaID, beliefID)
	}
	return true, nil
}

// NudgeConfidence maps an arbitrary amount onto the nearest strength bucket
// and applies it as an evidence update.
func (s *ConfidenceService) NudgeConfidence(ctx context.Context, personaID, beliefID uuid.UUID, direction domain.Direction, amount float64, reason, actor string) (*domain.StanceVersion, error) {
	if amount <= 0 || amount > 0.5 {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidNudgeAmount, amount)
	}

	var strength domain.EvidenceStrength
	switch {
	case amount <= 0.05:
		strength = domain.StrengthWeak
	case amount <= 0.15:
		strength = domain.StrengthModerate
	default:
		strength = domain.StrengthStrong
	}
	return s.UpdateFromEvidence(ctx, personaID, beliefID, strength, reason, direction, actor)
}

// ManualUpdate is a direct admin override. It bypasses the evidence math but
// still goes through the lock check and the atomic stance transition. Nil
// confidence or text keep the existing values.
func (s *ConfidenceService) ManualUpdate(ctx context.Context, personaID, beliefID uuid.UUID, confidence *float32, text *string, rationale, actor string) (*domain.StanceVersion, error) {
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidConfidence, *confidence)
	}

	active, err := s.stanceStore.GetActive(ctx, personaID, beliefID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	newText := ""
	var newConf *float32
	if active != nil {
		if active.Status == domain.StanceLocked {
			return nil, fmt.Errorf("%w: belief %s for persona %s cannot be manually updated while locked", ErrStanceLocked, beliefID, personaID)
		}
		newText = active.Text
		newConf = active.Confidence
	}
	if text != nil {
		newText = *text
	}
	if confidence != nil {
		newConf = confidence
	}
	if newText == "" {
		return nil, ErrTextRequired
	}

	sv, err := s.stanceStore.ReplaceCurrent(ctx, domain.ReplaceStanceInput{
		PersonaID:  personaID,
		BeliefID:   beliefID,
		Text:       newText,
		Confidence: newConf,
		Rationale:  rationale,
		Trigger:    domain.TriggerManual,
		Actor:      actor,
	})
	if err != nil {
		return nil, translateStanceErr(err, personaID, beliefID)
	}
	return sv, nil
}

// activeStance loads the current-or-locked stance, translating the store
// sentinels into domain errors that name the persona and belief.
func (s *ConfidenceService) activeStance(ctx context.Context, personaID, beliefID uuid.UUID) (*domain.StanceVersion, error) {
	active, err := s.stanceStore.GetActive(ctx, personaID, beliefID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s has no active stance", ErrStanceNotFound, beliefID, personaID)
		}
		return nil, err
	}
	return active, nil
}

func stanceConfidence(sv *domain.StanceVersion) float64 {
	if sv.Confidence == nil {
		return DefaultPriorConfidence
	}
	return float64(*sv.Confidence)
}

func translateStanceErr(err error, personaID, beliefID uuid.UUID) error {
	if errors.Is(err, store.ErrLocked) {
		return fmt.Errorf("%w: belief %s for persona %s", ErrStanceLocked, beliefID, personaID)
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, beliefID, personaID)
	}
	return err
}
