package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrStanceNotFound = errors.New("stance not found")
	ErrStanceLocked   = errors.New("stance is locked")
	ErrTextRequired   = errors.New("stance text is required")
)

// StanceService drives the stance lifecycle: (none) -> current -> deprecated
// on every update, current <-> locked only via explicit lock/unlock. A locked
// stance is never transitioned automatically.
type StanceService struct {
	stanceStore domain.StanceStore
	beliefStore domain.BeliefStore
	logger      *zap.Logger
}

func NewStanceService(ss domain.StanceStore, bs domain.BeliefStore, logger *zap.Logger) *StanceService {
	return &StanceService{
		stanceStore: ss,
		beliefStore: bs,
		logger:      logger,
	}
}

// UpdateStance atomically deprecates the current stance (if any), inserts the
// new current one, updates the belief's confidence and appends one audit row.
// A locked stance fails the whole operation with ErrStanceLocked and writes
// nothing.
func (s *StanceService) UpdateStance(ctx context.Context, personaID, beliefID uuid.UUID, text string, confidence *float32, rationale, actor string, trigger domain.TriggerType) (*domain.StanceVersion, error) {
	if text == "" {
		return nil, ErrTextRequired
	}
	if confidence != nil && (*confidence < 0 || *confidence > 1) {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidConfidence, *confidence)
	}
	if trigger == "" {
		trigger = domain.TriggerAgent
	}

	sv, err := s.stanceStore.ReplaceCurrent(ctx, domain.ReplaceStanceInput{
		PersonaID:  personaID,
		BeliefID:   beliefID,
		Text:       text,
		Confidence: confidence,
		Rationale:  rationale,
		Trigger:    trigger,
		Actor:      actor,
	})
	if err != nil {
		if errors.Is(err, store.ErrLocked) {
			return nil, fmt.Errorf("%w: belief %s for persona %s cannot be updated while locked", ErrStanceLocked, beliefID, personaID)
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, beliefID, personaID)
		}
		return nil, err
	}

	s.logger.Debug("stance updated",
		zap.String("persona_id", personaID.String()),
		zap.String("belief_id", beliefID.String()),
		zap.String("stance_id", sv.ID.String()),
		zap.String("trigger", string(trigger)),
		zap.String("actor", actor))
	return sv, nil
}

// Lock freezes the current stance. Fails with ErrStanceNotFound if the belief
// has no current stance (including when it is already locked).
func (s *StanceService) Lock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*domain.StanceVersion, error) {
	sv, err := s.stanceStore.Lock(ctx, personaID, beliefID, reason, actor)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s has no current stance to lock", ErrStanceNotFound, beliefID, personaID)
		}
		return nil, err
	}
	s.logger.Info("stance locked",
		zap.String("persona_id", personaID.String()),
		zap.String("belief_id", beliefID.String()),
		zap.String("actor", actor))
	return sv, nil
}

// Unlock returns a locked stance to current. Fails with ErrStanceNotFound if
// no locked stance exists.
func (s *StanceService) Unlock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*domain.StanceVersion, error) {
	sv, err := s.stanceStore.Unlock(ctx, personaID, beliefID, reason, actor)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s has no locked stance to unlock", ErrStanceNotFound, beliefID, personaID)
		}
		return nil, err
	}
	s.logger.Info("stance unlocked",
		zap.String("persona_id", personaID.String()),
		zap.String("belief_id", beliefID.String()),
		zap.String("actor", actor))
	return sv, nil
}

// History lists every stance version, current first, locked next, deprecated
// last, newest first within each group.
func (s *StanceService) History(ctx context.Context, personaID, beliefID uuid.UUID) ([]domain.StanceVersion, error) {
	if _, err := s.beliefStore.GetNode(ctx, personaID, beliefID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, beliefID, personaID)
		}
		return nil, err
	}
	return s.stanceStore.ListByBelief(ctx, personaID, beliefID)
}

// AuditLog lists the belief's append-only update records, newest first.
func (s *StanceService) AuditLog(ctx context.Context, personaID, beliefID uuid.UUID) ([]domain.BeliefUpdate, error) {
	if _, err := s.beliefStore.GetNode(ctx, personaID, beliefID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, beliefID, personaID)
		}
		return nil, err
	}
	return s.stanceStore.ListUpdates(ctx, personaID, beliefID)
}
