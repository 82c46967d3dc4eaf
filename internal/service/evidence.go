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
	ErrInvalidSourceType = errors.New("invalid evidence source type")
	ErrSourceRefRequired = errors.New("source_ref is required")
)

// EvidenceService appends immutable evidence links to beliefs. Evidence is
// never edited or deleted through this interface.
type EvidenceService struct {
	evidenceStore domain.EvidenceStore
	beliefStore   domain.BeliefStore
	logger        *zap.Logger
}

func NewEvidenceService(es domain.EvidenceStore, bs domain.BeliefStore, logger *zap.Logger) *EvidenceService {
	return &EvidenceService{
		evidenceStore: es,
		beliefStore:   bs,
		logger:        logger,
	}
}

// AppendEvidence validates, verifies belief ownership, inserts the link and
// refreshes the belief's last-modified timestamp.
func (s *EvidenceService) AppendEvidence(ctx context.Context, personaID, beliefID uuid.UUID, sourceType domain.EvidenceSourceType, sourceRef string, strength domain.EvidenceStrength) (*domain.EvidenceLink, error) {
	if !domain.ValidEvidenceSourceType(string(sourceType)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	if !domain.ValidStrength(string(strength)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStrength, strength)
	}
	if sourceRef == "" {
		return nil, ErrSourceRefRequired
	}

	if _, err := s.beliefStore.GetNode(ctx, personaID, beliefID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, beliefID, personaID)
		}
		return nil, err
	}

	link := &domain.EvidenceLink{
		BeliefID:   beliefID,
		SourceType: sourceType,
		SourceRef:  sourceRef,
		Strength:   strength,
	}
	if err := s.evidenceStore.Create(ctx, link); err != nil {
		return nil, err
	}

	if err := s.beliefStore.TouchNode(ctx, personaID, beliefID); err != nil {
		s.logger.Warn("failed to touch belief after evidence append",
			zap.String("persona_id", personaID.String()),
			zap.String("belief_id", beliefID.String()),
			zap.Error(err))
	}

	return link, nil
}

func (s *EvidenceService) ListByBelief(ctx context.Context, personaID, beliefID uuid.UUID, limit int) ([]domain.EvidenceLink, error) {
	if _, err := s.beliefStore.GetNode(ctx, personaID, beliefID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, beliefID, personaID)
		}
		return nil, err
	}
	return s.evidenceStore.ListByBelief(ctx, personaID, beliefID, limit)
}
