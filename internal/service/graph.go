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
	ErrPersonaNotFound    = errors.New("persona not found")
	ErrBeliefNotFound     = errors.New("belief not found")
	ErrEdgeNotFound       = errors.New("edge not found")
	ErrTitleRequired      = errors.New("title is required")
	ErrInvalidRelation    = errors.New("invalid relation")
	ErrInvalidConfidence  = errors.New("confidence must be between 0 and 1")
	ErrInvalidWeight      = errors.New("weight must be between 0 and 1")
	ErrEdgeAcrossPersonas = errors.New("edge endpoints must belong to the edge's persona")
)

// GraphService is the mutation and query surface of the belief graph.
type GraphService struct {
	beliefStore  domain.BeliefStore
	personaStore domain.PersonaStore
	logger       *zap.Logger
}

func NewGraphService(bs domain.BeliefStore, ps domain.PersonaStore, logger *zap.Logger) *GraphService {
	return &GraphService{
		beliefStore:  bs,
		personaStore: ps,
		logger:       logger,
	}
}

// QueryGraph returns the persona's nodes and the edges among them.
// minConfidence outside [0,1] is rejected before touching storage.
func (s *GraphService) QueryGraph(ctx context.Context, personaID uuid.UUID, tags []string, minConfidence *float32) (*domain.GraphResult, error) {
	if minConfidence != nil && (*minConfidence < 0 || *minConfidence > 1) {
		return nil, fmt.Errorf("%w: got %f", ErrInvalidConfidence, *minConfidence)
	}
	return s.beliefStore.QueryGraph(ctx, personaID, domain.GraphQueryOpts{
		Tags:          tags,
		MinConfidence: minConfidence,
	})
}

func (s *GraphService) CreateNode(ctx context.Context, n *domain.BeliefNode) error {
	if n.Title == "" {
		return ErrTitleRequired
	}
	if n.CurrentConfidence != nil && (*n.CurrentConfidence < 0 || *n.CurrentConfidence > 1) {
		return fmt.Errorf("%w: got %f", ErrInvalidConfidence, *n.CurrentConfidence)
	}
	if _, err := s.personaStore.GetByID(ctx, n.PersonaID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: persona %s", ErrPersonaNotFound, n.PersonaID)
		}
		return err
	}
	if err := s.beliefStore.CreateNode(ctx, n); err != nil {
		return err
	}
	s.logger.Debug("belief node created",
		zap.String("persona_id", n.PersonaID.String()),
		zap.String("belief_id", n.ID.String()),
		zap.String("title", n.Title))
	return nil
}

func (s *GraphService) GetNode(ctx context.Context, personaID, id uuid.UUID) (*domain.BeliefNode, error) {
	n, err := s.beliefStore.GetNode(ctx, personaID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, id, personaID)
		}
		return nil, err
	}
	return n, nil
}

func (s *GraphService) DeleteNode(ctx context.Context, personaID, id uuid.UUID) error {
	if err := s.beliefStore.DeleteNode(ctx, personaID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: belief %s for persona %s", ErrBeliefNotFound, id, personaID)
		}
		return err
	}
	return nil
}

// CreateEdge validates the relation and verifies both endpoints belong to the
// edge's persona before writing.
func (s *GraphService) CreateEdge(ctx context.Context, e *domain.BeliefEdge) error {
	if !domain.ValidRelation(string(e.Relation)) {
		return fmt.Errorf("%w: %q", ErrInvalidRelation, e.Relation)
	}
	if e.Weight < 0 || e.Weight > 1 {
		return fmt.Errorf("%w: got %f", ErrInvalidWeight, e.Weight)
	}

	for _, endpoint := range []uuid.UUID{e.SourceID, e.TargetID} {
		if _, err := s.beliefStore.GetNode(ctx, e.PersonaID, endpoint); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: node %s is not owned by persona %s", ErrEdgeAcrossPersonas, endpoint, e.PersonaID)
			}
			return err
		}
	}

	return s.beliefStore.CreateEdge(ctx, e)
}

func (s *GraphService) DeleteEdge(ctx context.Context, personaID, id uuid.UUID) error {
	if err := s.beliefStore.DeleteEdge(ctx, personaID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: edge %s for persona %s", ErrEdgeNotFound, id, personaID)
		}
		return err
	}
	return nil
}
