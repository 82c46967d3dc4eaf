package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/tokenizer"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrThreadContainerRequired = errors.New("thread context requires a container")

const (
	// DefaultTokenBudget caps the assembled context handed downstream.
	DefaultTokenBudget = 1800
	// ContextMinConfidence filters which beliefs make it into a context.
	ContextMinConfidence = 0.5
	// MaxPastStatements fetched per assembly.
	MaxPastStatements = 5
	// EvidenceBeliefCount is how many top beliefs get evidence attached.
	EvidenceBeliefCount = 5
	// EvidencePerBelief caps evidence rows per belief.
	EvidencePerBelief = 2
)

// ContextService assembles a token-budgeted context for the agent and renders
// it into a structured prompt.
type ContextService struct {
	beliefStore   domain.BeliefStore
	evidenceStore domain.EvidenceStore
	memory        *MemoryService
	tok           domain.Tokenizer
	budget        int
	logger        *zap.Logger
}

func NewContextService(bs domain.BeliefStore, es domain.EvidenceStore, memory *MemoryService, tok domain.Tokenizer, budget int, logger *zap.Logger) *ContextService {
	if tok == nil {
		tok = tokenizer.NewApprox()
	}
	if budget <= 0 {
		budget = DefaultTokenBudget
	}
	return &ContextService{
		beliefStore:   bs,
		evidenceStore: es,
		memory:        memory,
		tok:           tok,
		budget:        budget,
		logger:        logger,
	}
}

// AssembleContext gathers beliefs, their edges, similar past statements and
// evidence for the top beliefs, then prunes deterministically until the token
// budget holds. Pruning order is fixed: past statements from the
// least-similar end, then lowest-confidence beliefs (always keeping one),
// then evidence from the lowest-confidence end.
func (s *ContextService) AssembleContext(ctx context.Context, personaID uuid.UUID, thread domain.ThreadContext, tags []string) (*domain.AssembledContext, error) {
	if thread.Container == "" {
		return nil, fmt.Errorf("%w: persona %s", ErrThreadContainerRequired, personaID)
	}

	minConf := float32(ContextMinConfidence)
	graph, err := s.beliefStore.QueryGraph(ctx, personaID, domain.GraphQueryOpts{
		Tags:          tags,
		MinConfidence: &minConf,
	})
	if err != nil {
		return nil, fmt.Errorf("query beliefs for context: %w", err)
	}

	var past []domain.InteractionWithScore
	if query := thread.QueryText(); query != "" {
		past, err = s.memory.SearchHistory(ctx, personaID, query, MaxPastStatements, thread.Container)
		if err != nil {
			return nil, fmt.Errorf("search history for context: %w", err)
		}
	}

	evidence := make(map[uuid.UUID][]domain.EvidenceLink)
	for i, belief := range graph.Nodes {
		if i >= EvidenceBeliefCount {
			break
		}
		links, err := s.evidenceStore.ListByBelief(ctx, personaID, belief.ID, EvidencePerBelief)
		if err != nil {
			return nil, fmt.Errorf("load evidence for belief %s: %w", belief.ID, err)
		}
		if len(links) > 0 {
			evidence[belief.ID] = links
		}
	}

	assembled := &domain.AssembledContext{
		Beliefs:        graph.Nodes,
		Edges:          graph.Edges,
		Evidence:       evidence,
		PastStatements: past,
		Thread:         thread,
	}

	s.prune(assembled, personaID)
	assembled.TokenCount = s.measure(assembled)
	return assembled, nil
}

// prune applies the fixed-order budget policy. It only runs when the
// assembled size exceeds the budget.
func (s *ContextService) prune(a *domain.AssembledContext, personaID uuid.UUID) {
	if s.measure(a) <= s.budget {
		return
	}

	// (a) drop past statements, least similar first. SearchHistory returns
	// them most-similar first, so trim from the end.
	for len(a.PastStatements) > 0 && s.measure(a) > s.budget {
		a.PastStatements = a.PastStatements[:len(a.PastStatements)-1]
	}

	// (b) drop lowest-confidence beliefs one at a time, always keeping one.
	// QueryGraph orders by confidence descending already.
	for len(a.Beliefs) > 1 && s.measure(a) > s.budget {
		dropped := a.Beliefs[len(a.Beliefs)-1]
		a.Beliefs = a.Beliefs[:len(a.Beliefs)-1]
		delete(a.Evidence, dropped.ID)
		a.Edges = edgesAmong(a.Edges, a.Beliefs)
	}

	// (c) zero out evidence starting from the lowest-confidence end.
	for i := len(a.Beliefs) - 1; i >= 0 && s.measure(a) > s.budget; i-- {
		delete(a.Evidence, a.Beliefs[i].ID)
	}

	if over := s.measure(a) - s.budget; over > 0 {
		s.logger.Debug("context still over budget after pruning",
			zap.String("persona_id", personaID.String()),
			zap.Int("over_by", over))
	}
}

func edgesAmong(edges []domain.BeliefEdge, nodes []domain.BeliefNode) []domain.BeliefEdge {
	keep := make(map[uuid.UUID]struct{}, len(nodes))
	for _, n := range nodes {
		keep[n.ID] = struct{}{}
	}
	filtered := edges[:0]
	for _, e := range edges {
		if _, okS := keep[e.SourceID]; !okS {
			continue
		}
		if _, okT := keep[e.TargetID]; !okT {
			continue
		}
		filtered = append(filtered, e)
	}
	return filtered
}

// measure counts the tokens of everything the context contributes to a
// prompt. The count is an estimate when the approximate tokenizer is in use,
// which is why the budget contract allows a small margin.
func (s *ContextService) measure(a *domain.AssembledContext) int {
	total := s.tok.CountTokens(a.Thread.QueryText())
	for _, b := range a.Beliefs {
		total += s.tok.CountTokens(b.Title + " " + b.Summary)
	}
	for _, p := range a.PastStatements {
		total += s.tok.CountTokens(p.Content)
	}
	for _, links := range a.Evidence {
		for _, e := range links {
			total += s.tok.CountTokens(e.SourceRef)
		}
	}
	return total
}
