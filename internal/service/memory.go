package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrContentRequired        = errors.New("content is required")
	ErrInvalidInteractionType = errors.New("invalid interaction type")
	ErrExternalRefRequired    = errors.New("metadata.external_ref is required")
	ErrContainerRequired      = errors.New("metadata.container is required")
	ErrDuplicateExternalRef   = errors.New("external_ref already logged")
	ErrQueryRequired          = errors.New("query is required")
	ErrInvalidLimit           = errors.New("limit must be at least 1")
	ErrEmbeddingUnavailable   = errors.New("embedding client not configured")
)

// MemoryService is the episodic memory: a durable interaction log per persona
// with a semantic search index over interaction embeddings.
type MemoryService struct {
	interactionStore domain.InteractionStore
	personaStore     domain.PersonaStore
	index            domain.VectorIndex
	embeddingClient  domain.EmbeddingClient
	logger           *zap.Logger
}

func NewMemoryService(is domain.InteractionStore, ps domain.PersonaStore, index domain.VectorIndex, ec domain.EmbeddingClient, logger *zap.Logger) *MemoryService {
	return &MemoryService{
		interactionStore: is,
		personaStore:     ps,
		index:            index,
		embeddingClient:  ec,
		logger:           logger,
	}
}

// LogInteraction records one interaction. Embedding and indexing run
// immediately afterward but are best-effort: their failure never fails the
// log call and is recoverable via RebuildIndex.
func (s *MemoryService) LogInteraction(ctx context.Context, personaID uuid.UUID, content string, interactionType domain.InteractionType, metadata map[string]any) (*domain.Interaction, error) {
	if content == "" {
		return nil, ErrContentRequired
	}
	if !domain.ValidInteractionType(string(interactionType)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInteractionType, interactionType)
	}

	externalRef, _ := metadata[domain.MetaExternalRef].(string)
	if externalRef == "" {
		return nil, ErrExternalRefRequired
	}
	container, _ := metadata[domain.MetaContainer].(string)
	if container == "" {
		return nil, ErrContainerRequired
	}
	var parentRef *string
	if p, ok := metadata[domain.MetaParentRef].(string); ok && p != "" {
		parentRef = &p
	}

	if _, err := s.personaStore.GetByID(ctx, personaID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: persona %s", ErrPersonaNotFound, personaID)
		}
		return nil, err
	}

	interaction := &domain.Interaction{
		PersonaID:   personaID,
		Content:     content,
		Type:        interactionType,
		ExternalRef: externalRef,
		Container:   container,
		ParentRef:   parentRef,
		Metadata:    metadata,
	}
	if err := s.interactionStore.Create(ctx, interaction); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("%w: %q for persona %s", ErrDuplicateExternalRef, externalRef, personaID)
		}
		return nil, err
	}

	s.indexInteraction(ctx, interaction)
	return interaction, nil
}

// indexInteraction embeds and indexes one interaction. Failures are logged
// and swallowed; the interaction row is already durable.
func (s *MemoryService) indexInteraction(ctx context.Context, i *domain.Interaction) {
	if s.embeddingClient == nil {
		return
	}

	emb, err := s.embeddingClient.Embed(ctx, i.Content)
	if err != nil {
		s.logger.Warn("embedding generation failed, interaction not indexed",
			zap.String("persona_id", i.PersonaID.String()),
			zap.String("interaction_id", i.ID.String()),
			zap.Error(err))
		return
	}

	if err := s.interactionStore.UpdateEmbedding(ctx, i.PersonaID, i.ID, emb); err != nil {
		s.logger.Warn("failed to store interaction embedding",
			zap.String("interaction_id", i.ID.String()),
			zap.Error(err))
	}

	if err := s.index.Add(i.PersonaID, i.ID, emb); err != nil {
		s.logger.Warn("failed to add interaction to vector index",
			zap.String("interaction_id", i.ID.String()),
			zap.Error(err))
		return
	}
	if err := s.index.Persist(i.PersonaID); err != nil {
		s.logger.Warn("failed to persist vector index",
			zap.String("persona_id", i.PersonaID.String()),
			zap.Error(err))
	}
}

// SearchHistory returns up to limit past interactions semantically similar to
// the query. An empty or missing index yields an empty result, never an
// error. Container, when set, is an exact-match filter applied after the
// nearest-neighbor lookup.
func (s *MemoryService) SearchHistory(ctx context.Context, personaID uuid.UUID, query string, limit int, container string) ([]domain.InteractionWithScore, error) {
	if query == "" {
		return nil, ErrQueryRequired
	}
	if limit < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, limit)
	}
	if s.embeddingClient == nil {
		return nil, ErrEmbeddingUnavailable
	}

	emb, err := s.embeddingClient.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed search query: %w", err)
	}

	// Over-fetch so the container filter still leaves enough candidates.
	matches, err := s.index.Search(personaID, emb, 2*limit)
	if err != nil {
		return nil, fmt.Errorf("search index for persona %s: %w", personaID, err)
	}
	if len(matches) == 0 {
		return []domain.InteractionWithScore{}, nil
	}

	ids := make([]uuid.UUID, len(matches))
	distances := make(map[uuid.UUID]float32, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		distances[m.ID] = m.Distance
	}

	interactions, err := s.interactionStore.GetByIDs(ctx, personaID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]domain.InteractionWithScore, 0, len(interactions))
	for _, i := range interactions {
		if container != "" && i.Container != container {
			continue
		}
		dist, ok := distances[i.ID]
		if !ok {
			continue
		}
		results = append(results, domain.InteractionWithScore{
			Interaction: i,
			Similarity:  1 / (1 + dist),
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// RebuildIndex regenerates the persona's vector index from the relational
// store and replaces it atomically, then persists the new artifacts. Stored
// embeddings are reused; rows without one are re-embedded. Returns the number
// of interactions indexed.
func (s *MemoryService) RebuildIndex(ctx context.Context, personaID uuid.UUID) (int, error) {
	if _, err := s.personaStore.GetByID(ctx, personaID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, fmt.Errorf("%w: persona %s", ErrPersonaNotFound, personaID)
		}
		return 0, err
	}

	interactions, err := s.interactionStore.ListByPersona(ctx, personaID)
	if err != nil {
		return 0, err
	}

	ids := make([]uuid.UUID, 0, len(interactions))
	vectors := make([][]float32, 0, len(interactions))
	for _, i := range interactions {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		emb := i.Embedding
		if len(emb) == 0 {
			if s.embeddingClient == nil {
				return 0, fmt.Errorf("re-embed interaction %s: %w", i.ID, ErrEmbeddingUnavailable)
			}
			emb, err = s.embeddingClient.Embed(ctx, i.Content)
			if err != nil {
				return 0, fmt.Errorf("re-embed interaction %s for persona %s: %w", i.ID, personaID, err)
			}
			if err := s.interactionStore.UpdateEmbedding(ctx, personaID, i.ID, emb); err != nil {
				s.logger.Warn("failed to store regenerated embedding",
					zap.String("interaction_id", i.ID.String()),
					zap.Error(err))
			}
		}
		ids = append(ids, i.ID)
		vectors = append(vectors, emb)
	}

	if err := s.index.Replace(personaID, ids, vectors); err != nil {
		return 0, fmt.Errorf("replace index for persona %s: %w", personaID, err)
	}
	if err := s.index.Persist(personaID); err != nil {
		return 0, fmt.Errorf("persist rebuilt index for persona %s: %w", personaID, err)
	}

	s.logger.Info("vector index rebuilt",
		zap.String("persona_id", personaID.String()),
		zap.Int("indexed", len(ids)))
	return len(ids), nil
}
