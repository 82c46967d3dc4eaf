package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/credobot/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

type InteractionStore struct {
	db *pgxpool.Pool
}

func NewInteractionStore(db *pgxpool.Pool) *InteractionStore {
	return &InteractionStore{db: db}
}

func (s *InteractionStore) Create(ctx context.Context, i *domain.Interaction) error {
	var embedding *pgvector.Vector
	if len(i.Embedding) > 0 {
		v := pgvector.NewVector(i.Embedding)
		embedding = &v
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO interactions (persona_id, content, type, external_ref, container, parent_ref, metadata, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		i.PersonaID, i.Content, i.Type, i.ExternalRef, i.Container, i.ParentRef, i.Metadata, embedding,
	).Scan(&i.ID, &i.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *InteractionStore) GetByIDs(ctx context.Context, personaID uuid.UUID, ids []uuid.UUID) ([]domain.Interaction, error) {
	if len(ids) == 0 {
		return []domain.Interaction{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, content, type, external_ref, container, parent_ref, metadata, created_at
		 FROM interactions WHERE persona_id = $1 AND id = ANY($2)`,
		personaID, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("get interactions by ids: %w", err)
	}
	defer rows.Close()

	interactions := []domain.Interaction{}
	for rows.Next() {
		var i domain.Interaction
		if err := rows.Scan(&i.ID, &i.PersonaID, &i.Content, &i.Type, &i.ExternalRef, &i.Container, &i.ParentRef, &i.Metadata, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		interactions = append(interactions, i)
	}
	return interactions, rows.Err()
}

// ListByPersona returns every interaction including any stored embedding, in
// insertion order. Used by index rebuilds.
func (s *InteractionStore) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.Interaction, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, content, type, external_ref, container, parent_ref, metadata, embedding, created_at
		 FROM interactions WHERE persona_id = $1
		 ORDER BY created_at ASC`,
		personaID,
	)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	interactions := []domain.Interaction{}
	for rows.Next() {
		var i domain.Interaction
		var vec *pgvector.Vector
		if err := rows.Scan(&i.ID, &i.PersonaID, &i.Content, &i.Type, &i.ExternalRef, &i.Container, &i.ParentRef, &i.Metadata, &vec, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		if vec != nil {
			i.Embedding = vec.Slice()
		}
		interactions = append(interactions, i)
	}
	return interactions, rows.Err()
}

// UpdateEmbedding stores the interaction's embedding so index rebuilds can
// reuse it instead of re-embedding every row.
func (s *InteractionStore) UpdateEmbedding(ctx context.Context, personaID, id uuid.UUID, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	tag, err := s.db.Exec(ctx,
		`UPDATE interactions SET embedding = $1 WHERE id = $2 AND persona_id = $3`,
		vec, id, personaID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
