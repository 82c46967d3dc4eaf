package store

import (
	"context"
	"fmt"

	"github.com/credobot/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EvidenceStore is append-only: links are never updated or deleted through
// this interface, only removed by persona cascade.
type EvidenceStore struct {
	db *pgxpool.Pool
}

func NewEvidenceStore(db *pgxpool.Pool) *EvidenceStore {
	return &EvidenceStore{db: db}
}

func (s *EvidenceStore) Create(ctx context.Context, e *domain.EvidenceLink) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO evidence_links (belief_id, source_type, source_ref, strength)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		e.BeliefID, e.SourceType, e.SourceRef, e.Strength,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *EvidenceStore) ListByBelief(ctx context.Context, personaID, beliefID uuid.UUID, limit int) ([]domain.EvidenceLink, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT el.id, el.belief_id, el.source_type, el.source_ref, el.strength, el.created_at
		 FROM evidence_links el
		 JOIN belief_nodes bn ON bn.id = el.belief_id
		 WHERE el.belief_id = $1 AND bn.persona_id = $2
		 ORDER BY el.created_at DESC
		 LIMIT $3`,
		beliefID, personaID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	links := []domain.EvidenceLink{}
	for rows.Next() {
		var e domain.EvidenceLink
		if err := rows.Scan(&e.ID, &e.BeliefID, &e.SourceType, &e.SourceRef, &e.Strength, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		links = append(links, e)
	}
	return links, rows.Err()
}
