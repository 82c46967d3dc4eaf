package store

import (
	"context"
	"errors"

	"github.com/credobot/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PersonaStore struct {
	db *pgxpool.Pool
}

func NewPersonaStore(db *pgxpool.Pool) *PersonaStore {
	return &PersonaStore{db: db}
}

func (s *PersonaStore) Create(ctx context.Context, p *domain.Persona) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO personas (name) VALUES ($1)
		 RETURNING id, created_at, updated_at`,
		p.Name,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (s *PersonaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Persona, error) {
	p := &domain.Persona{}
	err := s.db.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM personas WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// Delete removes the persona; belief nodes, edges, stances, evidence, audit
// rows and interactions all cascade at the database level.
func (s *PersonaStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM personas WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
