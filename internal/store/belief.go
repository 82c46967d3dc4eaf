package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/credobot/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BeliefStore struct {
	db *pgxpool.Pool
}

func NewBeliefStore(db *pgxpool.Pool) *BeliefStore {
	return &BeliefStore{db: db}
}

func (s *BeliefStore) CreateNode(ctx context.Context, n *domain.BeliefNode) error {
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return s.db.QueryRow(ctx,
		`INSERT INTO belief_nodes (persona_id, title, summary, current_confidence, tags)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		n.PersonaID, n.Title, n.Summary, n.CurrentConfidence, n.Tags,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

func (s *BeliefStore) GetNode(ctx context.Context, personaID, id uuid.UUID) (*domain.BeliefNode, error) {
	n := &domain.BeliefNode{}
	err := s.db.QueryRow(ctx,
		`SELECT id, persona_id, title, summary, current_confidence, tags, created_at, updated_at
		 FROM belief_nodes WHERE id = $1 AND persona_id = $2`,
		id, personaID,
	).Scan(&n.ID, &n.PersonaID, &n.Title, &n.Summary, &n.CurrentConfidence, &n.Tags, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}

func (s *BeliefStore) DeleteNode(ctx context.Context, personaID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM belief_nodes WHERE id = $1 AND persona_id = $2`,
		id, personaID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchNode refreshes updated_at, used when immutable children (evidence) are
// appended so the belief reflects recent activity.
func (s *BeliefStore) TouchNode(ctx context.Context, personaID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE belief_nodes SET updated_at = NOW() WHERE id = $1 AND persona_id = $2`,
		id, personaID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// QueryGraph returns the persona's nodes matching the filters, plus every edge
// whose endpoints are both in the returned node set. Tag matching is
// case-insensitive, match-any.
func (s *BeliefStore) QueryGraph(ctx context.Context, personaID uuid.UUID, opts domain.GraphQueryOpts) (*domain.GraphResult, error) {
	conditions := []string{"persona_id = $1"}
	args := []any{personaID}

	if len(opts.Tags) > 0 {
		lowered := make([]string, len(opts.Tags))
		for i, t := range opts.Tags {
			lowered[i] = strings.ToLower(t)
		}
		args = append(args, lowered)
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(tags) tag WHERE LOWER(tag) = ANY($%d))", len(args)))
	}

	if opts.MinConfidence != nil {
		args = append(args, *opts.MinConfidence)
		conditions = append(conditions, fmt.Sprintf("current_confidence >= $%d", len(args)))
	}

	query := fmt.Sprintf(
		`SELECT id, persona_id, title, summary, current_confidence, tags, created_at, updated_at
		 FROM belief_nodes WHERE %s
		 ORDER BY current_confidence DESC NULLS LAST, created_at DESC`,
		strings.Join(conditions, " AND "),
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query graph nodes: %w", err)
	}
	defer rows.Close()

	result := &domain.GraphResult{Nodes: []domain.BeliefNode{}, Edges: []domain.BeliefEdge{}}
	var nodeIDs []uuid.UUID
	for rows.Next() {
		var n domain.BeliefNode
		if err := rows.Scan(&n.ID, &n.PersonaID, &n.Title, &n.Summary, &n.CurrentConfidence, &n.Tags, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan graph node: %w", err)
		}
		result.Nodes = append(result.Nodes, n)
		nodeIDs = append(nodeIDs, n.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("graph node rows: %w", err)
	}

	if len(nodeIDs) == 0 {
		return result, nil
	}

	edges, err := s.edgesAmong(ctx, personaID, nodeIDs)
	if err != nil {
		return nil, err
	}
	result.Edges = edges
	return result, nil
}

func (s *BeliefStore) edgesAmong(ctx context.Context, personaID uuid.UUID, nodeIDs []uuid.UUID) ([]domain.BeliefEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, source_id, target_id, relation, weight, created_at
		 FROM belief_edges
		 WHERE persona_id = $1 AND source_id = ANY($2) AND target_id = ANY($2)
		 ORDER BY created_at DESC`,
		personaID, nodeIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query graph edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// EdgesForNodes returns every edge touching any of the given nodes.
func (s *BeliefStore) EdgesForNodes(ctx context.Context, personaID uuid.UUID, nodeIDs []uuid.UUID) ([]domain.BeliefEdge, error) {
	if len(nodeIDs) == 0 {
		return []domain.BeliefEdge{}, nil
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, persona_id, source_id, target_id, relation, weight, created_at
		 FROM belief_edges
		 WHERE persona_id = $1 AND (source_id = ANY($2) OR target_id = ANY($2))
		 ORDER BY created_at DESC`,
		personaID, nodeIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query edges for nodes: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows pgx.Rows) ([]domain.BeliefEdge, error) {
	edges := []domain.BeliefEdge{}
	for rows.Next() {
		var e domain.BeliefEdge
		if err := rows.Scan(&e.ID, &e.PersonaID, &e.SourceID, &e.TargetID, &e.Relation, &e.Weight, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

func (s *BeliefStore) CreateEdge(ctx context.Context, e *domain.BeliefEdge) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO belief_edges (persona_id, source_id, target_id, relation, weight)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		e.PersonaID, e.SourceID, e.TargetID, e.Relation, e.Weight,
	).Scan(&e.ID, &e.CreatedAt)
}

func (s *BeliefStore) DeleteEdge(ctx context.Context, personaID, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM belief_edges WHERE id = $1 AND persona_id = $2`,
		id, personaID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
