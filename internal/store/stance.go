package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/credobot/credo/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StanceStore owns the stance lifecycle. Every mutation runs in one
// transaction: callers never observe a new stance without its audit row, or a
// deprecated-but-not-replaced current stance.
type StanceStore struct {
	db *pgxpool.Pool
}

func NewStanceStore(db *pgxpool.Pool) *StanceStore {
	return &StanceStore{db: db}
}

func (s *StanceStore) GetActive(ctx context.Context, personaID, beliefID uuid.UUID) (*domain.StanceVersion, error) {
	sv := &domain.StanceVersion{}
	err := s.db.QueryRow(ctx,
		`SELECT sv.id, sv.belief_id, sv.text, sv.confidence, sv.status, sv.rationale, sv.created_at
		 FROM stance_versions sv
		 JOIN belief_nodes bn ON bn.id = sv.belief_id
		 WHERE sv.belief_id = $1 AND bn.persona_id = $2 AND sv.status IN ('current','locked')`,
		beliefID, personaID,
	).Scan(&sv.ID, &sv.BeliefID, &sv.Text, &sv.Confidence, &sv.Status, &sv.Rationale, &sv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sv, nil
}

// ReplaceCurrent performs the atomic stance transition. The belief row is
// locked first so concurrent updates to the same belief serialize; a locked
// active stance aborts before any write with ErrLocked.
func (s *StanceStore) ReplaceCurrent(ctx context.Context, in domain.ReplaceStanceInput) (*domain.StanceVersion, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin stance transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockBelief(ctx, tx, in.PersonaID, in.BeliefID); err != nil {
		return nil, err
	}

	prior, err := activeForUpdate(ctx, tx, in.BeliefID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if prior != nil {
		if prior.Status == domain.StanceLocked {
			return nil, ErrLocked
		}
		if _, err := tx.Exec(ctx,
			`UPDATE stance_versions SET status = 'deprecated' WHERE id = $1`,
			prior.ID,
		); err != nil {
			return nil, fmt.Errorf("deprecate stance %s: %w", prior.ID, err)
		}
	}

	next := &domain.StanceVersion{
		BeliefID:   in.BeliefID,
		Text:       in.Text,
		Confidence: in.Confidence,
		Status:     domain.StanceCurrent,
		Rationale:  in.Rationale,
	}
	if err := tx.QueryRow(ctx,
		`INSERT INTO stance_versions (belief_id, text, confidence, status, rationale)
		 VALUES ($1, $2, $3, 'current', $4)
		 RETURNING id, created_at`,
		in.BeliefID, in.Text, in.Confidence, in.Rationale,
	).Scan(&next.ID, &next.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert stance: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE belief_nodes SET current_confidence = $1, updated_at = NOW() WHERE id = $2`,
		in.Confidence, in.BeliefID,
	); err != nil {
		return nil, fmt.Errorf("update belief confidence: %w", err)
	}

	reason := in.Reason
	if reason == "" {
		reason = in.Rationale
	}
	if err := insertAudit(ctx, tx, auditRow{
		beliefID: in.BeliefID,
		old:      prior,
		newText:  in.Text,
		newConf:  in.Confidence,
		newStat:  domain.StanceCurrent,
		reason:   reason,
		trigger:  in.Trigger,
		actor:    in.Actor,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit stance transaction: %w", err)
	}
	return next, nil
}

// Lock transitions the current stance to locked. Fails with ErrNotFound when
// the belief has no current stance; an already-locked stance is also not
// "current", so locking twice fails the same way.
func (s *StanceStore) Lock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*domain.StanceVersion, error) {
	return s.transition(ctx, personaID, beliefID, domain.StanceCurrent, domain.StanceLocked, reason, actor)
}

// Unlock transitions the locked stance back to current.
func (s *StanceStore) Unlock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*domain.StanceVersion, error) {
	return s.transition(ctx, personaID, beliefID, domain.StanceLocked, domain.StanceCurrent, reason, actor)
}

func (s *StanceStore) transition(ctx context.Context, personaID, beliefID uuid.UUID, from, to domain.StanceStatus, reason, actor string) (*domain.StanceVersion, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin stance transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockBelief(ctx, tx, personaID, beliefID); err != nil {
		return nil, err
	}

	prior, err := activeForUpdate(ctx, tx, beliefID)
	if err != nil {
		return nil, err
	}
	if prior.Status != from {
		return nil, ErrNotFound
	}

	sv := *prior
	sv.Status = to
	if _, err := tx.Exec(ctx,
		`UPDATE stance_versions SET status = $1 WHERE id = $2`,
		to, prior.ID,
	); err != nil {
		return nil, fmt.Errorf("transition stance %s to %s: %w", prior.ID, to, err)
	}

	if err := insertAudit(ctx, tx, auditRow{
		beliefID: beliefID,
		old:      prior,
		newText:  prior.Text,
		newConf:  prior.Confidence,
		newStat:  to,
		reason:   reason,
		trigger:  domain.TriggerManual,
		actor:    actor,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit stance transaction: %w", err)
	}
	return &sv, nil
}

// ListByBelief returns all versions, current first, locked next, deprecated
// last, then newest first.
func (s *StanceStore) ListByBelief(ctx context.Context, personaID, beliefID uuid.UUID) ([]domain.StanceVersion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT sv.id, sv.belief_id, sv.text, sv.confidence, sv.status, sv.rationale, sv.created_at
		 FROM stance_versions sv
		 JOIN belief_nodes bn ON bn.id = sv.belief_id
		 WHERE sv.belief_id = $1 AND bn.persona_id = $2
		 ORDER BY CASE sv.status WHEN 'current' THEN 0 WHEN 'locked' THEN 1 ELSE 2 END,
		          sv.created_at DESC`,
		beliefID, personaID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stances: %w", err)
	}
	defer rows.Close()

	versions := []domain.StanceVersion{}
	for rows.Next() {
		var sv domain.StanceVersion
		if err := rows.Scan(&sv.ID, &sv.BeliefID, &sv.Text, &sv.Confidence, &sv.Status, &sv.Rationale, &sv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stance: %w", err)
		}
		versions = append(versions, sv)
	}
	return versions, rows.Err()
}

func (s *StanceStore) ListUpdates(ctx context.Context, personaID, beliefID uuid.UUID) ([]domain.BeliefUpdate, error) {
	rows, err := s.db.Query(ctx,
		`SELECT bu.id, bu.belief_id, bu.old_text, bu.new_text, bu.old_confidence, bu.new_confidence,
		        bu.old_status, bu.new_status, bu.reason, bu.trigger_type, bu.actor, bu.created_at
		 FROM belief_updates bu
		 JOIN belief_nodes bn ON bn.id = bu.belief_id
		 WHERE bu.belief_id = $1 AND bn.persona_id = $2
		 ORDER BY bu.created_at DESC`,
		beliefID, personaID,
	)
	if err != nil {
		return nil, fmt.Errorf("list belief updates: %w", err)
	}
	defer rows.Close()

	updates := []domain.BeliefUpdate{}
	for rows.Next() {
		var u domain.BeliefUpdate
		if err := rows.Scan(&u.ID, &u.BeliefID, &u.OldText, &u.NewText, &u.OldConfidence, &u.NewConfidence,
			&u.OldStatus, &u.NewStatus, &u.Reason, &u.TriggerType, &u.Actor, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan belief update: %w", err)
		}
		updates = append(updates, u)
	}
	return updates, rows.Err()
}

// lockBelief verifies persona ownership and takes a row lock so stance
// transitions on the same belief serialize.
func lockBelief(ctx context.Context, tx pgx.Tx, personaID, beliefID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRow(ctx,
		`SELECT id FROM belief_nodes WHERE id = $1 AND persona_id = $2 FOR UPDATE`,
		beliefID, personaID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock belief %s: %w", beliefID, err)
	}
	return nil
}

func activeForUpdate(ctx context.Context, tx pgx.Tx, beliefID uuid.UUID) (*domain.StanceVersion, error) {
	sv := &domain.StanceVersion{}
	err := tx.QueryRow(ctx,
		`SELECT id, belief_id, text, confidence, status, rationale, created_at
		 FROM stance_versions
		 WHERE belief_id = $1 AND status IN ('current','locked')
		 FOR UPDATE`,
		beliefID,
	).Scan(&sv.ID, &sv.BeliefID, &sv.Text, &sv.Confidence, &sv.Status, &sv.Rationale, &sv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select active stance: %w", err)
	}
	return sv, nil
}

type auditRow struct {
	beliefID uuid.UUID
	old      *domain.StanceVersion
	newText  string
	newConf  *float32
	newStat  domain.StanceStatus
	reason   string
	trigger  domain.TriggerType
	actor    string
}

func insertAudit(ctx context.Context, tx pgx.Tx, a auditRow) error {
	var oldText *string
	var oldConf *float32
	var oldStatus *domain.StanceStatus
	if a.old != nil {
		oldText = &a.old.Text
		oldConf = a.old.Confidence
		oldStatus = &a.old.Status
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO belief_updates
		 (belief_id, old_text, new_text, old_confidence, new_confidence, old_status, new_status, reason, trigger_type, actor)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.beliefID, oldText, a.newText, oldConf, a.newConf, oldStatus, a.newStat, a.reason, a.trigger, a.actor,
	); err != nil {
		return fmt.Errorf("insert audit row: %w", err)
	}
	return nil
}
