package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS personas (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS belief_nodes (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		persona_id UUID NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		current_confidence REAL CHECK (current_confidence >= 0 AND current_confidence <= 1),
		tags TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_belief_nodes_persona ON belief_nodes(persona_id)`,

	`CREATE TABLE IF NOT EXISTS belief_edges (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		persona_id UUID NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
		source_id UUID NOT NULL REFERENCES belief_nodes(id) ON DELETE CASCADE,
		target_id UUID NOT NULL REFERENCES belief_nodes(id) ON DELETE CASCADE,
		relation TEXT NOT NULL CHECK (relation IN ('supports','contradicts','depends_on','evidence_for')),
		weight REAL NOT NULL DEFAULT 0.5 CHECK (weight >= 0 AND weight <= 1),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_belief_edges_persona ON belief_edges(persona_id)`,
	`CREATE INDEX IF NOT EXISTS idx_belief_edges_source ON belief_edges(source_id)`,

	`CREATE TABLE IF NOT EXISTS stance_versions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		belief_id UUID NOT NULL REFERENCES belief_nodes(id) ON DELETE CASCADE,
		text TEXT NOT NULL,
		confidence REAL CHECK (confidence >= 0 AND confidence <= 1),
		status TEXT NOT NULL CHECK (status IN ('current','deprecated','locked')),
		rationale TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stance_versions_belief ON stance_versions(belief_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_stance_versions_active
		ON stance_versions(belief_id) WHERE status IN ('current','locked')`,

	`CREATE TABLE IF NOT EXISTS evidence_links (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		belief_id UUID NOT NULL REFERENCES belief_nodes(id) ON DELETE CASCADE,
		source_type TEXT NOT NULL CHECK (source_type IN ('reddit_comment','external_link','note')),
		source_ref TEXT NOT NULL,
		strength TEXT NOT NULL CHECK (strength IN ('weak','moderate','strong')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_links_belief ON evidence_links(belief_id)`,

	`CREATE TABLE IF NOT EXISTS belief_updates (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		belief_id UUID NOT NULL REFERENCES belief_nodes(id) ON DELETE CASCADE,
		old_text TEXT,
		new_text TEXT NOT NULL,
		old_confidence REAL,
		new_confidence REAL,
		old_status TEXT,
		new_status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		trigger_type TEXT NOT NULL CHECK (trigger_type IN ('manual','evidence','conflict','agent')),
		actor TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_belief_updates_belief ON belief_updates(belief_id)`,

	`CREATE TABLE IF NOT EXISTS interactions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		persona_id UUID NOT NULL REFERENCES personas(id) ON DELETE CASCADE,
		content TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('post','comment','reply')),
		external_ref TEXT NOT NULL UNIQUE,
		container TEXT NOT NULL,
		parent_ref TEXT,
		metadata JSONB,
		embedding vector(1536),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_persona ON interactions(persona_id)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_container ON interactions(persona_id, container)`,
}

// Migrate applies the schema. Statements are idempotent so the runner can be
// called on every startup.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i, err)
		}
	}
	return nil
}
