package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/credobot/credo/internal/domain"
	"github.com/credobot/credo/internal/store"
	"github.com/google/uuid"
)

type mockPersonaStore struct {
	personas map[uuid.UUID]*domain.Persona
}

func newMockPersonaStore() *mockPersonaStore {
	return &mockPersonaStore{personas: make(map[uuid.UUID]*domain.Persona)}
}

func (m *mockPersonaStore) Create(ctx context.Context, p *domain.Persona) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.personas[p.ID] = p
	return nil
}

func (m *mockPersonaStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Persona, error) {
	p, ok := m.personas[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (m *mockPersonaStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.personas[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.personas, id)
	return nil
}

type mockBeliefStore struct {
	nodes map[uuid.UUID]*domain.BeliefNode
	edges map[uuid.UUID]*domain.BeliefEdge

	touched []uuid.UUID
}

func newMockBeliefStore() *mockBeliefStore {
	return &mockBeliefStore{
		nodes: make(map[uuid.UUID]*domain.BeliefNode),
		edges: make(map[uuid.UUID]*domain.BeliefEdge),
	}
}

func (m *mockBeliefStore) CreateNode(ctx context.Context, n *domain.BeliefNode) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt
	m.nodes[n.ID] = n
	return nil
}

func (m *mockBeliefStore) GetNode(ctx context.Context, personaID, id uuid.UUID) (*domain.BeliefNode, error) {
	n, ok := m.nodes[id]
	if !ok || n.PersonaID != personaID {
		return nil, store.ErrNotFound
	}
	return n, nil
}

func (m *mockBeliefStore) DeleteNode(ctx context.Context, personaID, id uuid.UUID) error {
	if _, err := m.GetNode(ctx, personaID, id); err != nil {
		return err
	}
	delete(m.nodes, id)
	return nil
}

func (m *mockBeliefStore) QueryGraph(ctx context.Context, personaID uuid.UUID, opts domain.GraphQueryOpts) (*domain.GraphResult, error) {
	var nodes []domain.BeliefNode
	for _, n := range m.nodes {
		if n.PersonaID != personaID {
			continue
		}
		if opts.MinConfidence != nil {
			if n.CurrentConfidence == nil || *n.CurrentConfidence < *opts.MinConfidence {
				continue
			}
		}
		if len(opts.Tags) > 0 && !tagsMatch(n.Tags, opts.Tags) {
			continue
		}
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		ci, cj := float32(-1), float32(-1)
		if nodes[i].CurrentConfidence != nil {
			ci = *nodes[i].CurrentConfidence
		}
		if nodes[j].CurrentConfidence != nil {
			cj = *nodes[j].CurrentConfidence
		}
		return ci > cj
	})

	ids := make([]uuid.UUID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	edges, _ := m.EdgesForNodes(ctx, personaID, ids)
	return &domain.GraphResult{Nodes: nodes, Edges: edges}, nil
}

func tagsMatch(nodeTags, queryTags []string) bool {
	for _, qt := range queryTags {
		for _, nt := range nodeTags {
			if strings.EqualFold(nt, qt) {
				return true
			}
		}
	}
	return false
}

func (m *mockBeliefStore) CreateEdge(ctx context.Context, e *domain.BeliefEdge) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	m.edges[e.ID] = e
	return nil
}

func (m *mockBeliefStore) DeleteEdge(ctx context.Context, personaID, id uuid.UUID) error {
	e, ok := m.edges[id]
	if !ok || e.PersonaID != personaID {
		return store.ErrNotFound
	}
	delete(m.edges, id)
	return nil
}

func (m *mockBeliefStore) EdgesForNodes(ctx context.Context, personaID uuid.UUID, nodeIDs []uuid.UUID) ([]domain.BeliefEdge, error) {
	in := make(map[uuid.UUID]struct{}, len(nodeIDs))
	for _, id := range nodeIDs {
		in[id] = struct{}{}
	}
	var edges []domain.BeliefEdge
	for _, e := range m.edges {
		if e.PersonaID != personaID {
			continue
		}
		if _, ok := in[e.SourceID]; !ok {
			continue
		}
		if _, ok := in[e.TargetID]; !ok {
			continue
		}
		edges = append(edges, *e)
	}
	return edges, nil
}

func (m *mockBeliefStore) TouchNode(ctx context.Context, personaID, id uuid.UUID) error {
	if _, err := m.GetNode(ctx, personaID, id); err != nil {
		return err
	}
	m.touched = append(m.touched, id)
	return nil
}

// mockStanceStore mirrors the real store's transition semantics: at most one
// current-or-locked stance per belief, a locked stance rejects ReplaceCurrent
// without writing, and every transition appends one update row.
type mockStanceStore struct {
	beliefs  *mockBeliefStore
	versions map[uuid.UUID][]*domain.StanceVersion
	updates  map[uuid.UUID][]domain.BeliefUpdate

	replaceCalls int
}

func newMockStanceStore(beliefs *mockBeliefStore) *mockStanceStore {
	return &mockStanceStore{
		beliefs:  beliefs,
		versions: make(map[uuid.UUID][]*domain.StanceVersion),
		updates:  make(map[uuid.UUID][]domain.BeliefUpdate),
	}
}

func (m *mockStanceStore) active(beliefID uuid.UUID) *domain.StanceVersion {
	for _, sv := range m.versions[beliefID] {
		if sv.Status == domain.StanceCurrent || sv.Status == domain.StanceLocked {
			return sv
		}
	}
	return nil
}

func (m *mockStanceStore) GetActive(ctx context.Context, personaID, beliefID uuid.UUID) (*domain.StanceVersion, error) {
	if _, err := m.beliefs.GetNode(ctx, personaID, beliefID); err != nil {
		return nil, err
	}
	sv := m.active(beliefID)
	if sv == nil {
		return nil, store.ErrNotFound
	}
	return sv, nil
}

func (m *mockStanceStore) ReplaceCurrent(ctx context.Context, in domain.ReplaceStanceInput) (*domain.StanceVersion, error) {
	node, err := m.beliefs.GetNode(ctx, in.PersonaID, in.BeliefID)
	if err != nil {
		return nil, err
	}

	prior := m.active(in.BeliefID)
	if prior != nil && prior.Status == domain.StanceLocked {
		return nil, store.ErrLocked
	}
	m.replaceCalls++

	update := domain.BeliefUpdate{
		ID:            uuid.New(),
		BeliefID:      in.BeliefID,
		NewText:       in.Text,
		NewConfidence: in.Confidence,
		NewStatus:     domain.StanceCurrent,
		Reason:        in.Reason,
		TriggerType:   in.Trigger,
		Actor:         in.Actor,
		CreatedAt:     time.Now(),
	}
	if prior != nil {
		prior.Status = domain.StanceDeprecated
		update.OldText = &prior.Text
		update.OldConfidence = prior.Confidence
		oldStatus := domain.StanceCurrent
		update.OldStatus = &oldStatus
	}

	sv := &domain.StanceVersion{
		ID:         uuid.New(),
		BeliefID:   in.BeliefID,
		Text:       in.Text,
		Confidence: in.Confidence,
		Status:     domain.StanceCurrent,
		Rationale:  in.Rationale,
		CreatedAt:  time.Now(),
	}
	m.versions[in.BeliefID] = append(m.versions[in.BeliefID], sv)
	m.updates[in.BeliefID] = append(m.updates[in.BeliefID], update)
	node.CurrentConfidence = in.Confidence
	return sv, nil
}

func (m *mockStanceStore) transition(ctx context.Context, personaID, beliefID uuid.UUID, from, to domain.StanceStatus, reason, actor string) (*domain.StanceVersion, error) {
	if _, err := m.beliefs.GetNode(ctx, personaID, beliefID); err != nil {
		return nil, err
	}
	sv := m.active(beliefID)
	if sv == nil || sv.Status != from {
		return nil, store.ErrNotFound
	}
	sv.Status = to
	m.updates[beliefID] = append(m.updates[beliefID], domain.BeliefUpdate{
		ID:          uuid.New(),
		BeliefID:    beliefID,
		NewText:     sv.Text,
		NewStatus:   to,
		OldStatus:   &from,
		Reason:      reason,
		TriggerType: domain.TriggerManual,
		Actor:       actor,
		CreatedAt:   time.Now(),
	})
	return sv, nil
}

func (m *mockStanceStore) Lock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*domain.StanceVersion, error) {
	return m.transition(ctx, personaID, beliefID, domain.StanceCurrent, domain.StanceLocked, reason, actor)
}

func (m *mockStanceStore) Unlock(ctx context.Context, personaID, beliefID uuid.UUID, reason, actor string) (*domain.StanceVersion, error) {
	return m.transition(ctx, personaID, beliefID, domain.StanceLocked, domain.StanceCurrent, reason, actor)
}

func (m *mockStanceStore) ListByBelief(ctx context.Context, personaID, beliefID uuid.UUID) ([]domain.StanceVersion, error) {
	var out []domain.StanceVersion
	for _, sv := range m.versions[beliefID] {
		out = append(out, *sv)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return statusRank(out[i].Status) < statusRank(out[j].Status)
	})
	return out, nil
}

func statusRank(s domain.StanceStatus) int {
	switch s {
	case domain.StanceCurrent:
		return 0
	case domain.StanceLocked:
		return 1
	default:
		return 2
	}
}

func (m *mockStanceStore) ListUpdates(ctx context.Context, personaID, beliefID uuid.UUID) ([]domain.BeliefUpdate, error) {
	out := make([]domain.BeliefUpdate, len(m.updates[beliefID]))
	copy(out, m.updates[beliefID])
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

type mockEvidenceStore struct {
	byBelief map[uuid.UUID][]domain.EvidenceLink
}

func newMockEvidenceStore() *mockEvidenceStore {
	return &mockEvidenceStore{byBelief: make(map[uuid.UUID][]domain.EvidenceLink)}
}

func (m *mockEvidenceStore) Create(ctx context.Context, e *domain.EvidenceLink) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = time.Now()
	m.byBelief[e.BeliefID] = append(m.byBelief[e.BeliefID], *e)
	return nil
}

func (m *mockEvidenceStore) ListByBelief(ctx context.Context, personaID, beliefID uuid.UUID, limit int) ([]domain.EvidenceLink, error) {
	links := m.byBelief[beliefID]
	if limit > 0 && len(links) > limit {
		links = links[:limit]
	}
	out := make([]domain.EvidenceLink, len(links))
	copy(out, links)
	return out, nil
}

type mockInteractionStore struct {
	interactions map[uuid.UUID]*domain.Interaction
	refs         map[string]struct{}
}

func newMockInteractionStore() *mockInteractionStore {
	return &mockInteractionStore{
		interactions: make(map[uuid.UUID]*domain.Interaction),
		refs:         make(map[string]struct{}),
	}
}

func (m *mockInteractionStore) Create(ctx context.Context, i *domain.Interaction) error {
	if _, dup := m.refs[i.ExternalRef]; dup {
		return store.ErrConflict
	}
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	i.CreatedAt = time.Now()
	m.refs[i.ExternalRef] = struct{}{}
	m.interactions[i.ID] = i
	return nil
}

func (m *mockInteractionStore) GetByIDs(ctx context.Context, personaID uuid.UUID, ids []uuid.UUID) ([]domain.Interaction, error) {
	var out []domain.Interaction
	for _, id := range ids {
		if i, ok := m.interactions[id]; ok && i.PersonaID == personaID {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *mockInteractionStore) ListByPersona(ctx context.Context, personaID uuid.UUID) ([]domain.Interaction, error) {
	var out []domain.Interaction
	for _, i := range m.interactions {
		if i.PersonaID == personaID {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (m *mockInteractionStore) UpdateEmbedding(ctx context.Context, personaID, id uuid.UUID, embedding []float32) error {
	i, ok := m.interactions[id]
	if !ok || i.PersonaID != personaID {
		return store.ErrNotFound
	}
	i.Embedding = embedding
	return nil
}

// mockIndex is a brute-force in-memory stand-in for the vector index.
type mockIndex struct {
	vectors map[uuid.UUID]map[uuid.UUID][]float32
	order   map[uuid.UUID][]uuid.UUID

	persistCalls int
}

func newMockIndex() *mockIndex {
	return &mockIndex{
		vectors: make(map[uuid.UUID]map[uuid.UUID][]float32),
		order:   make(map[uuid.UUID][]uuid.UUID),
	}
}

func (m *mockIndex) Add(personaID, id uuid.UUID, vector []float32) error {
	if m.vectors[personaID] == nil {
		m.vectors[personaID] = make(map[uuid.UUID][]float32)
	}
	if _, ok := m.vectors[personaID][id]; ok {
		return nil
	}
	m.vectors[personaID][id] = vector
	m.order[personaID] = append(m.order[personaID], id)
	return nil
}

func (m *mockIndex) Search(personaID uuid.UUID, vector []float32, k int) ([]domain.IndexMatch, error) {
	var matches []domain.IndexMatch
	for _, id := range m.order[personaID] {
		v := m.vectors[personaID][id]
		var dist float32
		for i := range v {
			d := v[i] - vector[i]
			dist += d * d
		}
		matches = append(matches, domain.IndexMatch{ID: id, Distance: dist})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *mockIndex) Replace(personaID uuid.UUID, ids []uuid.UUID, vectors [][]float32) error {
	m.vectors[personaID] = make(map[uuid.UUID][]float32)
	m.order[personaID] = nil
	for i, id := range ids {
		m.vectors[personaID][id] = vectors[i]
		m.order[personaID] = append(m.order[personaID], id)
	}
	return nil
}

func (m *mockIndex) Size(personaID uuid.UUID) int {
	return len(m.order[personaID])
}

func (m *mockIndex) Persist(personaID uuid.UUID) error {
	m.persistCalls++
	return nil
}

func (m *mockIndex) Load(personaID uuid.UUID) error { return nil }

func (m *mockIndex) Clear(personaID uuid.UUID) error {
	delete(m.vectors, personaID)
	delete(m.order, personaID)
	return nil
}

// mockEmbedder returns canned vectors per text, or a fallback built from the
// text length so distinct texts stay distinct.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{float32(len(text)), 0, 0}, nil
}
