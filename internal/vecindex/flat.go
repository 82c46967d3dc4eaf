// Package vecindex provides the per-persona nearest-neighbor index over
// interaction embeddings. Each persona gets one flat-search index plus a
// position-to-interaction-id map, persisted as a pair of sidecar files and
// regenerable in full from the relational store.
package vecindex

import (
	"fmt"
	"sort"
	"sync"

	"github.com/credobot/credo/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// personaIndex is one persona's index: a flat matrix of vectors and the id
// map. Positions in vectors and ids always match one to one.
type personaIndex struct {
	mu      sync.Mutex
	dim     int
	vectors [][]float32
	ids     []uuid.UUID
	present map[uuid.UUID]struct{}
}

func newPersonaIndex(dim int) *personaIndex {
	return &personaIndex{
		dim:     dim,
		present: make(map[uuid.UUID]struct{}),
	}
}

// Manager maintains one index per persona, lazily created. Operations on the
// same persona serialize on that persona's mutex; different personas proceed
// in parallel.
type Manager struct {
	dim    int
	dir    string
	logger *zap.Logger

	mu      sync.RWMutex
	indexes map[uuid.UUID]*personaIndex
}

var _ domain.VectorIndex = (*Manager)(nil)

func NewManager(dir string, dim int, logger *zap.Logger) *Manager {
	return &Manager{
		dim:     dim,
		dir:     dir,
		logger:  logger,
		indexes: make(map[uuid.UUID]*personaIndex),
	}
}

// index returns the persona's index. First touch restores the persisted
// sidecar artifacts when they exist, so an index survives process restarts
// without an explicit load step.
func (m *Manager) index(personaID uuid.UUID) *personaIndex {
	m.mu.RLock()
	idx, ok := m.indexes[personaID]
	m.mu.RUnlock()
	if ok {
		return idx
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if idx, ok = m.indexes[personaID]; ok {
		return idx
	}
	idx = newPersonaIndex(m.dim)
	m.loadInto(idx, personaID)
	m.indexes[personaID] = idx
	return idx
}

// Add inserts a vector. Adding an id that is already present is a no-op; the
// flat index has no update path, so repeats are ignored rather than duplicated.
func (m *Manager) Add(personaID, id uuid.UUID, vector []float32) error {
	if len(vector) != m.dim {
		return fmt.Errorf("persona %s: vector dimension %d, index expects %d", personaID, len(vector), m.dim)
	}

	idx := m.index(personaID)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.present[id]; ok {
		return nil
	}
	v := make([]float32, len(vector))
	copy(v, vector)
	idx.vectors = append(idx.vectors, v)
	idx.ids = append(idx.ids, id)
	idx.present[id] = struct{}{}
	return nil
}

// Search returns up to k matches ordered by ascending squared L2 distance.
// k is capped at the index size; an empty index yields an empty result.
func (m *Manager) Search(personaID uuid.UUID, vector []float32, k int) ([]domain.IndexMatch, error) {
	if len(vector) != m.dim {
		return nil, fmt.Errorf("persona %s: query dimension %d, index expects %d", personaID, len(vector), m.dim)
	}

	idx := m.index(personaID)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if k > len(idx.vectors) {
		k = len(idx.vectors)
	}
	if k <= 0 {
		return []domain.IndexMatch{}, nil
	}

	matches := make([]domain.IndexMatch, 0, len(idx.vectors))
	for i, v := range idx.vectors {
		matches = append(matches, domain.IndexMatch{ID: idx.ids[i], Distance: l2Squared(vector, v)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	return matches[:k], nil
}

// Replace swaps the persona's index contents atomically. Used by rebuilds.
func (m *Manager) Replace(personaID uuid.UUID, ids []uuid.UUID, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("persona %s: %d ids but %d vectors", personaID, len(ids), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != m.dim {
			return fmt.Errorf("persona %s: vector dimension %d, index expects %d", personaID, len(v), m.dim)
		}
	}

	idx := m.index(personaID)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = make([][]float32, len(vectors))
	idx.ids = make([]uuid.UUID, len(ids))
	idx.present = make(map[uuid.UUID]struct{}, len(ids))
	for i := range ids {
		v := make([]float32, len(vectors[i]))
		copy(v, vectors[i])
		idx.vectors[i] = v
		idx.ids[i] = ids[i]
		idx.present[ids[i]] = struct{}{}
	}
	return nil
}

func (m *Manager) Size(personaID uuid.UUID) int {
	idx := m.index(personaID)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.vectors)
}

func l2Squared(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
