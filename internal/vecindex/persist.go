package vecindex

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// On-disk layout: two sidecar files per persona, named by persona id.
// <dir>/<persona>.index holds the vector matrix, <dir>/<persona>.ids holds
// the position-to-interaction-id map. Both are written via a temp file and
// rename so a crash mid-persist leaves the previous pair intact.

type indexFile struct {
	Dim     int
	Vectors [][]float32
}

func (m *Manager) indexPath(personaID uuid.UUID) string {
	return filepath.Join(m.dir, personaID.String()+".index")
}

func (m *Manager) idsPath(personaID uuid.UUID) string {
	return filepath.Join(m.dir, personaID.String()+".ids")
}

// Persist writes the persona's index pair to disk.
func (m *Manager) Persist(personaID uuid.UUID) error {
	idx := m.index(personaID)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	if err := writeGob(m.indexPath(personaID), indexFile{Dim: idx.dim, Vectors: idx.vectors}); err != nil {
		return fmt.Errorf("persist index for persona %s: %w", personaID, err)
	}
	if err := writeGob(m.idsPath(personaID), idx.ids); err != nil {
		return fmt.Errorf("persist id map for persona %s: %w", personaID, err)
	}
	return nil
}

// Load restores the persona's index from its sidecar files. Missing or
// corrupt artifacts, or a pair whose cardinalities disagree, fall back to an
// empty index; Load never fails for a recoverable on-disk state.
func (m *Manager) Load(personaID uuid.UUID) error {
	idx := m.index(personaID)
	idx.mu.Lock()
	defer idx.mu.Unlock()
	m.loadInto(idx, personaID)
	return nil
}

// loadInto fills idx from the persona's sidecar pair. A missing pair is a
// fresh persona and stays silent; anything else unreadable or inconsistent
// is discarded with a warning. The caller must hold whatever guards idx.
func (m *Manager) loadInto(idx *personaIndex, personaID uuid.UUID) {
	var file indexFile
	var ids []uuid.UUID
	if err := readGob(m.indexPath(personaID), &file); err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("index artifact unreadable, starting empty",
				zap.String("persona_id", personaID.String()), zap.Error(err))
		}
		idx.reset(m.dim)
		return
	}
	if err := readGob(m.idsPath(personaID), &ids); err != nil {
		m.logger.Warn("id map artifact unreadable, starting empty",
			zap.String("persona_id", personaID.String()), zap.Error(err))
		idx.reset(m.dim)
		return
	}

	if len(file.Vectors) != len(ids) || file.Dim != m.dim {
		m.logger.Warn("index artifacts inconsistent, starting empty",
			zap.String("persona_id", personaID.String()),
			zap.Int("vectors", len(file.Vectors)),
			zap.Int("ids", len(ids)),
			zap.Int("dim", file.Dim))
		idx.reset(m.dim)
		return
	}

	idx.dim = file.Dim
	idx.vectors = file.Vectors
	idx.ids = ids
	idx.present = make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		idx.present[id] = struct{}{}
	}
}

// Clear drops the in-memory index and removes its artifacts.
func (m *Manager) Clear(personaID uuid.UUID) error {
	idx := m.index(personaID)
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.reset(m.dim)
	for _, path := range []string{m.indexPath(personaID), m.idsPath(personaID)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}
	return nil
}

func (p *personaIndex) reset(dim int) {
	p.dim = dim
	p.vectors = nil
	p.ids = nil
	p.present = make(map[uuid.UUID]struct{})
}

func writeGob(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return gob.NewDecoder(f).Decode(v)
}
