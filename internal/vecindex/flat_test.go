package vecindex

import (
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testManager(t *testing.T, dim int) *Manager {
	t.Helper()
	return NewManager(t.TempDir(), dim, zap.NewNop())
}

func TestManager_AddAndSearch(t *testing.T) {
	m := testManager(t, 3)
	personaID := uuid.New()

	near := uuid.New()
	mid := uuid.New()
	far := uuid.New()
	_ = m.Add(personaID, near, []float32{1, 0, 0})
	_ = m.Add(personaID, mid, []float32{2, 0, 0})
	_ = m.Add(personaID, far, []float32{10, 0, 0})

	matches, err := m.Search(personaID, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}
	if matches[0].ID != near || matches[0].Distance != 0 {
		t.Errorf("matches[0] = (%s, %f), want (%s, 0)", matches[0].ID, matches[0].Distance, near)
	}
	if matches[1].ID != mid || matches[1].Distance != 1 {
		t.Errorf("matches[1] = (%s, %f), want (%s, 1)", matches[1].ID, matches[1].Distance, mid)
	}
}

func TestManager_Add_DuplicateIsNoOp(t *testing.T) {
	m := testManager(t, 2)
	personaID := uuid.New()
	id := uuid.New()

	if err := m.Add(personaID, id, []float32{1, 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Add(personaID, id, []float32{9, 9}); err != nil {
		t.Fatalf("duplicate add should be a no-op, got %v", err)
	}
	if m.Size(personaID) != 1 {
		t.Errorf("size = %d, want 1", m.Size(personaID))
	}

	matches, _ := m.Search(personaID, []float32{1, 1}, 1)
	if matches[0].Distance != 0 {
		t.Error("duplicate add should not overwrite the original vector")
	}
}

func TestManager_Add_DimensionMismatch(t *testing.T) {
	m := testManager(t, 3)
	if err := m.Add(uuid.New(), uuid.New(), []float32{1, 2}); err == nil {
		t.Error("expected an error for a wrong-dimension vector")
	}
}

func TestManager_Search_CapsK(t *testing.T) {
	m := testManager(t, 2)
	personaID := uuid.New()
	_ = m.Add(personaID, uuid.New(), []float32{1, 0})

	matches, err := m.Search(personaID, []float32{0, 0}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("matches = %d, want k capped at index size", len(matches))
	}
}

func TestManager_Search_EmptyIndex(t *testing.T) {
	m := testManager(t, 2)

	matches, err := m.Search(uuid.New(), []float32{0, 0}, 5)
	if err != nil {
		t.Fatalf("empty index should not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("matches = %d, want 0", len(matches))
	}
}

func TestManager_PersonaIsolation(t *testing.T) {
	m := testManager(t, 2)
	a, b := uuid.New(), uuid.New()

	_ = m.Add(a, uuid.New(), []float32{1, 0})

	if m.Size(b) != 0 {
		t.Errorf("persona b size = %d, want 0", m.Size(b))
	}
	matches, _ := m.Search(b, []float32{1, 0}, 5)
	if len(matches) != 0 {
		t.Error("persona b should not see persona a's vectors")
	}
}

func TestManager_Replace(t *testing.T) {
	m := testManager(t, 2)
	personaID := uuid.New()
	_ = m.Add(personaID, uuid.New(), []float32{1, 0})
	_ = m.Add(personaID, uuid.New(), []float32{2, 0})

	newID := uuid.New()
	if err := m.Replace(personaID, []uuid.UUID{newID}, [][]float32{{5, 5}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Size(personaID) != 1 {
		t.Errorf("size = %d, want 1 after replace", m.Size(personaID))
	}
	matches, _ := m.Search(personaID, []float32{5, 5}, 1)
	if matches[0].ID != newID {
		t.Error("search should only see replaced contents")
	}
}

func TestManager_Replace_CardinalityMismatch(t *testing.T) {
	m := testManager(t, 2)
	err := m.Replace(uuid.New(), []uuid.UUID{uuid.New(), uuid.New()}, [][]float32{{1, 0}})
	if err == nil {
		t.Error("expected an error when ids and vectors disagree")
	}
}
