package vectorstore

import (
	"context"
	"math"
	"path/filepath"
	"testing"
)

func TestUpsertAndSearch(t *testing.T) {
	store, err := NewMemoryStore(3)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	err = store.Upsert(ctx, "org1", []string{"a", "b"}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := store.Search(ctx, "org1", []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].ChunkID != "a" || math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("top result = %+v, want a with score 1", results[0])
	}
}

func TestSearchIsolatedPerOrg(t *testing.T) {
	store, _ := NewMemoryStore(2)
	ctx := context.Background()

	store.Upsert(ctx, "org1", []string{"a"}, [][]float32{{1, 0}})
	store.Upsert(ctx, "org2", []string{"b"}, [][]float32{{1, 0}})

	results, err := store.Search(ctx, "org1", []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChunkID != "a" {
		t.Errorf("results = %+v, want only org1 chunks", results)
	}

	if results, _ := store.Search(ctx, "missing", []float32{1, 0}, 10); results != nil {
		t.Errorf("unknown org returned %+v", results)
	}
}

func TestUpsertReplacesExistingIDs(t *testing.T) {
	store, _ := NewMemoryStore(2)
	ctx := context.Background()

	store.Upsert(ctx, "org1", []string{"a"}, [][]float32{{1, 0}})
	store.Upsert(ctx, "org1", []string{"a"}, [][]float32{{0, 1}})

	if got := store.Size("org1"); got != 1 {
		t.Fatalf("size = %d, want 1 after replacement", got)
	}
	results, _ := store.Search(ctx, "org1", []float32{0, 1}, 1)
	if math.Abs(results[0].Score-1.0) > 1e-6 {
		t.Errorf("score = %v, want replaced vector", results[0].Score)
	}
}

func TestRemoveAndDropOrg(t *testing.T) {
	store, _ := NewMemoryStore(2)
	ctx := context.Background()

	store.Upsert(ctx, "org1", []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	store.Remove(ctx, "org1", []string{"a"})
	if got := store.Size("org1"); got != 1 {
		t.Errorf("size = %d, want 1 after remove", got)
	}

	store.DropOrg("org1")
	if got := store.Size("org1"); got != 0 {
		t.Errorf("size = %d, want 0 after drop", got)
	}
}

func TestDimensionMismatch(t *testing.T) {
	store, _ := NewMemoryStore(3)
	ctx := context.Background()

	if err := store.Upsert(ctx, "org1", []string{"a"}, [][]float32{{1, 0}}); err == nil {
		t.Error("expected dimension error on upsert")
	}
	if _, err := store.Search(ctx, "org1", []float32{1, 0}, 1); err == nil {
		t.Error("expected dimension error on search")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	ctx := context.Background()

	store, _ := NewMemoryStore(2)
	store.Upsert(ctx, "org1", []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}})
	store.Upsert(ctx, "org2", []string{"c"}, [][]float32{{0.6, 0.8}})
	if err := store.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	restored, _ := NewMemoryStore(2)
	if err := restored.Load(path); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if restored.Size("org1") != 2 || restored.Size("org2") != 1 {
		t.Fatalf("sizes = %d/%d, want 2/1", restored.Size("org1"), restored.Size("org2"))
	}

	results, err := restored.Search(ctx, "org2", []float32{0.6, 0.8}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].ChunkID != "c" || math.Abs(results[0].Score-1.0) > 1e-5 {
		t.Errorf("restored search = %+v", results[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	store, _ := NewMemoryStore(2)
	if err := store.Load(filepath.Join(t.TempDir(), "absent.bin")); err != nil {
		t.Errorf("missing file must not error, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1.0) > 1e-6 {
		t.Errorf("identical vectors = %v, want 1", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{-1, 0}); got != 0 {
		t.Errorf("opposite vectors = %v, want clamped to 0", got)
	}
	if got := CosineSimilarity([]float32{1}, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched lengths = %v, want 0", got)
	}
}
