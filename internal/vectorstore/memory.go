// Package vectorstore provides per-organization vector indexes with
// brute-force cosine search.
package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Result is one vector search hit.
type Result struct {
	ChunkID string
	Score   float64
}

// Store indexes chunk embeddings per organization.
type Store interface {
	Upsert(ctx context.Context, orgID string, ids []string, vectors [][]float32) error
	Search(ctx context.Context, orgID string, query []float32, k int) ([]Result, error)
	Remove(ctx context.Context, orgID string, ids []string) error
	DropOrg(orgID string)
	Size(orgID string) int
	Close() error
}

// MemoryStore is an in-memory Store using brute-force inner product
// search. Vectors are expected to be L2-normalized, so the inner product
// is the cosine similarity.
type MemoryStore struct {
	dimensions int
	mu         sync.RWMutex
	orgs       map[string]*orgIndex
}

type orgIndex struct {
	ids     []string
	vectors [][]float32
}

// NewMemoryStore creates a store for vectors of the given dimension.
func NewMemoryStore(dimensions int) (*MemoryStore, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryStore{
		dimensions: dimensions,
		orgs:       make(map[string]*orgIndex),
	}, nil
}

// Upsert adds or replaces vectors for the organization. Existing entries
// with the same ID are removed first.
func (m *MemoryStore) Upsert(ctx context.Context, orgID string, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ids and vectors length mismatch")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	org := m.orgs[orgID]
	if org == nil {
		org = &orgIndex{}
		m.orgs[orgID] = org
	}

	replace := make(map[string]bool, len(ids))
	for _, id := range ids {
		replace[id] = true
	}
	org.filter(func(id string) bool { return !replace[id] })

	for i, id := range ids {
		if len(vectors[i]) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(vectors[i]), m.dimensions)
		}
		vec := make([]float32, m.dimensions)
		copy(vec, vectors[i])
		org.ids = append(org.ids, id)
		org.vectors = append(org.vectors, vec)
	}
	return nil
}

// Search returns the organization's top-k chunks by cosine similarity.
func (m *MemoryStore) Search(ctx context.Context, orgID string, query []float32, k int) ([]Result, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	org := m.orgs[orgID]
	if org == nil || k <= 0 || len(org.ids) == 0 {
		return nil, nil
	}

	results := make([]Result, len(org.ids))
	for i, vec := range org.vectors {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		results[i] = Result{ChunkID: org.ids[i], Score: dot}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Remove deletes vectors by chunk ID for the organization.
func (m *MemoryStore) Remove(ctx context.Context, orgID string, ids []string) error {
	removeSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		removeSet[id] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if org := m.orgs[orgID]; org != nil {
		org.filter(func(id string) bool { return !removeSet[id] })
	}
	return nil
}

// DropOrg discards the organization's entire index.
func (m *MemoryStore) DropOrg(orgID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orgs, orgID)
}

// Size returns the number of vectors indexed for the organization.
func (m *MemoryStore) Size(orgID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if org := m.orgs[orgID]; org != nil {
		return len(org.ids)
	}
	return 0
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}

func (o *orgIndex) filter(keep func(id string) bool) {
	ids := o.ids[:0]
	vectors := o.vectors[:0]
	for i, id := range o.ids {
		if keep(id) {
			ids = append(ids, id)
			vectors = append(vectors, o.vectors[i])
		}
	}
	o.ids = ids
	o.vectors = vectors
}

// Save persists the store to path. Format: dimensions (4), org count
// (4), then per org: idLen+id, vector count, and per vector idLen+id
// followed by dimension*4 bytes.
func (m *MemoryStore) Save(path string) error {
	if path == "" {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.orgs))); err != nil {
		return fmt.Errorf("write org count: %w", err)
	}

	orgIDs := make([]string, 0, len(m.orgs))
	for orgID := range m.orgs {
		orgIDs = append(orgIDs, orgID)
	}
	sort.Strings(orgIDs)

	for _, orgID := range orgIDs {
		org := m.orgs[orgID]
		if err := writeString(f, orgID); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, uint32(len(org.ids))); err != nil {
			return fmt.Errorf("write vector count: %w", err)
		}
		for i, id := range org.ids {
			if err := writeString(f, id); err != nil {
				return err
			}
			if _, err := f.Write(float32SliceToBytes(org.vectors[i])); err != nil {
				return fmt.Errorf("write vector: %w", err)
			}
		}
	}
	return nil
}

// Load reads the store from path, replacing in-memory contents. A
// missing file is not an error; the store is simply left empty.
func (m *MemoryStore) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	var dim, orgCount uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, store expects %d", dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &orgCount); err != nil {
		return fmt.Errorf("read org count: %w", err)
	}

	orgs := make(map[string]*orgIndex, orgCount)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < orgCount; i++ {
		orgID, err := readString(f)
		if err != nil {
			return err
		}
		var n uint32
		if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
			return fmt.Errorf("read vector count: %w", err)
		}
		org := &orgIndex{
			ids:     make([]string, 0, n),
			vectors: make([][]float32, 0, n),
		}
		for j := uint32(0); j < n; j++ {
			id, err := readString(f)
			if err != nil {
				return err
			}
			if _, err := io.ReadFull(f, buf); err != nil {
				return fmt.Errorf("read vector: %w", err)
			}
			org.ids = append(org.ids, id)
			org.vectors = append(org.vectors, bytesToFloat32Slice(buf))
		}
		orgs[orgID] = org
	}

	m.mu.Lock()
	m.orgs = orgs
	m.mu.Unlock()
	return nil
}

func writeString(f *os.File, s string) error {
	if err := binary.Write(f, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("write string len: %w", err)
	}
	if _, err := f.Write([]byte(s)); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

func readString(f *os.File) (string, error) {
	var n uint32
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read string len: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(f, b); err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}

// CosineSimilarity returns the cosine similarity between two normalized
// vectors, clamped to [0, 1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return math.Max(0, math.Min(1, dot))
}
