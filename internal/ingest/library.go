package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/internal/vectorstore"
	"github.com/hyperdocs/kotae/pkg/utils"
)

// Embedder produces embedding vectors for a batch of texts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// orgConfig is the optional per-organization org.yaml file.
type orgConfig struct {
	Name     string `yaml:"name"`
	Prompt   string `yaml:"prompt"`
	Domain   string `yaml:"domain"`
	Industry string `yaml:"industry"`
}

// Library loads organization document sets from a root directory laid
// out as <root>/<org-id>/org.yaml plus document files, and keeps their
// chunk embeddings synced into the vector store.
type Library struct {
	root     string
	chunker  *Chunker
	embedder Embedder
	vectors  vectorstore.Store
	logger   *zap.Logger

	mu   sync.RWMutex
	orgs map[string]*models.OrgSnapshot
}

// LibraryOption configures a Library.
type LibraryOption func(*Library)

// WithLogger sets a logger for ingest progress and skip warnings.
func WithLogger(l *zap.Logger) LibraryOption {
	return func(lib *Library) { lib.logger = l }
}

// NewLibrary creates a library rooted at root. embedder may be nil;
// documents are then loaded without vector sync and retrieval falls
// back to keyword search.
func NewLibrary(root string, chunker *Chunker, embedder Embedder, vectors vectorstore.Store, opts ...LibraryOption) *Library {
	lib := &Library{
		root:     root,
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		logger:   zap.NewNop(),
		orgs:     make(map[string]*models.OrgSnapshot),
	}
	for _, opt := range opts {
		opt(lib)
	}
	return lib
}

// LoadAll loads every organization directory under the root. Returns
// the number of organizations loaded. Individual organization failures
// are logged and skipped.
func (lib *Library) LoadAll(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(lib.root)
	if err != nil {
		return 0, fmt.Errorf("read organizations root: %w", err)
	}
	loaded := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := lib.LoadOrg(ctx, entry.Name()); err != nil {
			lib.logger.Warn("skipping organization",
				zap.String("org_id", entry.Name()),
				zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

// LoadOrg loads or reloads a single organization: reads org.yaml,
// extracts and chunks its documents, and replaces the organization's
// vectors. Documents that cannot be extracted are skipped with a
// warning rather than failing the organization.
func (lib *Library) LoadOrg(ctx context.Context, orgID string) error {
	dir := filepath.Join(lib.root, orgID)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("stat organization dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	snapshot := &models.OrgSnapshot{ID: orgID, Name: orgID}
	if cfg, err := readOrgConfig(filepath.Join(dir, "org.yaml")); err != nil {
		return err
	} else if cfg != nil {
		if cfg.Name != "" {
			snapshot.Name = cfg.Name
		}
		snapshot.Prompt = cfg.Prompt
		snapshot.Domain = cfg.Domain
		snapshot.Industry = cfg.Industry
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read organization dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !SupportedExtension(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		pages, err := ExtractFile(path)
		if err != nil {
			lib.logger.Warn("skipping document",
				zap.String("org_id", orgID),
				zap.String("file", entry.Name()),
				zap.Error(err))
			continue
		}
		docID := fileDocID(orgID, entry.Name())
		chunks := lib.chunker.Chunk(docID, entry.Name(), pages)
		if len(chunks) == 0 {
			lib.logger.Warn("document has no extractable text",
				zap.String("org_id", orgID),
				zap.String("file", entry.Name()))
			continue
		}
		snapshot.Documents = append(snapshot.Documents, models.Document{
			ID:       docID,
			Filename: entry.Name(),
			Chunks:   chunks,
		})
	}

	lib.syncEmbeddings(ctx, snapshot)

	lib.mu.Lock()
	lib.orgs[orgID] = snapshot
	lib.mu.Unlock()

	lib.logger.Info("organization loaded",
		zap.String("org_id", orgID),
		zap.Int("documents", len(snapshot.Documents)))
	return nil
}

// syncEmbeddings replaces the organization's vectors with embeddings of
// the snapshot's chunks. A document whose embedding request fails stays
// in the snapshot without vectors; keyword retrieval still covers it.
func (lib *Library) syncEmbeddings(ctx context.Context, snapshot *models.OrgSnapshot) {
	if lib.embedder == nil || lib.vectors == nil {
		return
	}
	lib.vectors.DropOrg(snapshot.ID)
	for _, doc := range snapshot.Documents {
		texts := make([]string, len(doc.Chunks))
		ids := make([]string, len(doc.Chunks))
		for i, chunk := range doc.Chunks {
			texts[i] = chunk.Text
			ids[i] = chunk.ChunkID
		}
		vectors, err := lib.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			lib.logger.Warn("embedding failed, document limited to keyword search",
				zap.String("org_id", snapshot.ID),
				zap.String("document", doc.Filename),
				zap.Error(err))
			continue
		}
		for i := range vectors {
			utils.NormalizeL2(vectors[i])
		}
		if err := lib.vectors.Upsert(ctx, snapshot.ID, ids, vectors); err != nil {
			lib.logger.Warn("vector upsert failed",
				zap.String("org_id", snapshot.ID),
				zap.String("document", doc.Filename),
				zap.Error(err))
		}
	}
}

// RemoveOrg drops an organization's snapshot and vectors.
func (lib *Library) RemoveOrg(orgID string) {
	lib.mu.Lock()
	delete(lib.orgs, orgID)
	lib.mu.Unlock()
	if lib.vectors != nil {
		lib.vectors.DropOrg(orgID)
	}
}

// Snapshot returns the loaded snapshot for an organization.
func (lib *Library) Snapshot(orgID string) (*models.OrgSnapshot, bool) {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	snapshot, ok := lib.orgs[orgID]
	return snapshot, ok
}

// Organizations returns the loaded organization IDs, sorted.
func (lib *Library) Organizations() []string {
	lib.mu.RLock()
	defer lib.mu.RUnlock()
	ids := make([]string, 0, len(lib.orgs))
	for id := range lib.orgs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Root returns the organizations root directory.
func (lib *Library) Root() string {
	return lib.root
}

func readOrgConfig(path string) (*orgConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read org.yaml: %w", err)
	}
	var cfg orgConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse org.yaml: %w", err)
	}
	return &cfg, nil
}

// fileDocID returns a stable document ID for a file within an
// organization. Same org and filename always yield the same ID, so
// re-ingesting replaces rather than duplicates.
func fileDocID(orgID, filename string) string {
	hash := sha256.Sum256([]byte(orgID + "/" + filename))
	return "doc:" + hex.EncodeToString(hash[:8])
}
