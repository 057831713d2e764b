// Package models defines core data structures for documents, chunks,
// conversations, query analysis, and answers.
package models

import "fmt"

// Chunk is a bounded span of a document's text used as a retrieval unit.
// Chunks are produced once at ingestion and never mutated afterwards;
// retrieval only reads, scores, and re-orders collections of them.
type Chunk struct {
	ChunkID      string `json:"chunk_id"`
	DocumentID   string `json:"document_id"`
	DocumentName string `json:"document_name"`
	ChunkIndex   int    `json:"chunk_index"`
	Text         string `json:"text"`
	// Pages lists the page numbers the chunk spans; empty when unknown.
	Pages      []int `json:"pages,omitempty"`
	TokenCount int   `json:"token_count"`
}

// BuildChunkID builds the stable chunk identifier from a document ID and index.
func BuildChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_%d", documentID, index)
}

// SpansPage reports whether the chunk spans the given page number.
func (c *Chunk) SpansPage(page int) bool {
	for _, p := range c.Pages {
		if p == page {
			return true
		}
	}
	return false
}

// ScoredChunk is a Chunk augmented with per-query retrieval scores.
// All scores are derived and recomputed per query, never persisted.
type ScoredChunk struct {
	Chunk
	SemanticScore float64 `json:"semantic_score"`
	KeywordScore  float64 `json:"keyword_score"`
	HybridScore   float64 `json:"hybrid_score"`
	FinalScore    float64 `json:"final_score"`
	// Similarity is the live ranking score: the semantic similarity as
	// returned by vector search, overwritten by the hybrid score and then
	// by the final post-rerank score as the chunk moves down the pipeline.
	Similarity float64 `json:"similarity"`
}

// Document is an already-chunked, already-paginated document belonging to
// an organization.
type Document struct {
	ID       string  `json:"id"`
	Filename string  `json:"filename"`
	Chunks   []Chunk `json:"chunks"`
}

// OrgSnapshot is the organization view the answer pipeline operates on.
// Domain and Industry are optional comma-separated lists used to gate
// off-topic queries.
type OrgSnapshot struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Prompt    string     `json:"prompt,omitempty"`
	Domain    string     `json:"domain,omitempty"`
	Industry  string     `json:"industry,omitempty"`
	Documents []Document `json:"documents"`
}

// AllChunks flattens the organization's documents into a single chunk slice.
func (o *OrgSnapshot) AllChunks() []Chunk {
	var chunks []Chunk
	for _, doc := range o.Documents {
		chunks = append(chunks, doc.Chunks...)
	}
	return chunks
}

// Source describes a chunk that supported an answer.
type Source struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Pages        []int   `json:"pages,omitempty"`
	Preview      string  `json:"chunk_preview"`
	Relevance    float64 `json:"relevance"`
}
