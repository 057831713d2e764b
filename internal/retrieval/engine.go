// Package retrieval implements adaptive hybrid retrieval: complexity
// analysis, lexical scoring, hybrid fusion, re-ranking, dynamic threshold
// filtering, and per-document diversification.
package retrieval

import (
	"sort"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
)

var comparativeWords = []string{"more", "less", "better", "worse", "than", "versus", "compared"}

// DefaultMaxPerDocument caps how many chunks one document may contribute
// to the final ranking.
const DefaultMaxPerDocument = 3

// Engine ranks candidate chunks for a query. It is stateless apart from
// configuration and safe for concurrent use.
type Engine struct {
	maxPerDocument int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxPerDocument overrides the per-document diversification cap.
// Non-positive values are ignored.
func WithMaxPerDocument(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPerDocument = n
		}
	}
}

// NewEngine creates an Engine with default diversification limits.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{maxPerDocument: DefaultMaxPerDocument}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank runs the full post-semantic pipeline: hybrid fusion with keyword
// scores, boost-based re-ranking, dynamic threshold filtering, and
// per-document diversification. The semantic slice carries vector-search
// similarities; allChunks is the organization's full chunk universe.
func (e *Engine) Rank(query string, semantic []models.ScoredChunk, allChunks []models.Chunk, complexity Complexity, params Parameters) []models.ScoredChunk {
	results := e.HybridSearch(semantic, query, allChunks, params.KeywordWeight)
	results = e.Rerank(results, complexity)
	results = e.FilterByDynamicThreshold(results, params.SimilarityThreshold, complexity)
	return e.Diversify(results)
}

// HybridSearch fuses semantic similarities with keyword scores using a
// convex combination, then injects strong keyword-only matches (score
// >= 0.6) that semantic search missed, scored by the keyword term alone.
func (e *Engine) HybridSearch(semantic []models.ScoredChunk, query string, allChunks []models.Chunk, keywordWeight float64) []models.ScoredChunk {
	keywordScored := KeywordSearch(query, allChunks)
	keywordByID := make(map[string]float64, len(keywordScored))
	for _, chunk := range keywordScored {
		keywordByID[chunk.ChunkID] = chunk.KeywordScore
	}

	seen := make(map[string]bool, len(semantic))
	results := make([]models.ScoredChunk, 0, len(semantic))
	for _, chunk := range semantic {
		seen[chunk.ChunkID] = true
		chunk.SemanticScore = chunk.Similarity
		chunk.KeywordScore = keywordByID[chunk.ChunkID]
		chunk.HybridScore = (1-keywordWeight)*chunk.SemanticScore + keywordWeight*chunk.KeywordScore
		chunk.Similarity = chunk.HybridScore
		results = append(results, chunk)
	}

	for _, chunk := range keywordScored {
		if seen[chunk.ChunkID] || chunk.KeywordScore < 0.6 {
			continue
		}
		chunk.SemanticScore = 0
		chunk.HybridScore = keywordWeight * chunk.KeywordScore
		chunk.Similarity = chunk.HybridScore
		results = append(results, chunk)
	}

	return results
}

// Rerank applies content boosts on top of the hybrid score and sorts by
// the final score: page-1 chunks +0.05, medium-length chunks (50-300
// words) +0.03, very short chunks (<20 words) -0.10, and chunks with
// comparative language +0.05 on comparison queries. Final scores are
// capped at 1.0.
func (e *Engine) Rerank(results []models.ScoredChunk, complexity Complexity) []models.ScoredChunk {
	for i := range results {
		boost := 0.0

		if results[i].SpansPage(1) {
			boost += 0.05
		}

		length := len(strings.Fields(results[i].Text))
		if length >= 50 && length <= 300 {
			boost += 0.03
		}
		if length < 20 {
			boost -= 0.10
		}

		if complexity.IsComparison {
			textLower := strings.ToLower(results[i].Text)
			for _, word := range comparativeWords {
				if strings.Contains(textLower, word) {
					boost += 0.05
					break
				}
			}
		}

		results[i].FinalScore = minFloat(results[i].Similarity+boost, 1.0)
		results[i].Similarity = results[i].FinalScore
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})

	return results
}

// FilterByDynamicThreshold drops weak results using a threshold adapted
// to the score distribution and query complexity. When the filter would
// leave fewer than 3 results but at least 3 exist, the top 3 are kept
// regardless of score.
func (e *Engine) FilterByDynamicThreshold(results []models.ScoredChunk, baseThreshold float64, complexity Complexity) []models.ScoredChunk {
	if len(results) == 0 {
		return results
	}

	maxScore := 0.0
	sum := 0.0
	for _, r := range results {
		if r.Similarity > maxScore {
			maxScore = r.Similarity
		}
		sum += r.Similarity
	}
	avgScore := sum / float64(len(results))

	var threshold float64
	switch {
	case maxScore > 0.8:
		threshold = maxFloat(baseThreshold, avgScore*0.8)
	case maxScore > 0.6:
		threshold = baseThreshold
	default:
		threshold = minFloat(baseThreshold, maxScore*0.7)
	}

	if complexity.Level == ComplexityHigh {
		threshold *= 0.9
	} else if complexity.Level == ComplexityLow && complexity.IsSpecific {
		threshold *= 1.1
	}

	filtered := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		if r.Similarity >= threshold {
			filtered = append(filtered, r)
		}
	}

	if len(filtered) < minChunks && len(results) >= minChunks {
		filtered = results[:minChunks]
	}

	return filtered
}

// Diversify limits how many chunks a single document may contribute,
// preserving rank order.
func (e *Engine) Diversify(results []models.ScoredChunk) []models.ScoredChunk {
	counts := make(map[string]int)
	diversified := make([]models.ScoredChunk, 0, len(results))
	for _, r := range results {
		if counts[r.DocumentID] >= e.maxPerDocument {
			continue
		}
		counts[r.DocumentID]++
		diversified = append(diversified, r)
	}
	return diversified
}

// ChunkNeighbors returns the chunks adjacent to the given chunk within
// the same document, up to contextWindow positions away.
func ChunkNeighbors(chunk models.Chunk, allChunks []models.Chunk, contextWindow int) []Neighbor {
	if chunk.ChunkIndex < 0 {
		return nil
	}

	var neighbors []Neighbor
	for _, other := range allChunks {
		if other.DocumentID != chunk.DocumentID || other.ChunkIndex == chunk.ChunkIndex {
			continue
		}
		distance := other.ChunkIndex - chunk.ChunkIndex
		if distance < 0 {
			distance = -distance
		}
		if distance <= contextWindow {
			neighbors = append(neighbors, Neighbor{Chunk: other, Distance: distance})
		}
	}
	return neighbors
}

// KeywordFallback ranks all chunks lexically and returns the top n with
// a positive score. It backs up the pipeline when semantic search is
// unavailable.
func KeywordFallback(query string, chunks []models.Chunk, n int) []models.ScoredChunk {
	scored := KeywordSearch(query, chunks)
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].KeywordScore > scored[j].KeywordScore
	})

	var top []models.ScoredChunk
	for _, chunk := range scored {
		if chunk.KeywordScore <= 0 {
			break
		}
		chunk.Similarity = chunk.KeywordScore
		chunk.FinalScore = chunk.KeywordScore
		top = append(top, chunk)
		if len(top) == n {
			break
		}
	}
	return top
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
