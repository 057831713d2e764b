package retrieval

import "github.com/hyperdocs/kotae/internal/models"

// Complexity levels.
const (
	ComplexityHigh   = "high"
	ComplexityMedium = "medium"
	ComplexityLow    = "low"
)

// Complexity describes how demanding a query is on retrieval.
type Complexity struct {
	Level        string `json:"complexity_level"`
	Score        int    `json:"complexity_score"`
	WordCount    int    `json:"word_count"`
	IsQuestion   bool   `json:"is_question"`
	IsComparison bool   `json:"is_comparison"`
	IsMultipart  bool   `json:"is_multipart"`
	IsSpecific   bool   `json:"is_specific"`
}

// Parameters are the adaptive retrieval knobs derived from complexity.
type Parameters struct {
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	KeywordWeight       float64 `json:"keyword_weight"`
}

// Neighbor is a chunk adjacent to a retrieved chunk in its document.
type Neighbor struct {
	models.Chunk
	Distance int `json:"neighbor_distance"`
}
