package ingest

import (
	"sort"
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/pkg/utils"
)

// Chunker splits extracted pages into overlapping word-based chunks
// while tracking which pages each chunk spans.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

type pageWord struct {
	text string
	page int
}

// Chunk splits the document's pages into overlapping chunks. Chunk IDs
// are derived from the document ID and chunk index so re-ingesting a
// document produces the same IDs.
func (c *Chunker) Chunk(docID, docName string, pages []Page) []models.Chunk {
	var words []pageWord
	for _, page := range pages {
		for _, w := range strings.Fields(page.Text) {
			words = append(words, pageWord{text: w, page: page.Number})
		}
	}
	if len(words) == 0 {
		return nil
	}

	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}

	var chunks []models.Chunk
	chunkIndex := 0
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		window := words[i:end]

		texts := make([]string, len(window))
		pageSet := make(map[int]bool)
		for j, w := range window {
			texts[j] = w.text
			pageSet[w.page] = true
		}
		text := strings.Join(texts, " ")

		chunks = append(chunks, models.Chunk{
			ChunkID:      models.BuildChunkID(docID, chunkIndex),
			DocumentID:   docID,
			DocumentName: docName,
			ChunkIndex:   chunkIndex,
			Text:         text,
			Pages:        sortedPages(pageSet),
			TokenCount:   utils.EstimateTokens(text),
		})
		chunkIndex++
		if end >= len(words) {
			break
		}
	}
	return chunks
}

func sortedPages(set map[int]bool) []int {
	pages := make([]int, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
