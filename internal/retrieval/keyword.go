package retrieval

import (
	"strings"

	"github.com/hyperdocs/kotae/internal/models"
	"github.com/hyperdocs/kotae/pkg/utils"
)

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "will": true, "with": true,
	"what": true, "when": true, "where": true, "who": true, "why": true, "how": true,
}

// KeywordSearch scores every chunk against the query with a bounded
// lexical formula: exact word matches count double, substring matches
// single, and whole-query-word occurrences in the raw text half. The
// score is normalized by the number of important (non-stop) query words
// and clipped to [0, 1].
func KeywordSearch(query string, chunks []models.Chunk) []models.ScoredChunk {
	queryWords := uniqueWords(strings.ToLower(query))
	important := make([]string, 0, len(queryWords))
	for _, word := range queryWords {
		if !stopWords[word] {
			important = append(important, word)
		}
	}

	scored := make([]models.ScoredChunk, 0, len(chunks))
	for _, chunk := range chunks {
		text := strings.ToLower(chunk.Text)
		chunkWords := uniqueWords(text)
		chunkWordSet := make(map[string]bool, len(chunkWords))
		for _, word := range chunkWords {
			chunkWordSet[word] = true
		}

		exact := 0
		partial := 0
		for _, qw := range important {
			if chunkWordSet[qw] {
				exact++
			}
			for _, cw := range chunkWords {
				if strings.Contains(cw, qw) {
					partial++
					break
				}
			}
		}

		phrase := 0
		for _, qw := range queryWords {
			if strings.Contains(text, qw) {
				phrase++
			}
		}

		var score float64
		if len(important) > 0 {
			score = (float64(exact)*2 + float64(partial) + float64(phrase)*0.5) / (float64(len(important)) * 3)
		} else if len(queryWords) > 0 {
			score = float64(phrase) / float64(len(queryWords))
		}

		scored = append(scored, models.ScoredChunk{
			Chunk:        chunk,
			KeywordScore: utils.Clamp(score, 0, 1),
		})
	}

	return scored
}

// uniqueWords splits text into whitespace-delimited words, deduplicated
// in first-seen order.
func uniqueWords(text string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, word := range strings.Fields(text) {
		if !seen[word] {
			seen[word] = true
			words = append(words, word)
		}
	}
	return words
}
