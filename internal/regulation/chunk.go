package regulation

import "strconv"

// Default chunking parameters, in runes.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunk is a window of article text prepared for embedding.
type Chunk struct {
	ID            string    `json:"id"`
	RegulationID  string    `json:"regulation_id"`
	Index         int       `json:"chunk_index"`
	Text          string    `json:"chunk_text"`
	Start         int       `json:"start_pos"`
	End           int       `json:"end_pos"`
	LawName       string    `json:"law_name"`
	ArticleNumber string    `json:"article_number"`
	Category      string    `json:"category"`
	Embedding     []float64 `json:"embedding,omitempty"`
}

// ChunkArticle splits the article content into windows of size runes,
// each starting overlap runes before the previous one ended. The last
// window ends at the end of the text. Invalid parameters fall back to the
// defaults.
func ChunkArticle(a Article, size, overlap int) []Chunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = 0
		}
	}
	text := []rune(a.Content)
	var chunks []Chunk
	for start := 0; start < len(text); start += size - overlap {
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		idx := len(chunks)
		chunks = append(chunks, Chunk{
			ID:            chunkID(a.ID, idx),
			RegulationID:  a.ID,
			Index:         idx,
			Text:          string(text[start:end]),
			Start:         start,
			End:           end,
			LawName:       a.LawName,
			ArticleNumber: a.ArticleNumber,
			Category:      a.Category,
		})
		if end == len(text) {
			break
		}
	}
	return chunks
}

func chunkID(regID string, idx int) string {
	return regID + "_chunk_" + strconv.Itoa(idx)
}
