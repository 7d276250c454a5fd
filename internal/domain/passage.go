package domain

// Passage is a bounded, contiguous substring of the transcript used as a
// retrieval unit. Start and End are character (rune) offsets into the
// normalized transcript text.
type Passage struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// IndexedPassage pairs a passage with its embedding vector.
type IndexedPassage struct {
	Passage
	Vector []float32 `json:"-"`
}

// ScoredPassage is returned by similarity search, including the score.
type ScoredPassage struct {
	Passage
	Similarity float64 `json:"similarity"`
}

// Answer is the grounded response to a question with the passages used.
type Answer struct {
	Question string          `json:"question"`
	Text     string          `json:"answer"`
	Sources  []ScoredPassage `json:"sources"`
}
