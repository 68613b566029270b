package knowledge

import "time"

// Document is one stored chunk of source text.
type Document struct {
	ID        string
	Content   string
	Source    string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Result is one search hit. Score is the cosine distance between the query
// and the chunk: lower means more relevant. This convention is kept all the
// way through to rendering and must not be flipped.
type Result struct {
	Document Document
	Score    float64
}
