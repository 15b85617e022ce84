package models

import "time"

// Document is a fetched web page stored in the retrieval corpus.
// Embedding is populated when the embedding service is configured.
type Document struct {
	ID        string     `json:"id"`
	URL       string     `json:"url"`
	Title     string     `json:"title"`
	Snippet   string     `json:"snippet,omitempty"`
	Content   string     `json:"content"`
	Embedding []float32  `json:"-"`
	FetchedAt time.Time  `json:"fetched_at"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// NewDocument creates a corpus document from a search hit
func NewDocument(id, url, title, snippet, content string) *Document {
	now := time.Now().UTC()
	return &Document{
		ID:        id,
		URL:       url,
		Title:     title,
		Snippet:   snippet,
		Content:   content,
		FetchedAt: now,
		CreatedAt: now,
	}
}
