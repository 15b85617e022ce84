package dto

import (
	"time"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

// DocumentResponse is a corpus document without its content body
type DocumentResponse struct {
	ID        string    `json:"id" msgpack:"id"`
	URL       string    `json:"url" msgpack:"url"`
	Title     string    `json:"title" msgpack:"title"`
	Snippet   string    `json:"snippet,omitempty" msgpack:"snippet,omitempty"`
	FetchedAt time.Time `json:"fetched_at" msgpack:"fetched_at"`
}

// FromDocument converts a domain document to its API representation
func FromDocument(doc *models.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		URL:       doc.URL,
		Title:     doc.Title,
		Snippet:   doc.Snippet,
		FetchedAt: doc.FetchedAt,
	}
}
