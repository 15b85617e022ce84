package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

// DocumentRepository implements ports.DocumentRepository on a pgvector
// backed table.
type DocumentRepository struct {
	BaseRepository
}

func NewDocumentRepository(db Querier) *DocumentRepository {
	return &DocumentRepository{BaseRepository: NewBaseRepository(db)}
}

const documentColumns = `id, url, title, snippet, content, embedding, fetched_at, created_at, deleted_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var embedding *pgvector.Vector
	if len(doc.Embedding) > 0 {
		v := pgvector.NewVector(doc.Embedding)
		embedding = &v
	}

	query := `
		INSERT INTO documents (` + documentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			snippet = EXCLUDED.snippet,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			fetched_at = EXCLUDED.fetched_at,
			deleted_at = NULL`

	_, err := r.conn(ctx).Exec(ctx, query,
		doc.ID,
		doc.URL,
		doc.Title,
		doc.Snippet,
		doc.Content,
		embedding,
		doc.FetchedAt,
		doc.CreatedAt,
		nullTime(doc.DeletedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND deleted_at IS NULL`
	doc, err := scanDocument(r.conn(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if checkNoRows(err) {
			return nil, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) GetByURL(ctx context.Context, url string) (*models.Document, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + documentColumns + ` FROM documents WHERE url = $1 AND deleted_at IS NULL`
	doc, err := scanDocument(r.conn(ctx).QueryRow(ctx, query, url))
	if err != nil {
		if checkNoRows(err) {
			return nil, fmt.Errorf("%w: document for %s", domain.ErrNotFound, url)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// SearchSimilar returns documents ordered by cosine distance to the
// query embedding.
func (r *DocumentRepository) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*models.Document, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE embedding IS NOT NULL AND deleted_at IS NULL
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := r.conn(ctx).Query(ctx, query, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	docs := make([]*models.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete soft-deletes a document
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.conn(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	return nil
}

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	var embedding *pgvector.Vector
	var deletedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.URL,
		&doc.Title,
		&doc.Snippet,
		&doc.Content,
		&embedding,
		&doc.FetchedAt,
		&doc.CreatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	if embedding != nil {
		doc.Embedding = embedding.Slice()
	}
	doc.DeletedAt = getTimePtr(deletedAt)

	return &doc, nil
}
