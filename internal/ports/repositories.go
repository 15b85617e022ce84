package ports

import (
	"context"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
)

// OptimizationRunRepository persists optimization runs and their candidates
type OptimizationRunRepository interface {
	Create(ctx context.Context, run *models.OptimizationRun) error
	GetByID(ctx context.Context, id string) (*models.OptimizationRun, error)
	Update(ctx context.Context, run *models.OptimizationRun) error
	List(ctx context.Context, app string, limit, offset int) ([]*models.OptimizationRun, error)
	GetLatestCompleted(ctx context.Context, app string) (*models.OptimizationRun, error)

	CreateCandidate(ctx context.Context, candidate *models.PromptCandidate) error
	GetCandidatesByRun(ctx context.Context, runID string) ([]*models.PromptCandidate, error)
	GetBestCandidate(ctx context.Context, runID string) (*models.PromptCandidate, error)
}

// TrainingExampleRepository persists training examples alongside the
// JSONL trainset files, so examples survive file shuffling.
type TrainingExampleRepository interface {
	Create(ctx context.Context, example *models.TrainingExample) error
	CreateBatch(ctx context.Context, examples []*models.TrainingExample) error
	GetByID(ctx context.Context, id string) (*models.TrainingExample, error)
	GetByApp(ctx context.Context, app string, limit, offset int) ([]*models.TrainingExample, error)
	CountByApp(ctx context.Context, app string) (int, error)
	Delete(ctx context.Context, id string) error
}

// DocumentRepository stores fetched pages with embeddings for retrieval
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetByURL(ctx context.Context, url string) (*models.Document, error)
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]*models.Document, error)
	Delete(ctx context.Context, id string) error
}
