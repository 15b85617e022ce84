package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/id"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/metrics"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/trainset"
)

// TrainsetService builds, persists, and loads trainsets. JSONL files
// are the source of truth for optimization; the repository mirror is
// optional and only used when a database is configured.
type TrainsetService struct {
	search      ports.SearchService
	repo        ports.TrainingExampleRepository
	ids         *id.Generator
	trainsetDir string
}

// NewTrainsetService creates a trainset service. repo may be nil when
// running without a database.
func NewTrainsetService(search ports.SearchService, repo ports.TrainingExampleRepository, trainsetDir string) *TrainsetService {
	return &TrainsetService{
		search:      search,
		repo:        repo,
		ids:         id.New(),
		trainsetDir: trainsetDir,
	}
}

// TrainsetPath returns where the JSONL trainset for an app lives
func (s *TrainsetService) TrainsetPath(app string) string {
	return filepath.Join(s.trainsetDir, app+".jsonl")
}

// BuildWebAnswerTrainset mines search results for each query and writes
// the resulting examples to the web answer trainset file, replacing any
// previous one. The examples carry only inputs since answers are judged
// rather than compared against gold labels.
func (s *TrainsetService) BuildWebAnswerTrainset(ctx context.Context, queries []string, opts ...trainset.BuilderOption) ([]*trainset.Example, error) {
	if len(queries) == 0 {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "no queries to build from")
	}

	builder := trainset.NewBuilder(s.search, opts...)
	examples, err := builder.Build(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("failed to build trainset: %w", err)
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: every query failed", domain.ErrEmptyTrainset)
	}

	path := s.TrainsetPath(models.AppWebAnswer)
	if err := trainset.Save(path, examples); err != nil {
		return nil, fmt.Errorf("failed to save trainset: %w", err)
	}
	metrics.TrainsetExamplesTotal.WithLabelValues(models.AppWebAnswer).Add(float64(len(examples)))

	s.mirrorToRepository(ctx, models.AppWebAnswer, models.SourceSearch, examples)

	return examples, nil
}

// SaveTrainset writes examples for an app and mirrors them to the
// repository. Used for seed and manually curated trainsets.
func (s *TrainsetService) SaveTrainset(ctx context.Context, app, source string, examples []*trainset.Example) error {
	if len(examples) == 0 {
		return fmt.Errorf("%w: app %s", domain.ErrEmptyTrainset, app)
	}
	if err := trainset.Save(s.TrainsetPath(app), examples); err != nil {
		return fmt.Errorf("failed to save trainset: %w", err)
	}
	metrics.TrainsetExamplesTotal.WithLabelValues(app).Add(float64(len(examples)))
	s.mirrorToRepository(ctx, app, source, examples)
	return nil
}

// LoadTrainset reads the stored examples for an app in insertion order
func (s *TrainsetService) LoadTrainset(app string, inputKeys ...string) ([]*trainset.Example, error) {
	examples, err := trainset.Load(s.TrainsetPath(app), inputKeys...)
	if err != nil {
		return nil, err
	}
	return examples, nil
}

// LoadForOptimization reads an app's trainset and converts it to the
// evaluation example form the optimizer consumes.
func (s *TrainsetService) LoadForOptimization(app string, inputKeys ...string) ([]prompt.Example, error) {
	examples, err := s.LoadTrainset(app, inputKeys...)
	if err != nil {
		return nil, err
	}
	if len(examples) == 0 {
		return nil, fmt.Errorf("%w: app %s", domain.ErrEmptyTrainset, app)
	}
	converted := make([]prompt.Example, 0, len(examples))
	for _, ex := range examples {
		converted = append(converted, prompt.Example{
			Inputs:  ex.Inputs(),
			Outputs: ex.Outputs(),
		})
	}
	return converted, nil
}

// Count returns how many examples the repository holds for an app
func (s *TrainsetService) Count(ctx context.Context, app string) (int, error) {
	if s.repo == nil {
		examples, err := s.LoadTrainset(app)
		if err != nil {
			return 0, err
		}
		return len(examples), nil
	}
	return s.repo.CountByApp(ctx, app)
}

// mirrorToRepository is best effort. The JSONL file already persisted
// so a database hiccup must not fail the build.
func (s *TrainsetService) mirrorToRepository(ctx context.Context, app, source string, examples []*trainset.Example) {
	if s.repo == nil {
		return
	}
	records := make([]*models.TrainingExample, 0, len(examples))
	for _, ex := range examples {
		records = append(records, models.NewTrainingExample(s.ids.GenerateExampleID(), app, source, ex.Inputs(), ex.Outputs()))
	}
	if err := s.repo.CreateBatch(ctx, records); err != nil {
		log.Printf("trainset: failed to mirror %d examples for %s to repository: %v", len(records), app, err)
	}
}
