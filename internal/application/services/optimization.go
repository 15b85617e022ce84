package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
	"github.com/XiaoConstantine/dspy-go/pkg/optimizers"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/id"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/metrics"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/tracing"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/config"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
)

// OptimizationSpec describes one optimization job: the program shape,
// its starting instruction, the metric to climb, and the examples to
// climb on.
type OptimizationSpec struct {
	App             string
	Signature       prompt.Signature
	SeedInstruction string
	Metric          prompt.Metric
	Trainset        []prompt.Example
}

// OptimizationService runs GEPA instruction optimization and persists
// runs and candidates.
type OptimizationService struct {
	repo      ports.OptimizationRunRepository
	taskLLM   ports.LLMService
	judgeLLM  ports.LLMService
	publisher ports.OptimizationProgressPublisher
	ids       *id.Generator
	cfg       config.OptimizerConfig
}

// NewOptimizationService creates an optimization service. judgeLLM
// drives GEPA reflection and should be at least as strong as the task
// model.
func NewOptimizationService(
	repo ports.OptimizationRunRepository,
	taskLLM ports.LLMService,
	judgeLLM ports.LLMService,
	cfg config.OptimizerConfig,
) *OptimizationService {
	return &OptimizationService{
		repo:      repo,
		taskLLM:   taskLLM,
		judgeLLM:  judgeLLM,
		publisher: NewProgressPublisher(),
		ids:       id.New(),
		cfg:       cfg,
	}
}

// WithProgressPublisher overrides the default in-process publisher
func (s *OptimizationService) WithProgressPublisher(publisher ports.OptimizationProgressPublisher) *OptimizationService {
	s.publisher = publisher
	return s
}

// Publisher exposes the progress publisher for transports that stream
// run progress.
func (s *OptimizationService) Publisher() ports.OptimizationProgressPublisher {
	return s.publisher
}

// GetRun retrieves a run by ID
func (s *OptimizationService) GetRun(ctx context.Context, runID string) (*models.OptimizationRun, error) {
	if runID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "run ID cannot be empty")
	}
	return s.repo.GetByID(ctx, runID)
}

// ListRuns lists runs, optionally filtered by app
func (s *OptimizationService) ListRuns(ctx context.Context, app string, limit, offset int) ([]*models.OptimizationRun, error) {
	return s.repo.List(ctx, app, limit, offset)
}

// GetCandidates lists all stored candidates of a run
func (s *OptimizationService) GetCandidates(ctx context.Context, runID string) ([]*models.PromptCandidate, error) {
	if runID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "run ID cannot be empty")
	}
	return s.repo.GetCandidatesByRun(ctx, runID)
}

// GetBestCandidate returns the highest scoring candidate of a run
func (s *OptimizationService) GetBestCandidate(ctx context.Context, runID string) (*models.PromptCandidate, error) {
	if runID == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidID, "run ID cannot be empty")
	}
	run, err := s.repo.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status == models.OptimizationStatusRunning {
		return nil, fmt.Errorf("%w: %s", domain.ErrRunStillRunning, runID)
	}
	return s.repo.GetBestCandidate(ctx, runID)
}

// Optimize runs a full GEPA optimization synchronously and returns the
// completed run together with the compiled program for the winning
// instruction.
func (s *OptimizationService) Optimize(ctx context.Context, name string, spec OptimizationSpec) (*models.OptimizationRun, *prompt.CompiledProgram, error) {
	if len(spec.Trainset) == 0 {
		return nil, nil, fmt.Errorf("%w: app %s", domain.ErrEmptyTrainset, spec.App)
	}

	run := models.NewOptimizationRun(s.ids.GenerateRunID(), name, spec.App, s.cfg.MaxGenerations)
	run.Config = map[string]any{
		"population_size": s.cfg.PopulationSize,
		"mutation_rate":   s.cfg.MutationRate,
		"crossover_rate":  s.cfg.CrossoverRate,
		"seed_prompt":     spec.SeedInstruction,
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("failed to create run: %w", err)
	}

	metrics.OptimizationRunsActive.Inc()
	defer metrics.OptimizationRunsActive.Dec()

	program, err := s.compile(ctx, run, spec)
	if err != nil {
		s.failRun(ctx, run, err)
		return run, nil, err
	}

	run.MarkCompleted()
	if updateErr := s.repo.Update(ctx, run); updateErr != nil {
		log.Printf("optimization: failed to persist completed run %s: %v", run.ID, updateErr)
	}

	metrics.OptimizationBestScore.WithLabelValues(spec.App).Set(run.BestScore)
	s.publisher.Publish(&ports.OptimizationProgress{
		RunID:     run.ID,
		Stage:     "completed",
		BestScore: run.BestScore,
		Message:   fmt.Sprintf("best score %.3f over %d examples", run.BestScore, len(spec.Trainset)),
	})
	s.publisher.Close(run.ID)

	return run, program, nil
}

// OptimizeAsync starts an optimization in the background and returns
// the created run immediately. Completion is observable through the
// progress publisher and the run repository.
func (s *OptimizationService) OptimizeAsync(ctx context.Context, name string, spec OptimizationSpec, onDone func(*models.OptimizationRun, *prompt.CompiledProgram, error)) (*models.OptimizationRun, error) {
	run, err := s.CreateRun(ctx, name, spec)
	if err != nil {
		return nil, err
	}
	s.StartRun(run, spec, onDone)
	return run, nil
}

// CreateRun persists a new run without starting the optimization. No
// progress events are published until StartRun, so callers can
// subscribe to the publisher in between without losing events.
func (s *OptimizationService) CreateRun(ctx context.Context, name string, spec OptimizationSpec) (*models.OptimizationRun, error) {
	if len(spec.Trainset) == 0 {
		return nil, fmt.Errorf("%w: app %s", domain.ErrEmptyTrainset, spec.App)
	}

	run := models.NewOptimizationRun(s.ids.GenerateRunID(), name, spec.App, s.cfg.MaxGenerations)
	run.Config = map[string]any{
		"population_size": s.cfg.PopulationSize,
		"seed_prompt":     spec.SeedInstruction,
	}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// StartRun launches the optimization goroutine for a created run
func (s *OptimizationService) StartRun(run *models.OptimizationRun, spec OptimizationSpec, onDone func(*models.OptimizationRun, *prompt.CompiledProgram, error)) {
	go func() {
		// detached from the request context; optimization outlives it
		bgCtx := context.Background()

		metrics.OptimizationRunsActive.Inc()
		defer metrics.OptimizationRunsActive.Dec()

		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("optimization panicked: %v", r)
				s.failRun(bgCtx, run, err)
				if onDone != nil {
					onDone(run, nil, err)
				}
			}
		}()

		program, err := s.compile(bgCtx, run, spec)
		if err != nil {
			s.failRun(bgCtx, run, err)
		} else {
			run.MarkCompleted()
			if updateErr := s.repo.Update(bgCtx, run); updateErr != nil {
				log.Printf("optimization: failed to persist completed run %s: %v", run.ID, updateErr)
			}
			metrics.OptimizationBestScore.WithLabelValues(spec.App).Set(run.BestScore)
			s.publisher.Publish(&ports.OptimizationProgress{
				RunID:     run.ID,
				Stage:     "completed",
				BestScore: run.BestScore,
			})
		}
		s.publisher.Close(run.ID)
		if onDone != nil {
			onDone(run, program, err)
		}
	}()
}

// compile does the actual GEPA work: baseline evaluation, instruction
// evolution, validation of the winner, and candidate persistence.
func (s *OptimizationService) compile(ctx context.Context, run *models.OptimizationRun, spec OptimizationSpec) (*prompt.CompiledProgram, error) {
	trainset, valset := splitTrainset(spec.Trainset, s.cfg.ValsetFraction)

	s.publisher.Publish(&ports.OptimizationProgress{
		RunID:   run.ID,
		Stage:   "started",
		Message: fmt.Sprintf("%d train / %d validation examples", len(trainset), len(valset)),
	})

	taskAdapter := prompt.NewLLMServiceAdapter(s.taskLLM, "task")
	core.SetDefaultLLM(taskAdapter)
	core.GlobalConfig.TeacherLLM = prompt.NewLLMServiceAdapter(s.judgeLLM, "reflection")

	seed := prompt.NewCompiledProgram(spec.Signature, spec.SeedInstruction, s.taskLLM)
	baseline, err := s.evaluate(ctx, seed, spec.Metric, valset)
	if err != nil {
		log.Printf("optimization: baseline evaluation incomplete for run %s: %v", run.ID, err)
	}
	run.BaselineScore = baseline
	if err := s.repo.Update(ctx, run); err != nil {
		log.Printf("optimization: failed to persist baseline for run %s: %v", run.ID, err)
	}

	module := prompt.NewPredictModule(spec.Signature,
		prompt.WithTracer(tracing.NewOtelTracer(spec.App)),
		prompt.WithMetrics(metrics.NewPredictCollector(spec.App)),
	)
	program := module.ToProgram(spec.Signature.Name)
	dataset := prompt.NewDatasetAdapter(trainset)

	coreMetric := prompt.NewMetricAdapter(spec.Metric, func(err error) {
		metrics.JudgeEvaluationsTotal.WithLabelValues(spec.App, "error").Inc()
		log.Printf("optimization: evaluation failed during run %s: %v", run.ID, err)
	}).ToCoreMetric()

	gepaConfig := &optimizers.GEPAConfig{
		MaxGenerations:       s.cfg.MaxGenerations,
		PopulationSize:       s.cfg.PopulationSize,
		MutationRate:         s.cfg.MutationRate,
		CrossoverRate:        s.cfg.CrossoverRate,
		ElitismRate:          0.1,
		ReflectionFreq:       2,
		SelectionStrategy:    "adaptive_pareto",
		EvaluationBatchSize:  s.cfg.BatchSize,
		ConcurrencyLevel:     s.cfg.Concurrency,
		ConvergenceThreshold: 0.01,
		StagnationLimit:      3,
	}
	optimizer, err := optimizers.NewGEPA(gepaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GEPA optimizer: %w", err)
	}

	s.publisher.Publish(&ports.OptimizationProgress{
		RunID:   run.ID,
		Stage:   "compiling",
		Message: fmt.Sprintf("evolving %d generations of %d candidates", s.cfg.MaxGenerations, s.cfg.PopulationSize),
	})

	start := time.Now()
	if _, err := optimizer.Compile(ctx, program, dataset, coreMetric); err != nil {
		return nil, fmt.Errorf("GEPA compile failed: %w", err)
	}
	log.Printf("optimization: run %s compiled in %s", run.ID, time.Since(start).Round(time.Second))

	state := optimizer.GetOptimizationState()

	instruction := spec.SeedInstruction
	generation := 0
	if state != nil && state.BestCandidate != nil && state.BestCandidate.Instruction != "" {
		instruction = state.BestCandidate.Instruction
		generation = state.BestCandidate.Generation
		run.Iterations = state.BestCandidate.Generation
	}

	var archive []archivedCandidate
	if state != nil {
		for _, candidate := range state.GetParetoArchive() {
			if candidate == nil || candidate.Instruction == "" || candidate.Instruction == instruction {
				continue
			}
			archive = append(archive, archivedCandidate{
				Instruction: candidate.Instruction,
				Generation:  candidate.Generation,
				Fitness:     candidate.Fitness,
			})
		}
	}

	best := prompt.NewCompiledProgram(spec.Signature, instruction, s.taskLLM)

	s.publisher.Publish(&ports.OptimizationProgress{
		RunID:      run.ID,
		Stage:      "validating",
		Generation: generation,
	})

	bestScore, err := s.evaluate(ctx, best, spec.Metric, valset)
	if err != nil {
		return nil, fmt.Errorf("validation of winning candidate failed: %w", err)
	}
	run.BestScore = bestScore
	best.WithProvenance(run.ID, bestScore)

	s.persistCandidates(ctx, run, archive, instruction, generation, bestScore, len(valset))

	return best, nil
}

// archivedCandidate is a Pareto archive entry lifted out of the
// optimizer state for persistence.
type archivedCandidate struct {
	Instruction string
	Generation  int
	Fitness     float64
}

// evaluate scores a program over examples and returns the mean score.
// Individual failures are logged and skipped; it is an error only when
// no example could be scored.
func (s *OptimizationService) evaluate(ctx context.Context, program *prompt.CompiledProgram, metric prompt.Metric, examples []prompt.Example) (float64, error) {
	if len(examples) == 0 {
		return 0, nil
	}

	var sum float64
	scored := 0
	for _, gold := range examples {
		outputs, err := program.Execute(ctx, gold.Inputs)
		if err != nil {
			log.Printf("optimization: program execution failed during validation: %v", err)
			continue
		}
		result, err := metric.Score(ctx, gold, prompt.Example{Inputs: gold.Inputs, Outputs: outputs}, nil)
		if err != nil {
			log.Printf("optimization: validation scoring failed: %v", err)
			continue
		}
		sum += result.Score
		scored++
	}

	if scored == 0 {
		return 0, fmt.Errorf("%w: no validation example could be scored", domain.ErrEvaluationFailed)
	}
	return sum / float64(scored), nil
}

// persistCandidates stores the winner plus the Pareto archive
func (s *OptimizationService) persistCandidates(ctx context.Context, run *models.OptimizationRun, archive []archivedCandidate, instruction string, generation int, bestScore float64, evalCount int) {
	winner := models.NewPromptCandidate(s.ids.GenerateCandidateID(), run.ID, generation, instruction)
	winner.Score = bestScore
	winner.EvaluationCount = evalCount
	if err := s.repo.CreateCandidate(ctx, winner); err != nil {
		log.Printf("optimization: failed to save winning candidate for run %s: %v", run.ID, err)
	}

	for _, archived := range archive {
		candidate := models.NewPromptCandidate(s.ids.GenerateCandidateID(), run.ID, archived.Generation, archived.Instruction)
		candidate.Score = archived.Fitness
		if err := s.repo.CreateCandidate(ctx, candidate); err != nil {
			log.Printf("optimization: failed to save archived candidate for run %s: %v", run.ID, err)
		}
	}
}

func (s *OptimizationService) failRun(ctx context.Context, run *models.OptimizationRun, cause error) {
	run.Meta["failure_reason"] = cause.Error()
	run.MarkFailed()
	if err := s.repo.Update(ctx, run); err != nil {
		log.Printf("optimization: failed to persist failed run %s: %v", run.ID, err)
	}
	s.publisher.Publish(&ports.OptimizationProgress{
		RunID:   run.ID,
		Stage:   "failed",
		Message: cause.Error(),
	})
}

// splitTrainset carves off the tail of the examples as a validation
// set. With a single example it is used for both.
func splitTrainset(examples []prompt.Example, valsetFraction float64) (train, val []prompt.Example) {
	if valsetFraction <= 0 || valsetFraction >= 1 || len(examples) < 2 {
		return examples, examples
	}
	valCount := int(float64(len(examples)) * valsetFraction)
	if valCount < 1 {
		valCount = 1
	}
	cut := len(examples) - valCount
	return examples[:cut], examples[cut:]
}
