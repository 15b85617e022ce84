package handlers

import (
	"context"
	"sync"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/application/services"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt/apps"
)

// stubLLM replays canned responses
type stubLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
}

func (s *stubLLM) Chat(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &ports.LLMResponse{}, nil
	}
	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return &ports.LLMResponse{Content: response}, nil
}

// stubSearch returns fixed results
type stubSearch struct {
	results []*ports.SearchResult
	err     error
}

func (s *stubSearch) Search(ctx context.Context, query string, maxResults int) ([]*ports.SearchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

func (s *stubSearch) SearchWithContent(ctx context.Context, query string, maxResults int) ([]*ports.SearchResult, error) {
	return s.Search(ctx, query, maxResults)
}

// memoryRunRepo is an in-memory run repository for handler tests
type memoryRunRepo struct {
	mu         sync.Mutex
	runs       map[string]*models.OptimizationRun
	candidates map[string][]*models.PromptCandidate
}

func newMemoryRunRepo() *memoryRunRepo {
	return &memoryRunRepo{
		runs:       make(map[string]*models.OptimizationRun),
		candidates: make(map[string][]*models.PromptCandidate),
	}
}

func (r *memoryRunRepo) Create(ctx context.Context, run *models.OptimizationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *memoryRunRepo) GetByID(ctx context.Context, id string) (*models.OptimizationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	return run, nil
}

func (r *memoryRunRepo) Update(ctx context.Context, run *models.OptimizationRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = run
	return nil
}

func (r *memoryRunRepo) List(ctx context.Context, app string, limit, offset int) ([]*models.OptimizationRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var runs []*models.OptimizationRun
	for _, run := range r.runs {
		if app == "" || run.App == app {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func (r *memoryRunRepo) GetLatestCompleted(ctx context.Context, app string) (*models.OptimizationRun, error) {
	return nil, domain.ErrRunNotFound
}

func (r *memoryRunRepo) CreateCandidate(ctx context.Context, candidate *models.PromptCandidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[candidate.RunID] = append(r.candidates[candidate.RunID], candidate)
	return nil
}

func (r *memoryRunRepo) GetCandidatesByRun(ctx context.Context, runID string) ([]*models.PromptCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidates[runID], nil
}

func (r *memoryRunRepo) GetBestCandidate(ctx context.Context, runID string) (*models.PromptCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	candidates := r.candidates[runID]
	if len(candidates) == 0 {
		return nil, domain.ErrNotFound
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, nil
}

func newTestMemoAssistant(llm ports.LLMService) *services.MemoAssistant {
	return services.NewMemoAssistantWithPrograms(
		prompt.NewCompiledProgram(prompt.MemoTemplate, apps.MemoSeedInstruction, llm),
		prompt.NewCompiledProgram(prompt.RequirementAnalysis, apps.AnalysisSeedInstruction, llm),
	)
}

func newTestWebAnswerAssistant(llm ports.LLMService, search ports.SearchService) *services.WebAnswerAssistant {
	return services.NewWebAnswerAssistantWithProgram(
		prompt.NewCompiledProgram(prompt.WebAnswer, apps.WebAnswerSeedInstruction, llm),
		search, 3,
	)
}
