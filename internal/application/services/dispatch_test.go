package services

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt/apps"
)

// stubLLM replays canned responses and records the prompts it saw.
type stubLLM struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (s *stubLLM) Chat(ctx context.Context, messages []ports.LLMMessage) (*ports.LLMResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	if len(s.responses) == 0 {
		return &ports.LLMResponse{Content: ""}, nil
	}
	response := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return &ports.LLMResponse{Content: response}, nil
}

func (s *stubLLM) lastPrompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ""
	}
	return s.prompts[len(s.prompts)-1]
}

// stubSearch returns fixed results for every query
type stubSearch struct {
	results []*ports.SearchResult
	err     error
	queries []string
}

func (s *stubSearch) Search(ctx context.Context, query string, maxResults int) ([]*ports.SearchResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if maxResults < len(s.results) {
		return s.results[:maxResults], nil
	}
	return s.results, nil
}

func (s *stubSearch) SearchWithContent(ctx context.Context, query string, maxResults int) ([]*ports.SearchResult, error) {
	return s.Search(ctx, query, maxResults)
}

func TestMemoAssistant_GenerateTemplate(t *testing.T) {
	llm := &stubLLM{responses: []string{"template: # Daily Standup\n- Yesterday:\n- Today:\n- Blockers:"}}
	generate := prompt.NewCompiledProgram(prompt.MemoTemplate, apps.MemoSeedInstruction, llm)
	analyze := prompt.NewCompiledProgram(prompt.RequirementAnalysis, apps.AnalysisSeedInstruction, llm)
	assistant := NewMemoAssistantWithPrograms(generate, analyze)

	template, err := assistant.GenerateTemplate(context.Background(), "short daily standup notes in English")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(template, "# Daily Standup"))
	assert.Contains(t, llm.lastPrompt(), "short daily standup notes in English")
}

func TestMemoAssistant_GenerateTemplate_EmptyRequirements(t *testing.T) {
	llm := &stubLLM{}
	assistant := NewMemoAssistantWithPrograms(
		prompt.NewCompiledProgram(prompt.MemoTemplate, apps.MemoSeedInstruction, llm),
		prompt.NewCompiledProgram(prompt.RequirementAnalysis, apps.AnalysisSeedInstruction, llm),
	)

	_, err := assistant.GenerateTemplate(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMemoAssistant_AnalyzeRequirement(t *testing.T) {
	llm := &stubLLM{responses: []string{
		"language: German\nstyle: formal\ntone: neutral\naudience: colleagues\nverbosity: concise",
	}}
	assistant := NewMemoAssistantWithPrograms(
		prompt.NewCompiledProgram(prompt.MemoTemplate, apps.MemoSeedInstruction, llm),
		prompt.NewCompiledProgram(prompt.RequirementAnalysis, apps.AnalysisSeedInstruction, llm),
	)

	facets, err := assistant.AnalyzeRequirement(context.Background(), "formelle Notizen für Kollegen")
	require.NoError(t, err)
	assert.Equal(t, "German", facets.Language)
	assert.Equal(t, "formal", facets.Style)
	assert.Equal(t, "concise", facets.Verbosity)
}

func TestWebAnswerAssistant_Answer(t *testing.T) {
	search := &stubSearch{results: []*ports.SearchResult{
		{Title: "Go 1.25 release notes", URL: "https://go.dev/doc/go1.25", Snippet: "Released in August 2025."},
		{Title: "Go blog", URL: "https://go.dev/blog", Snippet: "The Go programming language blog."},
	}}
	llm := &stubLLM{responses: []string{"answer: Go 1.25 was released in August 2025 [[1]]."}}
	program := prompt.NewCompiledProgram(prompt.WebAnswer, apps.WebAnswerSeedInstruction, llm)
	assistant := NewWebAnswerAssistantWithProgram(program, search, 5)

	answer, err := assistant.Answer(context.Background(), "When was Go 1.25 released?")
	require.NoError(t, err)
	assert.Contains(t, answer.Answer, "[[1]]")
	assert.Len(t, answer.Sources, 2)
	assert.Equal(t, []string{"When was Go 1.25 released?"}, search.queries)

	// the numbered context reaches the model
	assert.Contains(t, llm.lastPrompt(), "[[1]] Go 1.25 release notes")
	assert.Contains(t, llm.lastPrompt(), "When was Go 1.25 released?")
}

func TestWebAnswerAssistant_SearchFailure(t *testing.T) {
	search := &stubSearch{err: domain.ErrSearchUnavailable}
	llm := &stubLLM{}
	program := prompt.NewCompiledProgram(prompt.WebAnswer, apps.WebAnswerSeedInstruction, llm)
	assistant := NewWebAnswerAssistantWithProgram(program, search, 5)

	_, err := assistant.Answer(context.Background(), "anything")
	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
}

func TestWebAnswerAssistant_EmptyQuestion(t *testing.T) {
	assistant := NewWebAnswerAssistantWithProgram(
		prompt.NewCompiledProgram(prompt.WebAnswer, apps.WebAnswerSeedInstruction, &stubLLM{}),
		&stubSearch{}, 5,
	)
	_, err := assistant.Answer(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadProgram_FallsBackToSeed(t *testing.T) {
	dir := t.TempDir()
	llm := &stubLLM{responses: []string{"answer: fallback works"}}

	program := loadProgram(dir, "web_answer", prompt.WebAnswer, apps.WebAnswerSeedInstruction, llm)
	require.NotNil(t, program)
	assert.Equal(t, apps.WebAnswerSeedInstruction, program.Instruction)
}

func TestLoadProgram_LoadsSavedArtifact(t *testing.T) {
	dir := t.TempDir()
	llm := &stubLLM{}

	optimized := prompt.NewCompiledProgram(prompt.WebAnswer, "tuned instruction", llm).
		WithProvenance("run_xyz", 0.91)
	require.NoError(t, optimized.Save(ProgramPath(dir, "web_answer")))

	program := loadProgram(dir, "web_answer", prompt.WebAnswer, apps.WebAnswerSeedInstruction, llm)
	assert.Equal(t, "tuned instruction", program.Instruction)
	assert.Equal(t, "run_xyz", program.RunID)
}

func TestLoadProgram_CorruptArtifactFallsBack(t *testing.T) {
	dir := t.TempDir()
	llm := &stubLLM{}

	path := ProgramPath(dir, "web_answer")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	program := loadProgram(dir, "web_answer", prompt.WebAnswer, apps.WebAnswerSeedInstruction, llm)
	assert.Equal(t, apps.WebAnswerSeedInstruction, program.Instruction)
}
