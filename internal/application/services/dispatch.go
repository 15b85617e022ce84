package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/adapters/metrics"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt/apps"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/trainset"
)

// ProgramPath returns where the compiled program artifact for an app lives
func ProgramPath(programDir, app string) string {
	return filepath.Join(programDir, app+".json")
}

// loadProgram loads a compiled program artifact, falling back to the
// seed instruction when no artifact exists yet.
func loadProgram(programDir, app string, sig prompt.Signature, seed string, svc ports.LLMService) *prompt.CompiledProgram {
	path := ProgramPath(programDir, app)
	program, err := prompt.LoadCompiledProgram(path, svc)
	if err != nil {
		if !errors.Is(err, domain.ErrProgramNotCompiled) {
			log.Printf("dispatch: failed to load program artifact %s, using seed instruction: %v", path, err)
		}
		return prompt.NewCompiledProgram(sig, seed, svc)
	}
	log.Printf("dispatch: loaded optimized program for %s (run %s, score %.3f)", app, program.RunID, program.BestScore)
	return program
}

// MemoAssistant turns free-form requirements into reusable voice-memo
// templates, using the optimized program when one has been compiled.
type MemoAssistant struct {
	generate *prompt.CompiledProgram
	analyze  *prompt.CompiledProgram
}

// NewMemoAssistant loads the memo programs from programDir
func NewMemoAssistant(programDir string, llm ports.LLMService) *MemoAssistant {
	return &MemoAssistant{
		generate: loadProgram(programDir, models.AppMemoTemplate, prompt.MemoTemplate, apps.MemoSeedInstruction, llm),
		analyze:  loadProgram(programDir, "requirement_analysis", prompt.RequirementAnalysis, apps.AnalysisSeedInstruction, llm),
	}
}

// NewMemoAssistantWithPrograms wires explicit programs, used by tests
// and by callers that compile in-process.
func NewMemoAssistantWithPrograms(generate, analyze *prompt.CompiledProgram) *MemoAssistant {
	return &MemoAssistant{generate: generate, analyze: analyze}
}

// GenerateTemplate produces a memo template for the given requirements
func (a *MemoAssistant) GenerateTemplate(ctx context.Context, requirements string) (string, error) {
	requirements = strings.TrimSpace(requirements)
	if requirements == "" {
		return "", domain.NewDomainError(domain.ErrInvalidInput, "requirements cannot be empty")
	}
	outputs, err := a.generate.Execute(ctx, map[string]any{"requirements": requirements})
	if err != nil {
		return "", fmt.Errorf("template generation failed: %w", err)
	}
	template, _ := outputs["template"].(string)
	return template, nil
}

// RequirementFacets is the structured breakdown of a memo requirement
type RequirementFacets struct {
	Language  string `json:"language"`
	Style     string `json:"style"`
	Tone      string `json:"tone"`
	Audience  string `json:"audience"`
	Verbosity string `json:"verbosity"`
}

// AnalyzeRequirement extracts the facets of a single memo requirement
func (a *MemoAssistant) AnalyzeRequirement(ctx context.Context, requirement string) (*RequirementFacets, error) {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "requirement cannot be empty")
	}
	outputs, err := a.analyze.Execute(ctx, map[string]any{"requirement": requirement})
	if err != nil {
		return nil, fmt.Errorf("requirement analysis failed: %w", err)
	}
	str := func(name string) string {
		s, _ := outputs[name].(string)
		return s
	}
	return &RequirementFacets{
		Language:  str("language"),
		Style:     str("style"),
		Tone:      str("tone"),
		Audience:  str("audience"),
		Verbosity: str("verbosity"),
	}, nil
}

// WebAnswerAssistant answers questions grounded in fresh web search
// results, citing sources as [[n]].
type WebAnswerAssistant struct {
	program    *prompt.CompiledProgram
	search     ports.SearchService
	corpus     *CorpusService
	maxResults int
}

// NewWebAnswerAssistant loads the web answer program from programDir
func NewWebAnswerAssistant(programDir string, llm ports.LLMService, search ports.SearchService, maxResults int) *WebAnswerAssistant {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebAnswerAssistant{
		program:    loadProgram(programDir, models.AppWebAnswer, prompt.WebAnswer, apps.WebAnswerSeedInstruction, llm),
		search:     search,
		maxResults: maxResults,
	}
}

// NewWebAnswerAssistantWithProgram wires an explicit program
func NewWebAnswerAssistantWithProgram(program *prompt.CompiledProgram, search ports.SearchService, maxResults int) *WebAnswerAssistant {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &WebAnswerAssistant{program: program, search: search, maxResults: maxResults}
}

// WithCorpus stores fetched result pages in the document corpus after
// each answered question.
func (a *WebAnswerAssistant) WithCorpus(corpus *CorpusService) *WebAnswerAssistant {
	a.corpus = corpus
	return a
}

// WebAnswer is a grounded answer together with the sources it cites
type WebAnswer struct {
	Question string                `json:"question"`
	Answer   string                `json:"answer"`
	Sources  []*ports.SearchResult `json:"sources"`
}

// Answer searches the web for the question, builds a numbered context,
// and runs the answer program over it.
func (a *WebAnswerAssistant) Answer(ctx context.Context, question string) (*WebAnswer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.NewDomainError(domain.ErrInvalidInput, "question cannot be empty")
	}

	results, err := a.search.SearchWithContent(ctx, question, a.maxResults)
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("web search failed: %w", err)
	}
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()

	if a.corpus != nil {
		a.corpus.Index(ctx, results)
	}

	outputs, err := a.program.Execute(ctx, map[string]any{
		"context":  trainset.FormatContext(results),
		"question": question,
	})
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}
	answer, _ := outputs["answer"].(string)

	return &WebAnswer{
		Question: question,
		Answer:   answer,
		Sources:  results,
	}, nil
}
