package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// Demo is one worked example embedded in a compiled program
type Demo struct {
	Inputs  map[string]any `json:"inputs"`
	Outputs map[string]any `json:"outputs,omitempty"`
}

// CompiledProgram is a runnable prompt program: a signature, an
// instruction (optimized or seed), and optional demos. The artifact
// serializes to JSON so optimized instructions survive process
// restarts. A loaded program is immutable and safe for concurrent
// Execute calls.
type CompiledProgram struct {
	SignatureStr string    `json:"signature"`
	Instruction  string    `json:"instruction"`
	Demos        []Demo    `json:"demos,omitempty"`
	BestScore    float64   `json:"best_score,omitempty"`
	RunID        string    `json:"run_id,omitempty"`
	CompiledAt   time.Time `json:"compiled_at"`

	sig Signature
	svc ports.LLMService
}

// NewCompiledProgram creates a program from a signature and
// instruction. Uncompiled applications use this with their seed
// instruction; optimization produces one with the winning candidate.
func NewCompiledProgram(sig Signature, instruction string, svc ports.LLMService) *CompiledProgram {
	return &CompiledProgram{
		SignatureStr: sig.String(),
		Instruction:  instruction,
		CompiledAt:   time.Now().UTC(),
		sig:          sig,
		svc:          svc,
	}
}

// Signature returns the parsed signature
func (p *CompiledProgram) Signature() Signature {
	return p.sig
}

// WithDemos attaches worked examples rendered into every prompt
func (p *CompiledProgram) WithDemos(demos []Demo) *CompiledProgram {
	p.Demos = demos
	return p
}

// WithProvenance records which optimization run produced the program
func (p *CompiledProgram) WithProvenance(runID string, bestScore float64) *CompiledProgram {
	p.RunID = runID
	p.BestScore = bestScore
	return p
}

// Save writes the program artifact as indented JSON
func (p *CompiledProgram) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create program directory: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode program: %w", err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write program: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace program file: %w", err)
	}
	return nil
}

// LoadCompiledProgram reads a program artifact and binds it to an LLM
// service.
func LoadCompiledProgram(path string, svc ports.LLMService) (*CompiledProgram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProgramNotCompiled, path)
		}
		return nil, fmt.Errorf("failed to read program: %w", err)
	}

	var p CompiledProgram
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode program %s: %w", path, err)
	}

	sig, err := ParseSignature(p.SignatureStr)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", path, err)
	}

	p.sig = sig
	p.svc = svc
	return &p, nil
}

// Execute runs the program on the inputs and returns one value per
// output field of the signature.
func (p *CompiledProgram) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	for _, name := range p.sig.InputNames {
		if _, ok := inputs[name]; !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrMissingInput, name)
		}
	}

	prompt := p.buildPrompt(inputs)
	resp, err := p.svc.Chat(ctx, []ports.LLMMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("program execution failed: %w", err)
	}

	return p.parseOutputs(resp.Content)
}

func (p *CompiledProgram) buildPrompt(inputs map[string]any) string {
	var sb strings.Builder

	sb.WriteString(p.Instruction)
	sb.WriteString("\n")

	if len(p.sig.OutputNames) == 1 {
		fmt.Fprintf(&sb, "\nRespond with the %s only.\n", p.sig.OutputNames[0])
	} else {
		fmt.Fprintf(&sb, "\nRespond with one line per output field, in the form \"name: value\", for: %s.\n",
			strings.Join(p.sig.OutputNames, ", "))
	}

	for _, demo := range p.Demos {
		sb.WriteString("\n---\n\n")
		for _, name := range p.sig.InputNames {
			if v, ok := demo.Inputs[name]; ok {
				fmt.Fprintf(&sb, "%s: %v\n", name, v)
			}
		}
		for _, name := range p.sig.OutputNames {
			if v, ok := demo.Outputs[name]; ok {
				fmt.Fprintf(&sb, "%s: %v\n", name, v)
			}
		}
	}

	sb.WriteString("\n---\n\n")
	for _, name := range p.sig.InputNames {
		fmt.Fprintf(&sb, "%s: %v\n", name, inputs[name])
	}

	return sb.String()
}

func (p *CompiledProgram) parseOutputs(content string) (map[string]any, error) {
	names := p.sig.OutputNames
	content = strings.TrimSpace(content)

	if len(names) == 1 {
		value := content
		prefix := strings.ToLower(names[0]) + ":"
		if strings.HasPrefix(strings.ToLower(value), prefix) {
			value = strings.TrimSpace(value[len(prefix):])
		}
		if value == "" {
			return nil, fmt.Errorf("%w: %q", domain.ErrMissingOutput, names[0])
		}
		return map[string]any{names[0]: value}, nil
	}

	collected := make(map[string][]string, len(names))
	current := ""
	for _, rawLine := range strings.Split(content, "\n") {
		line := strings.TrimSpace(rawLine)
		lower := strings.ToLower(line)

		matched := false
		for _, name := range names {
			prefix := strings.ToLower(name) + ":"
			if strings.HasPrefix(lower, prefix) {
				current = name
				if rest := strings.TrimSpace(line[len(prefix):]); rest != "" {
					collected[name] = append(collected[name], rest)
				}
				matched = true
				break
			}
		}
		if !matched && current != "" && line != "" {
			collected[current] = append(collected[current], line)
		}
	}

	outputs := make(map[string]any, len(names))
	for _, name := range names {
		lines, ok := collected[name]
		if !ok || len(lines) == 0 {
			return nil, fmt.Errorf("%w: %q", domain.ErrMissingOutput, name)
		}
		outputs[name] = strings.Join(lines, "\n")
	}
	return outputs, nil
}
