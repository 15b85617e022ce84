package prompt

import (
	"fmt"
	"strings"

	"github.com/XiaoConstantine/dspy-go/pkg/core"
)

// Signature wraps a dspy-go signature and keeps the parsed field names
// in declaration order, so prompt rendering does not depend on map
// iteration.
type Signature struct {
	core.Signature
	Name        string
	Description string
	InputNames  []string
	OutputNames []string
}

// MustParseSignature creates a signature from a string or panics
func MustParseSignature(sig string) Signature {
	s, err := ParseSignature(sig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse signature: %v", err))
	}
	return s
}

// ParseSignature creates a signature from a string like
// "input1, input2 -> output1, output2"
func ParseSignature(sig string) (Signature, error) {
	parts := strings.Split(sig, "->")
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature format: %s", sig)
	}

	inputNames := parseFieldNames(strings.TrimSpace(parts[0]))
	outputNames := parseFieldNames(strings.TrimSpace(parts[1]))
	if len(inputNames) == 0 || len(outputNames) == 0 {
		return Signature{}, fmt.Errorf("signature needs at least one input and one output: %s", sig)
	}

	inputs := make([]core.InputField, len(inputNames))
	for i, name := range inputNames {
		inputs[i] = core.InputField{Field: core.NewField(name)}
	}

	outputs := make([]core.OutputField, len(outputNames))
	for i, name := range outputNames {
		outputs[i] = core.OutputField{Field: core.NewField(name)}
	}

	return Signature{
		Signature:   core.NewSignature(inputs, outputs),
		Name:        generateName(sig),
		InputNames:  inputNames,
		OutputNames: outputNames,
	}, nil
}

// String reassembles the canonical signature string
func (s Signature) String() string {
	return strings.Join(s.InputNames, ", ") + " -> " + strings.Join(s.OutputNames, ", ")
}

// parseFieldNames splits comma-separated field declarations, dropping
// any ": type" annotations.
func parseFieldNames(fieldStr string) []string {
	if fieldStr == "" {
		return nil
	}

	parts := strings.Split(fieldStr, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if idx := strings.Index(part, ":"); idx >= 0 {
			part = strings.TrimSpace(part[:idx])
		}
		names = append(names, part)
	}
	return names
}

// generateName creates an identifier from the signature string
func generateName(sig string) string {
	name := strings.ReplaceAll(sig, "->", "_to_")
	name = strings.ReplaceAll(name, ",", "_")
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	return name
}

// Signatures for the two shipped prompt applications
var (
	// MemoTemplate turns free-form requirements into a reusable
	// voice-memo template.
	MemoTemplate = MustParseSignature("requirements -> template")

	// RequirementAnalysis extracts the structured facets of a memo
	// requirement before template generation.
	RequirementAnalysis = MustParseSignature(
		"requirement -> language, style, tone, audience, verbosity",
	)

	// WebAnswer answers a question from retrieved sources with [[n]]
	// citations into the provided context.
	WebAnswer = MustParseSignature("context, question -> answer")
)
