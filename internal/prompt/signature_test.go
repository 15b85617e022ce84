package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignature(t *testing.T) {
	sig, err := ParseSignature("context, question -> answer")
	require.NoError(t, err)
	assert.Equal(t, []string{"context", "question"}, sig.InputNames)
	assert.Equal(t, []string{"answer"}, sig.OutputNames)
}

func TestParseSignature_TypeAnnotationsDropped(t *testing.T) {
	sig, err := ParseSignature("requirement: str -> language: str, tone: str")
	require.NoError(t, err)
	assert.Equal(t, []string{"requirement"}, sig.InputNames)
	assert.Equal(t, []string{"language", "tone"}, sig.OutputNames)
}

func TestParseSignature_Invalid(t *testing.T) {
	cases := []string{
		"",
		"a, b",
		"-> out",
		"in ->",
		"a -> b -> c",
	}
	for _, raw := range cases {
		_, err := ParseSignature(raw)
		assert.Error(t, err, "expected parse failure for %q", raw)
	}
}

func TestSignature_String(t *testing.T) {
	sig := MustParseSignature("context, question -> answer")
	assert.Equal(t, "context, question -> answer", sig.String())
}

func TestPredefinedSignatures(t *testing.T) {
	assert.Equal(t, []string{"requirements"}, MemoTemplate.InputNames)
	assert.Equal(t, []string{"template"}, MemoTemplate.OutputNames)

	assert.Equal(t, []string{"requirement"}, RequirementAnalysis.InputNames)
	assert.Equal(t, []string{"language", "style", "tone", "audience", "verbosity"}, RequirementAnalysis.OutputNames)

	assert.Equal(t, []string{"context", "question"}, WebAnswer.InputNames)
	assert.Equal(t, []string{"answer"}, WebAnswer.OutputNames)
}
