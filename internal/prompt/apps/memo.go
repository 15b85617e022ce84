// Package apps defines the shipped prompt applications: the voice-memo
// template generator and the web-search answer assistant. Each app
// contributes a signature, a seed instruction, and the judge rubric
// its optimization metric scores against.
package apps

import (
	"fmt"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
)

// MemoSeedInstruction is the starting instruction for the memo
// template generator before any optimization has run.
const MemoSeedInstruction = `You are a voice-memo template designer. Given free-form requirements, produce a reusable memo template.

The template must match the language of the requirements, use the requested tone and style, fit the described scenario and audience, and use placeholders like [topic] for the parts the speaker fills in each time. Output the template only, with no commentary.`

// AnalysisSeedInstruction drives the requirement analysis step that
// extracts the structured facets of a memo request.
const AnalysisSeedInstruction = `Analyze the memo requirement and extract its facets. For each output field give a short phrase: the language the memo should be written in, the writing style, the tone, the intended audience, and how verbose the memo should be.`

// MemoRubric scores a generated template on six float criteria. The
// aggregate is their unweighted mean, so each dimension carries equal
// weight.
var MemoRubric = prompt.Rubric{
	Subject: "voice-memo template generated from the requirements",
	Criteria: []prompt.Criterion{
		{Name: "general_score", Description: "overall quality and usability of the template"},
		{Name: "tone_score", Description: "how well the tone matches the requirements"},
		{Name: "scenario_alignment_score", Description: "how well the template fits the described scenario"},
		{Name: "audience_match_score", Description: "how appropriate the template is for the stated audience"},
		{Name: "language_consistency_score", Description: "whether the template is written in the same language as the requirements"},
		{Name: "language_appropriateness_score", Description: "whether the register and phrasing suit that language"},
	},
}

// LanguageConsistencyThreshold flags verdicts where the template
// drifted away from the requirement language.
const LanguageConsistencyThreshold = 0.5

// ExtractMemoFields pulls the requirements and the generated template
// into the judge prompt.
func ExtractMemoFields(gold, pred prompt.Example) ([]prompt.JudgeField, error) {
	requirements, ok := gold.Inputs["requirements"].(string)
	if !ok || requirements == "" {
		return nil, fmt.Errorf("gold example missing requirements input")
	}
	template, ok := pred.Outputs["template"].(string)
	if !ok || template == "" {
		return nil, fmt.Errorf("prediction missing template output")
	}
	return []prompt.JudgeField{
		{Name: "requirements", Value: requirements},
		{Name: "template", Value: template},
	}, nil
}

// NewMemoJudge builds the optimization metric for the memo template
// app. Low language consistency is logged as a diagnostic because it
// signals systematic drift rather than one bad sample.
func NewMemoJudge(judge ports.LLMService, opts ...prompt.JudgeOption) *prompt.JudgeMetric {
	opts = append([]prompt.JudgeOption{
		prompt.WithDiagnostic("language_consistency_score", LanguageConsistencyThreshold),
	}, opts...)
	return prompt.NewJudgeMetric(judge, MemoRubric, ExtractMemoFields, opts...)
}
