package apps

import (
	"fmt"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
)

// WebAnswerSeedInstruction is the starting instruction for the
// web-search answer assistant.
const WebAnswerSeedInstruction = `Answer the question using only the numbered sources in the context. Write the answer in the same language as the question and cite the sources you used inline as [[n]], where n is the source number. If the context does not contain the answer, say so instead of guessing.`

// WebAnswerRubric scores an answer on three boolean criteria. Each
// criterion counts as 1 or 0 and the aggregate is their mean.
var WebAnswerRubric = prompt.Rubric{
	Subject: "answer produced from the retrieved context",
	Criteria: []prompt.Criterion{
		{Name: "is_grounded", Description: "every claim in the answer is supported by the context", Boolean: true},
		{Name: "language_match", Description: "the answer is written in the same language as the question", Boolean: true},
		{Name: "citation_correct", Description: "each [[n]] citation points at a source that supports the claim", Boolean: true},
	},
}

// ExtractWebAnswerFields shows the judge the context, the question,
// and the produced answer.
func ExtractWebAnswerFields(gold, pred prompt.Example) ([]prompt.JudgeField, error) {
	context, ok := gold.Inputs["context"].(string)
	if !ok || context == "" {
		return nil, fmt.Errorf("gold example missing context input")
	}
	question, ok := gold.Inputs["question"].(string)
	if !ok || question == "" {
		return nil, fmt.Errorf("gold example missing question input")
	}
	answer, ok := pred.Outputs["answer"].(string)
	if !ok || answer == "" {
		return nil, fmt.Errorf("prediction missing answer output")
	}
	return []prompt.JudgeField{
		{Name: "context", Value: context},
		{Name: "question", Value: question},
		{Name: "answer", Value: answer},
	}, nil
}

// NewWebAnswerJudge builds the optimization metric for the web answer
// app.
func NewWebAnswerJudge(judge ports.LLMService, opts ...prompt.JudgeOption) *prompt.JudgeMetric {
	return prompt.NewJudgeMetric(judge, WebAnswerRubric, ExtractWebAnswerFields, opts...)
}
