package services

import (
	"fmt"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/domain/models"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt"
	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/prompt/apps"
)

// BuildSpec assembles the optimization spec for a known app: its
// signature, seed instruction, judge metric, and stored trainset.
func BuildSpec(app string, judge ports.LLMService, trainsets *TrainsetService) (OptimizationSpec, error) {
	switch app {
	case models.AppMemoTemplate:
		examples, err := trainsets.LoadForOptimization(app, "requirements")
		if err != nil {
			return OptimizationSpec{}, err
		}
		return OptimizationSpec{
			App:             app,
			Signature:       prompt.MemoTemplate,
			SeedInstruction: apps.MemoSeedInstruction,
			Metric:          apps.NewMemoJudge(judge),
			Trainset:        examples,
		}, nil

	case models.AppWebAnswer:
		examples, err := trainsets.LoadForOptimization(app, "context", "question")
		if err != nil {
			return OptimizationSpec{}, err
		}
		return OptimizationSpec{
			App:             app,
			Signature:       prompt.WebAnswer,
			SeedInstruction: apps.WebAnswerSeedInstruction,
			Metric:          apps.NewWebAnswerJudge(judge),
			Trainset:        examples,
		}, nil

	default:
		return OptimizationSpec{}, fmt.Errorf("%w: unknown app %q", domain.ErrInvalidInput, app)
	}
}

// KnownApps lists the prompt applications that can be optimized
func KnownApps() []string {
	return []string{models.AppMemoTemplate, models.AppWebAnswer}
}
