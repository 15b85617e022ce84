package domain

import "errors"

// Common domain errors
var (
	// Trainset errors
	ErrTrainsetNotFound  = errors.New("trainset file not found")
	ErrMalformedExample  = errors.New("malformed trainset record")
	ErrUnsupportedValue  = errors.New("unsupported field value type")
	ErrUnknownInputField = errors.New("input key not present in example")

	// Evaluation errors
	ErrJudgeUnavailable = errors.New("judge LLM unavailable")
	ErrMissingCriterion = errors.New("criterion missing from judge response")
	ErrMalformedVerdict = errors.New("malformed judge verdict")
	ErrEvaluationFailed = errors.New("evaluation failed")

	// Program errors
	ErrProgramNotCompiled = errors.New("program has no compiled artifact")
	ErrMissingInput       = errors.New("required input field missing")
	ErrMissingOutput      = errors.New("output field missing from completion")

	// Optimization errors
	ErrRunNotFound     = errors.New("optimization run not found")
	ErrEmptyTrainset   = errors.New("trainset is empty")
	ErrRunStillRunning = errors.New("optimization run still in progress")

	// LLM errors
	ErrLLMUnavailable       = errors.New("LLM service unavailable")
	ErrLLMRequestFailed     = errors.New("LLM request failed")
	ErrEmbeddingUnavailable = errors.New("embedding service not configured")

	// Search errors
	ErrSearchUnavailable = errors.New("search backend unavailable")
	ErrNoSearchResults   = errors.New("search returned no results")

	// Validation errors
	ErrInvalidID    = errors.New("invalid ID format")
	ErrEmptyContent = errors.New("content cannot be empty")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
)

// DomainError wraps a domain error with additional context
type DomainError struct {
	Err     error
	Message string
	Code    string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func NewDomainError(err error, message string) *DomainError {
	return &DomainError{
		Err:     err,
		Message: message,
	}
}
