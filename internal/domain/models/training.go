package models

import "time"

// TrainingExample represents one example persisted for prompt optimization.
// Inputs hold the fields presented to the program, Outputs hold the gold
// labels (empty for examples mined from search, which only carry inputs).
type TrainingExample struct {
	ID        string         `json:"id"`
	App       string         `json:"app"`
	Inputs    map[string]any `json:"inputs"`
	Outputs   map[string]any `json:"outputs"`
	Source    string         `json:"source"` // seed, search, manual
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

// Training example source constants
const (
	SourceSeed   = "seed"
	SourceSearch = "search"
	SourceManual = "manual"
)

// NewTrainingExample creates a new training example
func NewTrainingExample(id, app, source string, inputs, outputs map[string]any) *TrainingExample {
	return &TrainingExample{
		ID:        id,
		App:       app,
		Inputs:    inputs,
		Outputs:   outputs,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}
