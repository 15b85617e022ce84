package ports

// OptimizationProgress is one progress event emitted during a run
type OptimizationProgress struct {
	RunID      string  `json:"run_id"`
	Stage      string  `json:"stage"` // "started", "compiling", "validating", "completed", "failed"
	Generation int     `json:"generation,omitempty"`
	BestScore  float64 `json:"best_score,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// OptimizationProgressPublisher fans progress events out to subscribers.
// Subscribe returns a receive channel and an unsubscribe function; the
// channel is closed when the run finishes or the subscriber unsubscribes.
type OptimizationProgressPublisher interface {
	Subscribe(runID string) (<-chan *OptimizationProgress, func())
	Publish(progress *OptimizationProgress)
	Close(runID string)
}
