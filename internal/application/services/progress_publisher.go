package services

import (
	"sync"

	"github.com/diqiuzhuanzhuan/openllm-prompt-mender/internal/ports"
)

// ProgressPublisher fans optimization progress events out to
// subscribers, one channel list per run.
type ProgressPublisher struct {
	mu       sync.RWMutex
	channels map[string][]chan *ports.OptimizationProgress
}

var _ ports.OptimizationProgressPublisher = (*ProgressPublisher)(nil)

func NewProgressPublisher() *ProgressPublisher {
	return &ProgressPublisher{
		channels: make(map[string][]chan *ports.OptimizationProgress),
	}
}

// Subscribe registers a buffered channel for a run's events and returns
// it together with an unsubscribe function.
func (p *ProgressPublisher) Subscribe(runID string) (<-chan *ports.OptimizationProgress, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch := make(chan *ports.OptimizationProgress, 64)
	p.channels[runID] = append(p.channels[runID], ch)

	unsubscribe := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		channels := p.channels[runID]
		for i, sub := range channels {
			if sub == ch {
				p.channels[runID] = append(channels[:i], channels[i+1:]...)
				close(sub)
				break
			}
		}
		if len(p.channels[runID]) == 0 {
			delete(p.channels, runID)
		}
	}
	return ch, unsubscribe
}

// Publish delivers an event to every subscriber of the run. Sends are
// non-blocking so one slow consumer cannot stall the optimizer.
func (p *ProgressPublisher) Publish(progress *ports.OptimizationProgress) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ch := range p.channels[progress.RunID] {
		select {
		case ch <- progress:
		default:
		}
	}
}

// Close closes all channels for a run
func (p *ProgressPublisher) Close(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.channels[runID] {
		close(ch)
	}
	delete(p.channels, runID)
}

// SubscriberCount reports active subscribers for a run
func (p *ProgressPublisher) SubscriberCount(runID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.channels[runID])
}
