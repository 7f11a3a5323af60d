package trim

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memsweep/memsweep/internal/infrastructure/logging"
)

// ErrBusy is returned by Start while a run is already in flight.
var ErrBusy = errors.New("trim run already in flight")

// Completion pairs a run identifier with its result.
type Completion struct {
	RunID  string `json:"run_id"`
	Result Result `json:"result"`
}

// Runner executes trim runs off the calling goroutine, one at a time:
// Idle -> Running -> Idle, with the result delivered on the transition
// back to Idle. Start while Running is rejected with ErrBusy, so
// single-flight holds even if a caller forgets to disable its trigger.
type Runner struct {
	engine *Engine
	logger *logging.Logger

	mu      sync.Mutex
	running bool
}

// NewRunner creates a runner for the given engine.
func NewRunner(engine *Engine, logger *logging.Logger) *Runner {
	return &Runner{engine: engine, logger: logger}
}

// Start begins a run if the runner is idle. The returned channel is
// buffered and receives exactly one Completion, so the run never blocks
// on a slow observer.
func (r *Runner) Start() (string, <-chan Completion, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", nil, ErrBusy
	}
	r.running = true
	r.mu.Unlock()

	runID := uuid.NewString()
	r.logger.Info("trim run started", zap.String("run_id", runID))

	ch := make(chan Completion, 1)
	go func() {
		result := r.engine.Run()

		r.mu.Lock()
		r.running = false
		r.mu.Unlock()

		ch <- Completion{RunID: runID, Result: result}
	}()

	return runID, ch, nil
}

// Running reports whether a run is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}
