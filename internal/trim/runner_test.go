package trim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memsweep/memsweep/internal/infrastructure/logging"
)

// blockingSystem parks the run until released so tests can observe the
// Running state.
type blockingSystem struct {
	fakeSystem
	release chan struct{}
}

func (b *blockingSystem) TrimSelf() error {
	<-b.release
	return nil
}

func newTestRunner(sys System) *Runner {
	return NewRunner(NewEngine(sys, logging.NewNop()), logging.NewNop())
}

func TestRunnerDeliversSingleResult(t *testing.T) {
	sys := &fakeSystem{
		procs:   procs(100),
		samples: []uint64{1_000, 4_000},
	}
	runner := newTestRunner(sys)

	runID, ch, err := runner.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	select {
	case completion := <-ch:
		assert.Equal(t, runID, completion.RunID)
		assert.Equal(t, uint64(3_000), completion.Result.FreedBytes)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestRunnerRejectsConcurrentStart(t *testing.T) {
	sys := &blockingSystem{
		fakeSystem: fakeSystem{samples: []uint64{1, 1}},
		release:    make(chan struct{}),
	}
	runner := newTestRunner(sys)

	_, ch, err := runner.Start()
	require.NoError(t, err)
	assert.True(t, runner.Running())

	_, _, err = runner.Start()
	assert.ErrorIs(t, err, ErrBusy)

	close(sys.release)
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

func TestRunnerIsReusableAfterCompletion(t *testing.T) {
	sys := &fakeSystem{samples: []uint64{1, 1, 1, 1}}
	runner := newTestRunner(sys)

	for i := 0; i < 2; i++ {
		_, ch, err := runner.Start()
		require.NoError(t, err)

		select {
		case <-ch:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for completion")
		}

		// The goroutine flips running=false before delivering, so a
		// received completion implies the runner is idle again.
		assert.False(t, runner.Running())
	}
}
