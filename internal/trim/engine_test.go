package trim

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/memsweep/memsweep/internal/infrastructure/logging"
)

var errRefused = errors.New("access denied")

type fakeHandle struct {
	pid     uint32
	sys     *fakeSystem
	trimErr error
	closed  bool
}

func (h *fakeHandle) Trim() error {
	if h.closed {
		h.sys.trimmedAfterClose = append(h.sys.trimmedAfterClose, h.pid)
	}
	h.sys.trims = append(h.sys.trims, h.pid)
	return h.trimErr
}

func (h *fakeHandle) Close() error {
	if h.closed {
		h.sys.doubleCloses = append(h.sys.doubleCloses, h.pid)
	}
	h.closed = true
	h.sys.closes = append(h.sys.closes, h.pid)
	return nil
}

// fakeSystem is an instrumented System: it records every open, trim and
// close so tests can assert the handle discipline.
type fakeSystem struct {
	procs   []ProcessRecord
	enumErr error

	openErr map[uint32]error // per-pid acquisition refusal
	trimErr map[uint32]error // per-pid trim refusal

	samples    []uint64 // successive AvailableMemory returns
	sampleErrs []error  // parallel errors; nil entry means success
	sampleIdx  int

	selfTrims   int
	selfTrimErr error

	opens             []uint32
	trims             []uint32
	closes            []uint32
	doubleCloses      []uint32
	trimmedAfterClose []uint32
}

func (f *fakeSystem) Processes() ([]ProcessRecord, error) {
	return f.procs, f.enumErr
}

func (f *fakeSystem) Open(pid uint32) (Handle, error) {
	f.opens = append(f.opens, pid)
	if err, ok := f.openErr[pid]; ok {
		return nil, err
	}
	return &fakeHandle{pid: pid, sys: f, trimErr: f.trimErr[pid]}, nil
}

func (f *fakeSystem) TrimSelf() error {
	f.selfTrims++
	return f.selfTrimErr
}

func (f *fakeSystem) AvailableMemory() (uint64, error) {
	i := f.sampleIdx
	f.sampleIdx++
	if i >= len(f.samples) {
		return 0, errors.New("unexpected extra memory sample")
	}
	if f.sampleErrs != nil && f.sampleErrs[i] != nil {
		return 0, f.sampleErrs[i]
	}
	return f.samples[i], nil
}

func newTestEngine(sys System) *Engine {
	return NewEngine(sys, logging.NewNop())
}

func procs(pids ...uint32) []ProcessRecord {
	records := make([]ProcessRecord, 0, len(pids))
	for _, pid := range pids {
		records = append(records, ProcessRecord{
			PID:   pid,
			Name:  fmt.Sprintf("proc-%d.exe", pid),
			Owner: `HOST\user`,
		})
	}
	return records
}

func TestRunReportsFreedDelta(t *testing.T) {
	sys := &fakeSystem{
		procs:   procs(100, 200, 300),
		samples: []uint64{2_000_000_000, 2_300_000_000},
	}

	result := newTestEngine(sys).Run()

	assert.Equal(t, uint64(300_000_000), result.FreedBytes)
}

func TestRunClampsNegativeDeltaToZero(t *testing.T) {
	// Other activity consumed more than the trim freed.
	sys := &fakeSystem{
		procs:   procs(100),
		samples: []uint64{2_000_000_000, 1_950_000_000},
	}

	result := newTestEngine(sys).Run()

	assert.Equal(t, uint64(0), result.FreedBytes)
}

func TestRunSkipsReservedPIDs(t *testing.T) {
	sys := &fakeSystem{
		procs:   procs(0, 4, 100),
		samples: []uint64{1, 1},
	}

	newTestEngine(sys).Run()

	assert.Equal(t, []uint32{100}, sys.opens, "pids 0 and 4 must never be opened")
	assert.Equal(t, []uint32{100}, sys.trims)
}

func TestRunClosesHandleExactlyOnceWhenTrimFails(t *testing.T) {
	sys := &fakeSystem{
		procs:   procs(100),
		trimErr: map[uint32]error{100: errRefused},
		samples: []uint64{1, 1},
	}

	result := newTestEngine(sys).Run()

	assert.Equal(t, []uint32{100}, sys.closes, "handle must be closed after a failed trim")
	assert.Empty(t, sys.doubleCloses)
	assert.Empty(t, sys.trimmedAfterClose)
	assert.Equal(t, uint64(0), result.FreedBytes)
}

func TestRunClosesEveryAcquiredHandle(t *testing.T) {
	sys := &fakeSystem{
		procs: procs(100, 200, 300),
		openErr: map[uint32]error{
			200: errRefused,
		},
		trimErr: map[uint32]error{300: errRefused},
		samples: []uint64{1, 1},
	}

	newTestEngine(sys).Run()

	// 200 never opened, so never closed; 100 and 300 both released.
	assert.ElementsMatch(t, []uint32{100, 300}, sys.closes)
	assert.Empty(t, sys.doubleCloses)
}

func TestRunCompletesWhenAllAcquisitionsRefused(t *testing.T) {
	records := procs(100, 200, 300)
	sys := &fakeSystem{
		procs: records,
		openErr: map[uint32]error{
			100: errRefused,
			200: errRefused,
			300: errRefused,
		},
		samples: []uint64{1_000_000, 1_000_000},
	}

	result := newTestEngine(sys).Run()

	assert.Equal(t, uint64(0), result.FreedBytes)
	assert.Empty(t, sys.trims)
	assert.Empty(t, sys.closes)
}

func TestRunAlwaysTrimsSelf(t *testing.T) {
	sys := &fakeSystem{
		procs: procs(100),
		openErr: map[uint32]error{
			100: errRefused,
		},
		samples: []uint64{1, 1},
	}

	newTestEngine(sys).Run()

	assert.Equal(t, 1, sys.selfTrims, "own process is trimmed in every run")
}

func TestRunContinuesAfterSelfTrimFailure(t *testing.T) {
	sys := &fakeSystem{
		procs:       procs(100),
		selfTrimErr: errRefused,
		samples:     []uint64{1_000, 2_000},
	}

	result := newTestEngine(sys).Run()

	assert.Equal(t, []uint32{100}, sys.trims, "run continues past a self-trim refusal")
	assert.Equal(t, uint64(1_000), result.FreedBytes)
}

func TestRunSurvivesEnumerationFailure(t *testing.T) {
	sys := &fakeSystem{
		enumErr: errors.New("snapshot failed"),
		samples: []uint64{1_000, 3_000},
	}

	result := newTestEngine(sys).Run()

	assert.Equal(t, 1, sys.selfTrims)
	assert.Equal(t, uint64(2_000), result.FreedBytes)
}

func TestRunAggregatesPartialSuccess(t *testing.T) {
	var records []ProcessRecord
	openErr := make(map[uint32]error)
	for pid := uint32(1000); pid < 1050; pid++ {
		records = append(records, ProcessRecord{PID: pid, Name: "p.exe"})
		if pid >= 1003 {
			openErr[pid] = errRefused
		}
	}
	sys := &fakeSystem{
		procs:   records,
		openErr: openErr,
		samples: []uint64{5_000_000, 9_000_000},
	}

	result := newTestEngine(sys).Run()

	// 3 trims succeed, 47 refuse; still one aggregate figure.
	assert.Len(t, sys.trims, 3)
	assert.Equal(t, uint64(4_000_000), result.FreedBytes)
}

func TestRunReportsZeroWhenSamplingFails(t *testing.T) {
	tests := []struct {
		name       string
		sampleErrs []error
	}{
		{"before fails", []error{errors.New("no data"), nil}},
		{"after fails", []error{nil, errors.New("no data")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys := &fakeSystem{
				procs:      procs(100),
				samples:    []uint64{1_000, 9_000},
				sampleErrs: tt.sampleErrs,
			}

			result := newTestEngine(sys).Run()

			assert.Equal(t, uint64(0), result.FreedBytes)
			assert.Equal(t, []uint32{100}, sys.trims, "trimming still happens")
		})
	}
}

func TestRunSamplesBracketTrimming(t *testing.T) {
	sys := &fakeSystem{
		procs:   procs(100),
		samples: []uint64{1, 1},
	}

	newTestEngine(sys).Run()

	// Exactly two samples per run: one before, one after.
	assert.Equal(t, 2, sys.sampleIdx)
}
