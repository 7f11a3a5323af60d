// Package sysinfo samples system-wide memory and CPU utilization for
// display by external UI clients.
package sysinfo

import (
	"sync"

	"github.com/memsweep/memsweep/internal/winsys"
)

// Stats is one utilization snapshot.
type Stats struct {
	MemoryPercent  float64 `json:"memory_percent"`
	CPUPercent     float64 `json:"cpu_percent"`
	AvailableBytes uint64  `json:"available_bytes"`
	TotalBytes     uint64  `json:"total_bytes"`
}

// Provider produces utilization snapshots. CPU usage is derived from
// the delta between consecutive samples, so the first sample after
// construction reports zero.
type Provider struct {
	mu        sync.Mutex
	lastIdle  uint64
	lastTotal uint64
	primed    bool
}

// NewProvider creates a provider and primes the CPU counters.
func NewProvider() *Provider {
	p := &Provider{}
	p.Sample() // prime; errors surface on the next call
	return p
}

// Sample reads current memory load and CPU usage.
func (p *Provider) Sample() (Stats, error) {
	mem, err := winsys.QueryMemoryStatus()
	if err != nil {
		return Stats{}, err
	}
	idle, kernel, user, err := winsys.QuerySystemTimes()
	if err != nil {
		return Stats{}, err
	}

	// Kernel time includes idle time, so kernel+user covers every tick.
	total := kernel + user

	p.mu.Lock()
	var cpu float64
	if p.primed {
		cpu = cpuPercent(idle-p.lastIdle, total-p.lastTotal)
	}
	p.lastIdle = idle
	p.lastTotal = total
	p.primed = true
	p.mu.Unlock()

	return Stats{
		MemoryPercent:  float64(mem.Load),
		CPUPercent:     cpu,
		AvailableBytes: mem.AvailPhys,
		TotalBytes:     mem.TotalPhys,
	}, nil
}

// cpuPercent converts idle and total tick deltas into busy percent.
func cpuPercent(idleDelta, totalDelta uint64) float64 {
	if totalDelta == 0 || idleDelta >= totalDelta {
		return 0
	}
	return float64(totalDelta-idleDelta) / float64(totalDelta) * 100
}
