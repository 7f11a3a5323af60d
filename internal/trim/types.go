package trim

import "time"

// ProcessRecord identifies one running process at enumeration time.
// Records are fresh snapshots; nothing is persisted between runs.
type ProcessRecord struct {
	PID   uint32 `json:"pid"`
	Name  string `json:"name"`
	Owner string `json:"owner"`
}

// MemorySample is system-wide available physical memory at an instant.
type MemorySample struct {
	AvailableBytes uint64    `json:"available_bytes"`
	Taken          time.Time `json:"taken"`
}

// Result is the sole output of one trim run. FreedBytes is clamped to
// zero when concurrent allocation outpaces the trim.
type Result struct {
	FreedBytes uint64 `json:"freed_bytes"`
}

// Handle is an open capability on one process, good for a single trim
// attempt. Close releases it and is safe to call exactly once per
// acquisition; the engine never trims a closed handle.
type Handle interface {
	Trim() error
	Close() error
}

// System is the operating system surface one run consumes.
//
// Open attempts the descending access-tier cascade and fails when every
// tier is refused; that failure is an expected outcome, not an error to
// surface. AvailableMemory reads system-wide available physical memory.
// TrimSelf trims the calling process through a pseudo-handle that needs
// no acquisition or release.
type System interface {
	Processes() ([]ProcessRecord, error)
	Open(pid uint32) (Handle, error)
	TrimSelf() error
	AvailableMemory() (uint64, error)
}
