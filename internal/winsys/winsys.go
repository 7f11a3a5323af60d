package winsys

import "errors"

// ErrUnsupported is returned on platforms without the Win32 surface.
var ErrUnsupported = errors.New("winsys: working-set trimming requires Windows")

// MemoryStatus is a snapshot of system-wide physical memory.
type MemoryStatus struct {
	Load      uint32 // percent of physical memory in use
	TotalPhys uint64
	AvailPhys uint64
}
