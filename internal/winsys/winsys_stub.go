//go:build !windows

package winsys

import "github.com/memsweep/memsweep/internal/trim"

// System is a placeholder on platforms without the Win32 surface.
type System struct{}

// New fails on non-Windows platforms.
func New() (*System, error) {
	return nil, ErrUnsupported
}

func (s *System) Processes() ([]trim.ProcessRecord, error) { return nil, ErrUnsupported }
func (s *System) Open(pid uint32) (trim.Handle, error)     { return nil, ErrUnsupported }
func (s *System) TrimSelf() error                          { return ErrUnsupported }
func (s *System) AvailableMemory() (uint64, error)         { return 0, ErrUnsupported }

// QueryMemoryStatus is not implemented on this platform.
func QueryMemoryStatus() (MemoryStatus, error) {
	return MemoryStatus{}, ErrUnsupported
}

// QuerySystemTimes is not implemented on this platform.
func QuerySystemTimes() (idle, kernel, user uint64, err error) {
	return 0, 0, 0, ErrUnsupported
}
