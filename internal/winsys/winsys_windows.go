//go:build windows

package winsys

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/memsweep/memsweep/internal/trim"
)

// Access tiers for working-set trimming: full query first, then the
// limited query some processes still grant alongside set-quota.
const (
	accessFull    = windows.PROCESS_QUERY_INFORMATION | windows.PROCESS_SET_QUOTA
	accessLimited = windows.PROCESS_QUERY_LIMITED_INFORMATION | windows.PROCESS_SET_QUOTA
)

var (
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")
	modpsapi    = windows.NewLazySystemDLL("psapi.dll")

	procGlobalMemoryStatusEx = modkernel32.NewProc("GlobalMemoryStatusEx")
	procGetSystemTimes       = modkernel32.NewProc("GetSystemTimes")
	procEmptyWorkingSet      = modpsapi.NewProc("EmptyWorkingSet")
)

// System implements trim.System over the Win32 APIs.
type System struct{}

// New creates the Windows system surface.
func New() (*System, error) {
	return &System{}, nil
}

// Open acquires a handle sufficient to trim a process's working set,
// cascading from full to limited query rights. Refusal at both tiers is
// the expected outcome for protected or foreign-session processes.
func (s *System) Open(pid uint32) (trim.Handle, error) {
	h, err := windows.OpenProcess(accessFull, false, pid)
	if err != nil {
		h, err = windows.OpenProcess(accessLimited, false, pid)
	}
	if err != nil {
		return nil, err
	}
	return &handle{h: h}, nil
}

// TrimSelf empties the working set of the current process. The
// pseudo-handle needs no release.
func (s *System) TrimSelf() error {
	return emptyWorkingSet(windows.CurrentProcess())
}

// AvailableMemory returns system-wide available physical memory.
func (s *System) AvailableMemory() (uint64, error) {
	st, err := QueryMemoryStatus()
	if err != nil {
		return 0, err
	}
	return st.AvailPhys, nil
}

// handle is an open process capability, valid for one trim attempt.
type handle struct {
	h      windows.Handle
	closed bool
}

func (h *handle) Trim() error {
	if h.closed {
		return windows.ERROR_INVALID_HANDLE
	}
	return emptyWorkingSet(h.h)
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return windows.CloseHandle(h.h)
}

func emptyWorkingSet(h windows.Handle) error {
	r1, _, err := procEmptyWorkingSet.Call(uintptr(h))
	if r1 == 0 {
		return err
	}
	return nil
}

// memoryStatusEx mirrors the Win32 MEMORYSTATUSEX layout.
type memoryStatusEx struct {
	Length               uint32
	MemoryLoad           uint32
	TotalPhys            uint64
	AvailPhys            uint64
	TotalPageFile        uint64
	AvailPageFile        uint64
	TotalVirtual         uint64
	AvailVirtual         uint64
	AvailExtendedVirtual uint64
}

// QueryMemoryStatus reads system-wide memory utilization.
func QueryMemoryStatus() (MemoryStatus, error) {
	var st memoryStatusEx
	st.Length = uint32(unsafe.Sizeof(st))
	r1, _, err := procGlobalMemoryStatusEx.Call(uintptr(unsafe.Pointer(&st)))
	if r1 == 0 {
		return MemoryStatus{}, err
	}
	return MemoryStatus{
		Load:      st.MemoryLoad,
		TotalPhys: st.TotalPhys,
		AvailPhys: st.AvailPhys,
	}, nil
}

// QuerySystemTimes reads cumulative idle, kernel and user CPU time in
// 100ns ticks. Kernel time includes idle time.
func QuerySystemTimes() (idle, kernel, user uint64, err error) {
	var idleFT, kernelFT, userFT windows.Filetime
	r1, _, callErr := procGetSystemTimes.Call(
		uintptr(unsafe.Pointer(&idleFT)),
		uintptr(unsafe.Pointer(&kernelFT)),
		uintptr(unsafe.Pointer(&userFT)),
	)
	if r1 == 0 {
		return 0, 0, 0, callErr
	}
	return filetimeTicks(idleFT), filetimeTicks(kernelFT), filetimeTicks(userFT), nil
}

func filetimeTicks(ft windows.Filetime) uint64 {
	return uint64(ft.HighDateTime)<<32 | uint64(ft.LowDateTime)
}
