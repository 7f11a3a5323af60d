// Package winsys binds the trim engine to the Win32 process and memory
// APIs: Toolhelp32 process snapshots, OpenProcess with the
// set-quota access tiers, EmptyWorkingSet, and GlobalMemoryStatusEx.
//
// On non-Windows platforms every entry point returns ErrUnsupported so
// the rest of the tree still builds; the engine itself is exercised
// against fakes there.
package winsys
