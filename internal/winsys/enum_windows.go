//go:build windows

package winsys

import (
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/memsweep/memsweep/internal/trim"
)

// Processes takes a Toolhelp32 snapshot of running processes. Entries
// whose metadata cannot be read are dropped; the walk itself continues.
func (s *System) Processes() ([]trim.ProcessRecord, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(snap)

	var records []trim.ProcessRecord
	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	if err := windows.Process32First(snap, &entry); err != nil {
		return nil, err
	}
	for {
		records = append(records, trim.ProcessRecord{
			PID:   entry.ProcessID,
			Name:  windows.UTF16ToString(entry.ExeFile[:]),
			Owner: processOwner(entry.ProcessID),
		})
		if err := windows.Process32Next(snap, &entry); err != nil {
			// ERROR_NO_MORE_FILES ends the walk.
			break
		}
	}
	return records, nil
}

// processOwner resolves DOMAIN\user for a pid, best effort. Processes
// whose token we cannot query keep an empty owner rather than being
// dropped from the snapshot.
func processOwner(pid uint32) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	var token windows.Token
	if err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token); err != nil {
		return ""
	}
	defer token.Close()

	user, err := token.GetTokenUser()
	if err != nil {
		return ""
	}
	account, domain, _, err := user.User.Sid.LookupAccount("")
	if err != nil {
		return ""
	}
	if domain != "" {
		return domain + `\` + account
	}
	return account
}
