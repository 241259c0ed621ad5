//go:build windows

package shm

import (
	"errors"
	"fmt"
	"hash/fnv"
	"unsafe"

	"golang.org/x/sys/windows"
)

const mappingName = `Local\DaemonenvState`

// Locate returns the session-local mapping name. Unlike the Unix state file
// it does not depend on the environment.
func Locate() Location { return mappingName }

// LocationIn derives a separate mapping name for scope. Mapping names cannot
// hold paths, so scope is hashed.
func LocationIn(scope string) Location {
	if scope == "" {
		return mappingName
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(scope))
	return Location(fmt.Sprintf("%s-%08x", mappingName, h.Sum32()))
}

// mapping is the daemon's handle and view, kept open for its lifetime so the
// page-file mapping exists.
type mapping struct {
	handle windows.Handle
	view   uintptr
}

func (m *mapping) close() {
	_ = windows.UnmapViewOfFile(m.view)
	_ = windows.CloseHandle(m.handle)
}

// publishBytes creates (or opens) a named page-file mapping and writes b. The
// mapping lives until cleanup is called.
func publishBytes(loc Location, b []byte) (func(), error) {
	if len(b) > shmSize {
		return nil, fmt.Errorf("state too large (%d > %d)", len(b), shmSize)
	}
	name16, err := windows.UTF16PtrFromString(string(loc))
	if err != nil {
		return nil, err
	}

	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE, 0, uint32(shmSize), name16)
	if err != nil && !errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		return nil, fmt.Errorf("create mapping %s: %w", loc, err)
	}

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(shmSize))
	if err != nil {
		_ = windows.CloseHandle(h)
		return nil, fmt.Errorf("map view of %s: %w", loc, err)
	}

	page := unsafe.Slice((*byte)(unsafe.Pointer(addr)), shmSize)
	copy(page, b)
	clear(page[len(b):])

	m := &mapping{handle: h, view: addr}
	cleanup := func() {
		if m != nil {
			m.close()
			m = nil
		}
	}
	return cleanup, nil
}

// OpenFileMappingW is not wrapped by x/sys/windows.
var (
	modKernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = modKernel32.NewProc("OpenFileMappingW")
)

func openFileMapping(desiredAccess uint32, name *uint16) (windows.Handle, error) {
	r0, _, e1 := procOpenFileMappingW.Call(uintptr(desiredAccess), 0, uintptr(unsafe.Pointer(name)))
	if r0 == 0 {
		if e1 != nil {
			return 0, e1
		}
		return 0, windows.ERROR_INVALID_HANDLE
	}
	return windows.Handle(r0), nil
}

// readBytes opens the mapping read-only and returns its non-zero prefix.
func readBytes(loc Location) ([]byte, error) {
	name16, err := windows.UTF16PtrFromString(string(loc))
	if err != nil {
		return nil, err
	}
	h, err := openFileMapping(windows.FILE_MAP_READ, name16)
	if err != nil {
		return nil, fmt.Errorf("open mapping %s: %w", loc, err)
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_READ, 0, 0, uintptr(shmSize))
	if err != nil {
		return nil, fmt.Errorf("map view of %s: %w", loc, err)
	}
	defer windows.UnmapViewOfFile(addr)

	return trimZeros(unsafe.Slice((*byte)(unsafe.Pointer(addr)), shmSize)), nil
}
