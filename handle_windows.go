//go:build windows

package wio

import (
	"os"
	"runtime"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

// Handle is an exclusive-ownership wrapper around one raw kernel handle.
//
// Exactly one live Handle may own a given raw value. The handle is closed
// exactly once, either by an explicit Close or, as a backstop, by a
// finalizer when the wrapper is collected while still owning it. Release
// transfers the raw value out and relinquishes closing responsibility.
type Handle struct {
	fd       windows.Handle
	released atomic.Bool
}

func NewHandle(fd windows.Handle) *Handle {
	h := &Handle{fd: fd}
	runtime.SetFinalizer(h, (*Handle).finalize)
	return h
}

// Raw returns the wrapped handle without transferring ownership.
func (h *Handle) Raw() windows.Handle {
	return h.fd
}

// Release transfers the raw handle out. The wrapper no longer closes it;
// used when handing the resource to another owning structure. Once the
// wrapper has already given up ownership, through Close or an earlier
// Release, there is nothing left to transfer and InvalidHandle is returned.
func (h *Handle) Release() windows.Handle {
	if !h.released.CompareAndSwap(false, true) {
		return windows.InvalidHandle
	}
	runtime.SetFinalizer(h, nil)
	return h.fd
}

// Read performs a synchronous read and returns the number of bytes
// transferred.
func (h *Handle) Read(b []byte) (n int, err error) {
	var done uint32
	readErr := windows.ReadFile(h.fd, b, &done, nil)
	if readErr != nil {
		err = errors.New(
			"read failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRead),
			errors.WithWrap(os.NewSyscallError("read_file", readErr)),
		)
		return
	}
	n = int(done)
	return
}

// Write performs a synchronous write and returns the number of bytes
// transferred.
func (h *Handle) Write(b []byte) (n int, err error) {
	var done uint32
	writeErr := windows.WriteFile(h.fd, b, &done, nil)
	if writeErr != nil {
		err = errors.New(
			"write failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWrite),
			errors.WithWrap(os.NewSyscallError("write_file", writeErr)),
		)
		return
	}
	n = int(done)
	return
}

// ReadOverlapped issues an asynchronous read tracked by overlapped.
//
// b and overlapped must stay valid and unused by anything else until the
// completion is observed on the handle's completion port; overlapped must
// not track two operations at once. The byte count travels with the
// completion even when the outcome is Completed.
func (h *Handle) ReadOverlapped(b []byte, overlapped *windows.Overlapped) (Outcome, error) {
	// the count slot is only written during the call itself, never after
	// return, so a discarded local is safe; the wrapper reads it back
	// unconditionally and must not get nil.
	var done uint32
	readErr := windows.ReadFile(h.fd, b, &done, overlapped)
	return issued(errMetaOpRead, "read_file", readErr)
}

// WriteOverlapped issues an asynchronous write tracked by overlapped. The
// lifetime contract of ReadOverlapped applies.
func (h *Handle) WriteOverlapped(b []byte, overlapped *windows.Overlapped) (Outcome, error) {
	var done uint32
	writeErr := windows.WriteFile(h.fd, b, &done, overlapped)
	return issued(errMetaOpWrite, "write_file", writeErr)
}

// Close releases the handle. Only the first call closes; later calls and
// calls after Release are no-ops.
func (h *Handle) Close() (err error) {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(h, nil)
	if closeErr := windows.CloseHandle(h.fd); closeErr != nil {
		err = errors.New(
			"close failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpClose),
			errors.WithWrap(os.NewSyscallError("close_handle", closeErr)),
		)
		return
	}
	return
}

func (h *Handle) finalize() {
	_ = h.Close()
}
