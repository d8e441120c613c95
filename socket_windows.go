//go:build windows

package wio

import (
	"os"
	"runtime"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

const maxRW = 1 << 30

// Socket is an exclusive-ownership wrapper around one raw socket handle.
// The socket itself comes from the host networking stack, already created
// and configured (overlapped-capable, bound, listening — whatever the
// intended operations require); wio never creates or configures sockets.
//
// Ownership follows Handle: closed exactly once, finalizer backstop,
// Release transfers the raw value out.
type Socket struct {
	fd       windows.Handle
	released atomic.Bool
}

func NewSocket(fd windows.Handle) *Socket {
	s := &Socket{fd: fd}
	runtime.SetFinalizer(s, (*Socket).finalize)
	return s
}

// Raw returns the wrapped socket without transferring ownership.
func (s *Socket) Raw() windows.Handle {
	return s.fd
}

// Release transfers the raw socket out; the wrapper no longer closes it.
// After Close or an earlier Release there is nothing left to transfer and
// InvalidHandle is returned.
func (s *Socket) Release() windows.Handle {
	if !s.released.CompareAndSwap(false, true) {
		return windows.InvalidHandle
	}
	runtime.SetFinalizer(s, nil)
	return s.fd
}

// Close releases the socket. Only the first call closes; later calls and
// calls after Release are no-ops.
func (s *Socket) Close() (err error) {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(s, nil)
	if closeErr := windows.Closesocket(s.fd); closeErr != nil {
		err = errors.New(
			"close failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpClose),
			errors.WithWrap(os.NewSyscallError("closesocket", closeErr)),
		)
		return
	}
	return
}

func (s *Socket) finalize() {
	_ = s.Close()
}

func clamp(b []byte) []byte {
	if len(b) > maxRW {
		return b[:maxRW]
	}
	return b
}

// issued classifies the result of issuing an overlapped operation: nil is a
// synchronous completion, the canonical pending code means the operation is
// queued, anything else is a genuine failure carrying the OS error code.
func issued(op string, sysname string, err error) (Outcome, error) {
	if err == nil {
		return Completed, nil
	}
	if errors.Is(err, windows.ERROR_IO_PENDING) {
		return Pending, nil
	}
	return Completed, errors.New(
		op+" failed",
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
		errors.WithWrap(os.NewSyscallError(sysname, err)),
	)
}

func emptyBytes(op string) error {
	return errors.From(
		ErrEmptyBytes,
		errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
		errors.WithMeta(errMetaOpKey, op),
	)
}
