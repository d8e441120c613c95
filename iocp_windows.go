//go:build windows

package wio

import (
	"os"
	"runtime"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

var (
	modkernel32                     = windows.NewLazySystemDLL("kernel32.dll")
	procGetQueuedCompletionStatusEx = modkernel32.NewProc("GetQueuedCompletionStatusEx")
)

// CompletionStatus is one dequeued completion notification: the token the
// resource was registered under, the number of bytes the operation
// transferred, and the overlapped record identifying which in-flight
// operation finished. Its memory layout matches the kernel's completion
// entry so WaitMany can dequeue straight into a slice of them.
type CompletionStatus struct {
	key        uintptr
	overlapped *windows.Overlapped
	internal   uintptr
	bytes      uint32
}

// NewCompletionStatus builds a status for Post, carrying an arbitrary
// user event through the port.
func NewCompletionStatus(bytes uint32, token uintptr, overlapped *windows.Overlapped) CompletionStatus {
	return CompletionStatus{key: token, overlapped: overlapped, bytes: bytes}
}

// Token returns the value the completed resource was registered under.
func (status CompletionStatus) Token() uintptr {
	return status.key
}

// BytesTransferred returns the byte count of the completed operation.
func (status CompletionStatus) BytesTransferred() uint32 {
	return status.bytes
}

// Overlapped returns the record of the operation that completed. Callers
// map it back to their own pending-operation bookkeeping.
func (status CompletionStatus) Overlapped() *windows.Overlapped {
	return status.overlapped
}

// CompletionPort owns one kernel completion queue. Handles and sockets are
// registered against it under a caller-chosen token; any number of threads
// may wait on it concurrently, and the kernel delivers each completion to
// exactly one waiter.
type CompletionPort struct {
	fd     windows.Handle
	closed atomic.Bool
}

// NewCompletionPort creates a completion queue. concurrency caps the number
// of concurrently runnable waiting threads; 0 means the processor count.
func NewCompletionPort(concurrency uint32) (cp *CompletionPort, err error) {
	fd, createErr := windows.CreateIoCompletionPort(windows.InvalidHandle, 0, 0, concurrency)
	if createErr != nil {
		err = errors.New(
			"create completion port failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(os.NewSyscallError("create_io_completion_port", createErr)),
		)
		return
	}
	cp = &CompletionPort{fd: fd}
	runtime.SetFinalizer(cp, (*CompletionPort).finalize)
	return
}

// Add registers a raw handle or socket with this port under token. A
// resource belongs to at most one completion port for its whole lifetime;
// registering it twice, or registering a closed resource, fails with the
// OS error.
func (cp *CompletionPort) Add(token uintptr, fd windows.Handle) (err error) {
	if cp.closed.Load() {
		err = errors.From(
			ErrPortClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRegister),
		)
		return
	}
	if _, addErr := windows.CreateIoCompletionPort(fd, cp.fd, token, 0); addErr != nil {
		err = errors.New(
			"register failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpRegister),
			errors.WithWrap(os.NewSyscallError("create_io_completion_port", addErr)),
		)
		return
	}
	return
}

func (cp *CompletionPort) AddHandle(token uintptr, h *Handle) error {
	return cp.Add(token, h.Raw())
}

func (cp *CompletionPort) AddSocket(token uintptr, s *Socket) error {
	return cp.Add(token, s.Raw())
}

// Wait blocks until one completion is available or timeout elapses. A
// negative timeout blocks forever; zero polls. Timeout is reported as
// ErrWaitTimeout, distinguishable from OS failures so callers can keep
// waiting. When a completed operation itself failed, the returned status is
// still populated — the overlapped record identifies which operation — and
// the OS error is returned alongside it.
func (cp *CompletionPort) Wait(timeout time.Duration) (status CompletionStatus, err error) {
	if cp.closed.Load() {
		err = errors.From(
			ErrPortClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWait),
		)
		return
	}
	waitErr := windows.GetQueuedCompletionStatus(cp.fd, &status.bytes, &status.key, &status.overlapped, waitMillis(timeout))
	if waitErr != nil {
		var errno syscall.Errno
		if status.overlapped == nil && errors.As(waitErr, &errno) && errno == windows.WAIT_TIMEOUT {
			err = errors.From(
				ErrWaitTimeout,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, errMetaOpWait),
			)
			return
		}
		err = errors.New(
			"wait failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWait),
			errors.WithWrap(os.NewSyscallError("get_queued_completion_status", waitErr)),
		)
		return
	}
	return
}

// WaitMany dequeues up to len(statuses) completions in one call, returning
// how many were filled in. Timeout semantics match Wait.
func (cp *CompletionPort) WaitMany(statuses []CompletionStatus, timeout time.Duration) (n int, err error) {
	if cp.closed.Load() {
		err = errors.From(
			ErrPortClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWait),
		)
		return
	}
	if len(statuses) == 0 {
		return
	}
	var removed uint32
	r1, _, callErr := syscall.SyscallN(
		procGetQueuedCompletionStatusEx.Addr(),
		uintptr(cp.fd),
		uintptr(unsafe.Pointer(&statuses[0])),
		uintptr(len(statuses)),
		uintptr(unsafe.Pointer(&removed)),
		uintptr(waitMillis(timeout)),
		0,
	)
	if r1 == 0 {
		if callErr == windows.WAIT_TIMEOUT {
			err = errors.From(
				ErrWaitTimeout,
				errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
				errors.WithMeta(errMetaOpKey, errMetaOpWait),
			)
			return
		}
		if callErr == 0 {
			callErr = syscall.EINVAL
		}
		err = errors.New(
			"wait failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpWait),
			errors.WithWrap(os.NewSyscallError("get_queued_completion_status_ex", callErr)),
		)
		return
	}
	n = int(removed)
	return
}

// Post enqueues an arbitrary completion onto the port, delivered to one
// waiter like any kernel completion.
func (cp *CompletionPort) Post(status CompletionStatus) (err error) {
	if cp.closed.Load() {
		err = errors.From(
			ErrPortClosed,
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpPost),
		)
		return
	}
	if postErr := windows.PostQueuedCompletionStatus(cp.fd, status.bytes, status.key, status.overlapped); postErr != nil {
		err = errors.New(
			"post failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpPost),
			errors.WithWrap(os.NewSyscallError("post_queued_completion_status", postErr)),
		)
		return
	}
	return
}

// Close releases the port's queue handle. Only the first call closes.
func (cp *CompletionPort) Close() (err error) {
	if !cp.closed.CompareAndSwap(false, true) {
		return
	}
	runtime.SetFinalizer(cp, nil)
	if closeErr := windows.CloseHandle(cp.fd); closeErr != nil {
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

func (cp *CompletionPort) finalize() {
	_ = cp.Close()
}

func waitMillis(timeout time.Duration) uint32 {
	if timeout < 0 {
		return windows.INFINITE
	}
	millis := roundDurationUp(timeout, time.Millisecond)
	if uint64(millis) >= uint64(windows.INFINITE) {
		return windows.INFINITE - 1
	}
	return uint32(millis)
}

func roundDurationUp(d time.Duration, to time.Duration) time.Duration {
	return (d + to - 1) / to
}
