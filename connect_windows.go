//go:build windows

package wio

import (
	"net/netip"
	"os"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

// ConnectOverlapped issues an asynchronous connect on a stream socket via
// the provider's connect extension. The socket must already be bound to a
// local address; the kernel rejects the call otherwise and the OS error is
// returned as-is. overlapped follows the RecvOverlapped lifetime contract.
//
// Once the completion is observed, UpdateConnectContext finishes turning
// the socket into a connected stream.
func (s *Socket) ConnectOverlapped(to netip.AddrPort, overlapped *windows.Overlapped) (Outcome, error) {
	ptr, resolveErr := connectExExt.Resolve(s.fd)
	if resolveErr != nil {
		return Completed, resolveErr
	}
	raw, rawLen, encodeErr := addrPortToRaw(to)
	if encodeErr != nil {
		return Completed, errors.New(
			"connect failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpConnect),
			errors.WithWrap(encodeErr),
		)
	}
	r1, _, callErr := syscall.SyscallN(
		ptr,
		uintptr(s.fd),
		uintptr(unsafe.Pointer(&raw)), uintptr(rawLen),
		0, 0, 0,
		uintptr(unsafe.Pointer(overlapped)),
	)
	if r1 == 0 {
		if callErr == 0 {
			callErr = syscall.EINVAL
		}
		return issued(errMetaOpConnect, "connectex", callErr)
	}
	return Completed, nil
}

// UpdateConnectContext completes the conversion of a connect-extension
// socket into a regular connected stream. Call it after the connect
// completion has been observed.
func (s *Socket) UpdateConnectContext() (err error) {
	setErr := windows.Setsockopt(s.fd, windows.SOL_SOCKET, windows.SO_UPDATE_CONNECT_CONTEXT, nil, 0)
	if setErr != nil {
		err = errors.New(
			"connect failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpConnect),
			errors.WithWrap(os.NewSyscallError("setsockopt", setErr)),
		)
		return
	}
	return
}
