//go:build windows

package wio

import (
	"os"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

// AcceptOverlapped issues an asynchronous accept on a listening socket via
// the provider's accept extension. conn is a pre-configured, unconnected
// socket of the listener's family that receives the accepted connection;
// addrs is filled in with the connection's local and remote addresses and
// is parsed with addrs.Parse after completion. conn, addrs and overlapped
// follow the RecvOverlapped lifetime contract.
//
// Once the completion is observed, conn.UpdateAcceptContext(s) finishes
// turning conn into a connected stream; the accept contract guarantees that
// step succeeds for a socket the kernel just accepted into.
func (s *Socket) AcceptOverlapped(conn *Socket, addrs *AcceptAddrsBuf, overlapped *windows.Overlapped) (Outcome, error) {
	ptr, resolveErr := acceptExExt.Resolve(s.fd)
	if resolveErr != nil {
		return Completed, resolveErr
	}
	buf, recvLen, localLen, remoteLen := addrs.args()
	r1, _, callErr := syscall.SyscallN(
		ptr,
		uintptr(s.fd), uintptr(conn.fd),
		uintptr(buf), uintptr(recvLen),
		uintptr(localLen), uintptr(remoteLen),
		uintptr(unsafe.Pointer(&addrs.qty)),
		uintptr(unsafe.Pointer(overlapped)),
	)
	if r1 == 0 {
		if callErr == 0 {
			callErr = syscall.EINVAL
		}
		return issued(errMetaOpAccept, "acceptex", callErr)
	}
	return Completed, nil
}

// UpdateAcceptContext completes the conversion of a socket accepted through
// ln's accept extension into a regular connected stream. Call it on the
// accepted socket after the accept completion has been observed.
func (s *Socket) UpdateAcceptContext(ln *Socket) (err error) {
	lnfd := ln.fd
	setErr := windows.Setsockopt(
		s.fd,
		windows.SOL_SOCKET, windows.SO_UPDATE_ACCEPT_CONTEXT,
		(*byte)(unsafe.Pointer(&lnfd)),
		int32(unsafe.Sizeof(lnfd)),
	)
	if setErr != nil {
		err = errors.New(
			"accept failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpAccept),
			errors.WithWrap(os.NewSyscallError("setsockopt", setErr)),
		)
		return
	}
	return
}
