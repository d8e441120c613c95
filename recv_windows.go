//go:build windows

package wio

import (
	"golang.org/x/sys/windows"
)

// RecvOverlapped issues an asynchronous receive on a stream socket. The
// buffer is handed to the kernel as a scatter/gather vector of length one.
//
// b and overlapped must stay valid and unused by anything else until the
// completion is observed on the socket's completion port; overlapped must
// not track two operations at once.
func (s *Socket) RecvOverlapped(b []byte, overlapped *windows.Overlapped) (Outcome, error) {
	if len(b) == 0 {
		return Completed, emptyBytes(errMetaOpRecv)
	}
	b = clamp(b)
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
	var flags uint32
	recvErr := windows.WSARecv(s.fd, &buf, 1, nil, &flags, overlapped, nil)
	return issued(errMetaOpRecv, "wsa_recv", recvErr)
}

// RecvFromOverlapped issues an asynchronous datagram receive. On completion
// the kernel has filled from with the sender's raw address; decode it with
// from.AddrPort. b, from and overlapped follow the RecvOverlapped lifetime
// contract.
func (s *Socket) RecvFromOverlapped(b []byte, from *SockaddrBuf, overlapped *windows.Overlapped) (Outcome, error) {
	if len(b) == 0 {
		return Completed, emptyBytes(errMetaOpRecvFrom)
	}
	b = clamp(b)
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
	var flags uint32
	recvErr := windows.WSARecvFrom(s.fd, &buf, 1, nil, &flags, &from.raw, &from.len, overlapped, nil)
	return issued(errMetaOpRecvFrom, "wsa_recvfrom", recvErr)
}
