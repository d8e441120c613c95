//go:build windows

package wio

import (
	"net/netip"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

// SendOverlapped issues an asynchronous send on a stream socket. b and
// overlapped follow the RecvOverlapped lifetime contract.
func (s *Socket) SendOverlapped(b []byte, overlapped *windows.Overlapped) (Outcome, error) {
	if len(b) == 0 {
		return Completed, emptyBytes(errMetaOpSend)
	}
	b = clamp(b)
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
	sendErr := windows.WSASend(s.fd, &buf, 1, nil, 0, overlapped, nil)
	return issued(errMetaOpSend, "wsa_send", sendErr)
}

// SendToOverlapped issues an asynchronous datagram send to the given
// destination. b and overlapped follow the RecvOverlapped lifetime contract;
// the destination address is marshalled before the call returns.
func (s *Socket) SendToOverlapped(b []byte, to netip.AddrPort, overlapped *windows.Overlapped) (Outcome, error) {
	if len(b) == 0 {
		return Completed, emptyBytes(errMetaOpSendTo)
	}
	sa, saErr := addrPortToSockaddr(to)
	if saErr != nil {
		return Completed, errors.New(
			"send_to failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpSendTo),
			errors.WithWrap(saErr),
		)
	}
	b = clamp(b)
	buf := windows.WSABuf{Len: uint32(len(b)), Buf: &b[0]}
	sendErr := windows.WSASendto(s.fd, &buf, 1, nil, 0, sa, overlapped, nil)
	return issued(errMetaOpSendTo, "wsa_sendto", sendErr)
}
