//go:build windows

package wio_test

import (
	"net/netip"
	"sync"
	"testing"

	"github.com/brickingsoft/wio"
	"golang.org/x/sys/windows"
)

var (
	winsockOnce sync.Once
	winsockErr  error
)

func winsock(t *testing.T) {
	t.Helper()
	winsockOnce.Do(func() {
		var data windows.WSAData
		winsockErr = windows.WSAStartup(uint32(0x202), &data)
	})
	if winsockErr != nil {
		t.Fatal("winsock startup failed:", winsockErr)
	}
}

func newStreamSocket(t *testing.T) *wio.Socket {
	t.Helper()
	return newTestSocket(t, windows.SOCK_STREAM, windows.IPPROTO_TCP)
}

func newDatagramSocket(t *testing.T) *wio.Socket {
	t.Helper()
	return newTestSocket(t, windows.SOCK_DGRAM, windows.IPPROTO_UDP)
}

func newTestSocket(t *testing.T, sotype int32, proto int32) *wio.Socket {
	t.Helper()
	winsock(t)
	fd, err := windows.WSASocket(
		windows.AF_INET, sotype, proto,
		nil, 0,
		windows.WSA_FLAG_OVERLAPPED|windows.WSA_FLAG_NO_HANDLE_INHERIT,
	)
	if err != nil {
		t.Fatal("create socket failed:", err)
	}
	s := wio.NewSocket(fd)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func bindLoopback(t *testing.T, s *wio.Socket) netip.AddrPort {
	t.Helper()
	sa := &windows.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}
	if err := windows.Bind(s.Raw(), sa); err != nil {
		t.Fatal("bind failed:", err)
	}
	lsa, err := windows.Getsockname(s.Raw())
	if err != nil {
		t.Fatal("getsockname failed:", err)
	}
	inet4, ok := lsa.(*windows.SockaddrInet4)
	if !ok {
		t.Fatal("unexpected sockaddr type")
	}
	return netip.AddrPortFrom(netip.AddrFrom4(inet4.Addr), uint16(inet4.Port))
}

func newTestPort(t *testing.T) *wio.CompletionPort {
	t.Helper()
	cp, err := wio.NewCompletionPort(0)
	if err != nil {
		t.Fatal("create completion port failed:", err)
	}
	t.Cleanup(func() {
		_ = cp.Close()
	})
	return cp
}
