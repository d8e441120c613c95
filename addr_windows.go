//go:build windows

package wio

import (
	"net"
	"net/netip"
	"strconv"
	"syscall"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

// addrPortToRaw encodes a portable address into the kernel's raw socket
// address layout. The returned size is the exact structure size for the
// address family; multi-byte fields are stored in network byte order.
func addrPortToRaw(ap netip.AddrPort) (raw windows.RawSockaddrAny, size int32, err error) {
	addr := ap.Addr()
	port := ap.Port()
	switch {
	case addr.Is4() || addr.Is4In6():
		sa := (*windows.RawSockaddrInet4)(unsafe.Pointer(&raw))
		sa.Family = windows.AF_INET
		p := (*[2]byte)(unsafe.Pointer(&sa.Port))
		p[0] = byte(port >> 8)
		p[1] = byte(port)
		sa.Addr = addr.As4()
		size = int32(unsafe.Sizeof(windows.RawSockaddrInet4{}))
		return
	case addr.Is6():
		sa := (*windows.RawSockaddrInet6)(unsafe.Pointer(&raw))
		sa.Family = windows.AF_INET6
		p := (*[2]byte)(unsafe.Pointer(&sa.Port))
		p[0] = byte(port >> 8)
		p[1] = byte(port)
		sa.Addr = addr.As16()
		sa.Scope_id = zoneID(addr.Zone())
		size = int32(unsafe.Sizeof(windows.RawSockaddrInet6{}))
		return
	default:
		err = errors.New(
			"encode sockaddr failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.Define("address is invalid")),
		)
		return
	}
}

// addrPortToSockaddr encodes a portable address as a windows.Sockaddr for
// the syscall wrappers that marshal the raw layout themselves.
func addrPortToSockaddr(ap netip.AddrPort) (sa windows.Sockaddr, err error) {
	addr := ap.Addr()
	switch {
	case addr.Is4() || addr.Is4In6():
		sa = &windows.SockaddrInet4{Port: int(ap.Port()), Addr: addr.As4()}
		return
	case addr.Is6():
		sa = &windows.SockaddrInet6{Port: int(ap.Port()), ZoneId: zoneID(addr.Zone()), Addr: addr.As16()}
		return
	default:
		err = errors.New(
			"encode sockaddr failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithWrap(errors.Define("address is invalid")),
		)
		return
	}
}

// rawToAddrPort decodes size bytes of kernel-filled socket address memory at
// p. It is a best-effort parse: a buffer too short for the family tag, too
// short for the tagged family's full structure, or tagged with an unknown
// family decodes to ok == false. It never reads beyond size bytes.
func rawToAddrPort(p unsafe.Pointer, size int32) (ap netip.AddrPort, ok bool) {
	if p == nil || uintptr(size) < unsafe.Sizeof(uint16(0)) {
		return
	}
	switch *(*uint16)(p) {
	case windows.AF_INET:
		if uintptr(size) < unsafe.Sizeof(windows.RawSockaddrInet4{}) {
			return
		}
		sa := (*windows.RawSockaddrInet4)(p)
		pb := (*[2]byte)(unsafe.Pointer(&sa.Port))
		port := uint16(pb[0])<<8 | uint16(pb[1])
		ap = netip.AddrPortFrom(netip.AddrFrom4(sa.Addr), port)
		ok = true
		return
	case windows.AF_INET6:
		if uintptr(size) < unsafe.Sizeof(windows.RawSockaddrInet6{}) {
			return
		}
		sa := (*windows.RawSockaddrInet6)(p)
		pb := (*[2]byte)(unsafe.Pointer(&sa.Port))
		port := uint16(pb[0])<<8 | uint16(pb[1])
		addr := netip.AddrFrom16(sa.Addr)
		if zone := zoneName(sa.Scope_id); zone != "" {
			addr = addr.WithZone(zone)
		}
		ap = netip.AddrPortFrom(addr, port)
		ok = true
		return
	default:
		return
	}
}

func zoneName(id uint32) string {
	if id == 0 {
		return ""
	}
	if ifi, err := net.InterfaceByIndex(int(id)); err == nil {
		return ifi.Name
	}
	return strconv.FormatUint(uint64(id), 10)
}

func zoneID(zone string) uint32 {
	if zone == "" {
		return 0
	}
	if ifi, err := net.InterfaceByName(zone); err == nil {
		return uint32(ifi.Index)
	}
	if n, err := strconv.Atoi(zone); err == nil && n >= 0 {
		return uint32(n)
	}
	return 0
}

// SockaddrBuf is the space a receive-with-address operation fills in with
// the sender's raw socket address. Create one with NewSockaddrBuf, keep it
// valid until the operation's completion is observed, then decode it with
// AddrPort.
type SockaddrBuf struct {
	raw windows.RawSockaddrAny
	len int32
}

func NewSockaddrBuf() *SockaddrBuf {
	return &SockaddrBuf{len: int32(unsafe.Sizeof(windows.RawSockaddrAny{}))}
}

// AddrPort decodes the filled buffer. ok is false when the kernel wrote no
// decodable address.
func (b *SockaddrBuf) AddrPort() (netip.AddrPort, bool) {
	return rawToAddrPort(unsafe.Pointer(&b.raw), b.len)
}

// AcceptAddrsBuf is the buffer an overlapped accept fills in with the local
// and remote addresses of the accepted connection. Each address region is
// padded by 16 bytes beyond the maximum address size, which the accept
// extension requires. The zero value is ready to use; the buffer must stay
// valid until the accept completion is observed, and for as long as any
// AcceptAddrs parsed from it is in use.
type AcceptAddrsBuf struct {
	local  windows.RawSockaddrAny
	_      [16]byte
	remote windows.RawSockaddrAny
	_      [16]byte
	qty    uint32
}

func (b *AcceptAddrsBuf) args() (buf unsafe.Pointer, recvLen uint32, localLen uint32, remoteLen uint32) {
	buf = unsafe.Pointer(b)
	recvLen = 0
	localLen = uint32(unsafe.Offsetof(b.remote))
	remoteLen = uint32(unsafe.Offsetof(b.qty)) - localLen
	return
}

// AcceptAddrs holds the parsed views into an AcceptAddrsBuf. The views are
// read-only back-references into the buffer's storage and must not be
// retained beyond the buffer's lifetime.
type AcceptAddrs struct {
	local     unsafe.Pointer
	localLen  int32
	remote    unsafe.Pointer
	remoteLen int32
	data      *AcceptAddrsBuf
}

// Parse splits the filled buffer into local and remote address views using
// the address-extraction extension resolved through ln.
func (b *AcceptAddrsBuf) Parse(ln *Socket) (addrs AcceptAddrs, err error) {
	ptr, resolveErr := getAcceptExSockaddrsExt.Resolve(ln.fd)
	if resolveErr != nil {
		err = resolveErr
		return
	}
	buf, recvLen, localLen, remoteLen := b.args()
	addrs.data = b
	_, _, _ = syscall.SyscallN(
		ptr,
		uintptr(buf), uintptr(recvLen), uintptr(localLen), uintptr(remoteLen),
		uintptr(unsafe.Pointer(&addrs.local)), uintptr(unsafe.Pointer(&addrs.localLen)),
		uintptr(unsafe.Pointer(&addrs.remote)), uintptr(unsafe.Pointer(&addrs.remoteLen)),
	)
	return
}

// Local decodes the accepted connection's local address.
func (a *AcceptAddrs) Local() (netip.AddrPort, bool) {
	return rawToAddrPort(a.local, a.localLen)
}

// Remote decodes the accepted connection's remote address.
func (a *AcceptAddrs) Remote() (netip.AddrPort, bool) {
	return rawToAddrPort(a.remote, a.remoteLen)
}
