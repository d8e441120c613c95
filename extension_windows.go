//go:build windows

package wio

import (
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/brickingsoft/errors"
	"golang.org/x/sys/windows"
)

var verifyExtensionStability atomic.Bool

// VerifyExtensionPointerStability toggles re-resolution of already cached
// extension entry points. When enabled, every Resolve issues the provider
// query again and panics if the fresh pointer disagrees with the cached one.
// The check assumes all sockets on the machine share one provider stack; it
// is a diagnostic aid, disabled by default for the syscall-free fast path.
func VerifyExtensionPointerStability(enabled bool) {
	verifyExtensionStability.Store(enabled)
}

// WSAExtension lazily resolves and caches one provider extension entry
// point, identified by its well-known GUID. The cache is process-wide:
// resolutions through different sockets must agree, so redundant concurrent
// population is benign.
type WSAExtension struct {
	name string
	guid windows.GUID
	ptr  atomic.Uintptr
}

func NewWSAExtension(name string, guid windows.GUID) *WSAExtension {
	return &WSAExtension{name: name, guid: guid}
}

// Resolve returns the extension's function pointer, querying the provider
// through s on first use. A zero pointer or a pointer that disagrees with a
// previous resolution is a violated contract with the provider and panics.
func (ext *WSAExtension) Resolve(s windows.Handle) (ptr uintptr, err error) {
	prev := ext.ptr.Load()
	if prev != 0 && !verifyExtensionStability.Load() {
		ptr = prev
		return
	}
	var fn uintptr
	var bytes uint32
	ioctlErr := windows.WSAIoctl(
		s, windows.SIO_GET_EXTENSION_FUNCTION_POINTER,
		(*byte)(unsafe.Pointer(&ext.guid)), uint32(unsafe.Sizeof(ext.guid)),
		(*byte)(unsafe.Pointer(&fn)), uint32(unsafe.Sizeof(fn)),
		&bytes, nil, 0,
	)
	if ioctlErr != nil {
		err = errors.New(
			"resolve extension failed",
			errors.WithMeta(errMetaPkgKey, errMetaPkgVal),
			errors.WithMeta(errMetaOpKey, errMetaOpResolve),
			errors.WithMeta("extension", ext.name),
			errors.WithWrap(os.NewSyscallError("wsa_ioctl", ioctlErr)),
		)
		return
	}
	if fn == 0 {
		panic("wio: resolved " + ext.name + " extension pointer is zero")
	}
	if prev != 0 && prev != fn {
		panic("wio: " + ext.name + " extension pointer changed between resolutions")
	}
	ext.ptr.Store(fn)
	ptr = fn
	return
}

var (
	connectExExt = NewWSAExtension("ConnectEx", windows.WSAID_CONNECTEX)
	acceptExExt  = NewWSAExtension("AcceptEx", windows.GUID{
		Data1: 0xb5367df1,
		Data2: 0xcbac,
		Data3: 0x11cf,
		Data4: [8]byte{0x95, 0xca, 0x00, 0x80, 0x5f, 0x48, 0xa1, 0x92},
	})
	getAcceptExSockaddrsExt = NewWSAExtension("GetAcceptExSockaddrs", windows.GUID{
		Data1: 0xb5367df2,
		Data2: 0xcbac,
		Data3: 0x11cf,
		Data4: [8]byte{0x95, 0xca, 0x00, 0x80, 0x5f, 0x48, 0xa1, 0x92},
	})
)
