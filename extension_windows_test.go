//go:build windows

package wio_test

import (
	"testing"

	"github.com/brickingsoft/wio"
	"golang.org/x/sys/windows"
)

func TestExtensionResolveConsistency(t *testing.T) {
	a := newStreamSocket(t)
	b := newStreamSocket(t)

	first := wio.NewWSAExtension("ConnectEx", windows.WSAID_CONNECTEX)
	second := wio.NewWSAExtension("ConnectEx", windows.WSAID_CONNECTEX)

	p1, err := first.Resolve(a.Raw())
	if err != nil {
		t.Fatal("resolve failed:", err)
	}
	p2, err := second.Resolve(b.Raw())
	if err != nil {
		t.Fatal("resolve failed:", err)
	}
	if p1 == 0 || p2 == 0 {
		t.Fatal("resolved a zero pointer")
	}
	if p1 != p2 {
		t.Error("providers disagree on the extension pointer:", p1, p2)
	}
}

func TestExtensionResolveCached(t *testing.T) {
	a := newStreamSocket(t)
	b := newStreamSocket(t)

	ext := wio.NewWSAExtension("ConnectEx", windows.WSAID_CONNECTEX)
	p1, err := ext.Resolve(a.Raw())
	if err != nil {
		t.Fatal("resolve failed:", err)
	}
	// cached: no socket needed at all
	p2, err := ext.Resolve(windows.InvalidHandle)
	if err != nil {
		t.Fatal("cached resolve failed:", err)
	}
	if p1 != p2 {
		t.Error("cache returned a different pointer:", p1, p2)
	}

	// stability verification re-queries through the given socket
	wio.VerifyExtensionPointerStability(true)
	defer wio.VerifyExtensionPointerStability(false)
	p3, err := ext.Resolve(b.Raw())
	if err != nil {
		t.Fatal("verifying resolve failed:", err)
	}
	if p1 != p3 {
		t.Error("verified pointer differs:", p1, p3)
	}
}
