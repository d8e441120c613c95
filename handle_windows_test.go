//go:build windows

package wio_test

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/brickingsoft/wio"
	"golang.org/x/sys/windows"
)

func createTestFile(t *testing.T, flags uint32) *wio.Handle {
	t.Helper()
	name, nameErr := windows.UTF16PtrFromString(filepath.Join(t.TempDir(), "handle.bin"))
	if nameErr != nil {
		t.Fatal("encode path failed:", nameErr)
	}
	fd, createErr := windows.CreateFile(
		name,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		0, nil,
		windows.CREATE_ALWAYS,
		windows.FILE_ATTRIBUTE_NORMAL|flags,
		0,
	)
	if createErr != nil {
		t.Fatal("create file failed:", createErr)
	}
	h := wio.NewHandle(fd)
	t.Cleanup(func() {
		_ = h.Close()
	})
	return h
}

func TestHandleReadWrite(t *testing.T) {
	h := createTestFile(t, 0)
	n, writeErr := h.Write([]byte{1, 2, 3})
	if writeErr != nil {
		t.Fatal("write failed:", writeErr)
	}
	if n != 3 {
		t.Error("unexpected write count:", n)
	}
	if _, seekErr := windows.Seek(h.Raw(), 0, 0); seekErr != nil {
		t.Fatal("seek failed:", seekErr)
	}
	b := make([]byte, 10)
	n, readErr := h.Read(b)
	if readErr != nil {
		t.Fatal("read failed:", readErr)
	}
	if n != 3 || !bytes.Equal(b[:3], []byte{1, 2, 3}) {
		t.Error("unexpected read:", n, b[:3])
	}
}

func TestHandleOverlappedReadWrite(t *testing.T) {
	h := createTestFile(t, windows.FILE_FLAG_OVERLAPPED)
	cp := newTestPort(t)
	if err := cp.AddHandle(2, h); err != nil {
		t.Fatal("register failed:", err)
	}

	var wop windows.Overlapped
	if _, err := h.WriteOverlapped([]byte{1, 2, 3}, &wop); err != nil {
		t.Fatal("write failed:", err)
	}
	status, waitErr := cp.Wait(5 * time.Second)
	if waitErr != nil {
		t.Fatal("wait failed:", waitErr)
	}
	if status.Token() != 2 || status.BytesTransferred() != 3 || status.Overlapped() != &wop {
		t.Error("unexpected completion:", status.Token(), status.BytesTransferred())
	}

	b := make([]byte, 10)
	var rop windows.Overlapped
	if _, err := h.ReadOverlapped(b, &rop); err != nil {
		t.Fatal("read failed:", err)
	}
	status, waitErr = cp.Wait(5 * time.Second)
	if waitErr != nil {
		t.Fatal("wait failed:", waitErr)
	}
	if status.Token() != 2 || status.BytesTransferred() != 3 || status.Overlapped() != &rop {
		t.Error("unexpected completion:", status.Token(), status.BytesTransferred())
	}
	if !bytes.Equal(b[:3], []byte{1, 2, 3}) {
		t.Error("unexpected payload:", b[:3])
	}
}

func TestHandleRelease(t *testing.T) {
	h := createTestFile(t, 0)
	fd := h.Release()
	if fd != h.Raw() {
		t.Error("release returned a different handle")
	}
	if again := h.Release(); again != windows.InvalidHandle {
		t.Error("second release transferred ownership again:", again)
	}
	// the wrapper gave up ownership, so this close is ours to do
	if err := windows.CloseHandle(fd); err != nil {
		t.Error("close failed:", err)
	}
	if err := h.Close(); err != nil {
		t.Error("close after release was not a no-op:", err)
	}
}

func TestHandleReleaseAfterClose(t *testing.T) {
	h := createTestFile(t, 0)
	if err := h.Close(); err != nil {
		t.Fatal("close failed:", err)
	}
	if fd := h.Release(); fd != windows.InvalidHandle {
		t.Error("release handed out a closed handle:", fd)
	}
}
