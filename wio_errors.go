package wio

import (
	"github.com/brickingsoft/errors"
)

var (
	// ErrWaitTimeout is reported by CompletionPort.Wait and WaitMany when no
	// completion arrived within the allotted time. It is a retryable
	// condition, not an OS failure.
	ErrWaitTimeout = errors.Define("wait timeout")
	// ErrPortClosed is reported by completion port operations after Close.
	ErrPortClosed = errors.Define("completion port closed")
	// ErrEmptyBytes is reported when an operation is issued with an empty
	// buffer.
	ErrEmptyBytes = errors.Define("bytes are empty")
)

func IsWaitTimeout(err error) bool {
	return errors.Is(err, ErrWaitTimeout)
}

func IsPortClosed(err error) bool {
	return errors.Is(err, ErrPortClosed)
}

const (
	errMetaPkgKey = "pkg"
	errMetaPkgVal = "wio"
)

const (
	errMetaOpKey      = "op"
	errMetaOpRead     = "read"
	errMetaOpWrite    = "write"
	errMetaOpRecv     = "receive"
	errMetaOpRecvFrom = "receive_from"
	errMetaOpSend     = "send"
	errMetaOpSendTo   = "send_to"
	errMetaOpConnect  = "connect"
	errMetaOpAccept   = "accept"
	errMetaOpResolve  = "resolve_extension"
	errMetaOpRegister = "register"
	errMetaOpWait     = "wait"
	errMetaOpPost     = "post"
	errMetaOpClose    = "close"
)
