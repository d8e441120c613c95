// Package wio is a thin, zero-copy substrate over the Windows overlapped
// I/O facility: owning wrappers around raw handles and sockets, overlapped
// read, write, send, receive, connect and accept operations, lazy resolution
// of winsock provider extension entry points, and I/O completion ports for
// retrieving completion notifications.
//
// wio issues operations and drains completions; it has no event loop, no
// scheduler and no cancellation of its own. Those belong to the layer above.
//
// Every overlapped operation takes a caller-owned buffer and a caller-owned
// *windows.Overlapped record. Both must stay valid, unmoved and unused by
// anything else from the moment the operation is issued until its completion
// has been retrieved from the completion port.
package wio
