package wio

// Outcome reports how an overlapped operation was issued.
//
// Completed means the operation finished synchronously; its byte count is
// still delivered through the completion port of the handle, like any other
// completion. Pending means the operation was accepted by the kernel and
// will be reported later. Outcome is meaningful only when the accompanying
// error is nil.
type Outcome int

const (
	Completed Outcome = iota
	Pending
)

func (o Outcome) String() string {
	switch o {
	case Completed:
		return "completed"
	case Pending:
		return "pending"
	default:
		return "invalid"
	}
}
