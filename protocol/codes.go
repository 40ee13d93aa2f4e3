package protocol

import "fmt"

// ReturnCode classifies the outcome of a single RPC exchange. Codes travel
// inside response bodies as integers, so their numeric values are part of
// the wire protocol and must not be renumbered.
type ReturnCode int32

const (
	// CodeNoReturn marks an exchange that never produced a result.
	CodeNoReturn ReturnCode = 0
	// CodeSuccess is the initial and happy-path code.
	CodeSuccess ReturnCode = 1
	// CodeTimeout means the caller's deadline elapsed before the handler finished.
	CodeTimeout ReturnCode = 2
	// CodeUnknownError covers handler crashes and transport faults.
	CodeUnknownError ReturnCode = 22
	// CodeVerificationFailed means signature or replay checks rejected the call.
	CodeVerificationFailed ReturnCode = 23
	// CodeBlacklisted means the receiver's blacklist predicate rejected the caller.
	CodeBlacklisted ReturnCode = 25
	// CodeOverloaded means the admission queue was at its concurrency ceiling.
	// Unlike CodeUnknownError this is actionable: the caller may retry later.
	CodeOverloaded ReturnCode = 26
)

// String returns the human-readable name of the code, used in logs.
func (c ReturnCode) String() string {
	switch c {
	case CodeNoReturn:
		return "NoReturn"
	case CodeSuccess:
		return "Success"
	case CodeTimeout:
		return "Timeout"
	case CodeUnknownError:
		return "UnknownError"
	case CodeVerificationFailed:
		return "VerificationFailed"
	case CodeBlacklisted:
		return "Blacklisted"
	case CodeOverloaded:
		return "Overloaded"
	default:
		return fmt.Sprintf("ReturnCode(%d)", int32(c))
	}
}

// Retryable reports whether the failure class is worth retrying against the
// same peer. Only backpressure and deadline outcomes qualify.
func (c ReturnCode) Retryable() bool {
	return c == CodeTimeout || c == CodeOverloaded
}
