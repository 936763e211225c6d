package rfb

import "fmt"

// ErrorKind classifies a fatal connection error, per §7.
type ErrorKind int

const (
	ProtocolViolation ErrorKind = iota
	TransportError
	ResourceExhaustion
	AuthFailure
	UserCancelled
	Unsupported
)

func (k ErrorKind) String() string {
	switch k {
	case ProtocolViolation:
		return "ProtocolViolation"
	case TransportError:
		return "TransportError"
	case ResourceExhaustion:
		return "ResourceExhaustion"
	case AuthFailure:
		return "AuthFailure"
	case UserCancelled:
		return "UserCancelled"
	case Unsupported:
		return "Unsupported"
	default:
		return "Unknown"
	}
}

// VNCError is the error type surfaced for every fatal condition. The
// orchestrator inspects Kind rather than matching message text to
// decide whether reconnect should be offered.
type VNCError struct {
	Kind ErrorKind
	msg  string
	err  error
}

func (e *VNCError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *VNCError) Unwrap() error { return e.err }

// NewVNCError builds a ProtocolViolation error with the given message.
func NewVNCError(msg string) *VNCError { return &VNCError{Kind: ProtocolViolation, msg: msg} }

// Errorf builds a ProtocolViolation error with a formatted message.
func Errorf(format string, args ...interface{}) *VNCError {
	return &VNCError{Kind: ProtocolViolation, msg: fmt.Sprintf(format, args...)}
}

// WrapError attaches a cause to a specific error kind.
func WrapError(kind ErrorKind, msg string, err error) *VNCError {
	return &VNCError{Kind: kind, msg: msg, err: err}
}

// IsKind reports whether err is a *VNCError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ve, ok := err.(*VNCError)
	return ok && ve.Kind == kind
}
