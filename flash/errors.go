package flash

import "fmt"

// Kind classifies a session failure for the caller.
type Kind int

const (
	KindUnknown Kind = iota

	// KindTransportUnavailable means the transport could not be opened
	// or configured.
	KindTransportUnavailable

	// KindWriteRejected means the transport refused a write mid session.
	KindWriteRejected

	// KindSyncTimeout means the bootloader never answered the sync
	// probe within the attempt budget.
	KindSyncTimeout

	// KindInvalidAddress means a custom flash offset failed to parse.
	KindInvalidAddress

	// KindEmptyImage means a zero length firmware image was supplied.
	KindEmptyImage

	// KindUnrecognizedImage means the image magic byte is not a known
	// chip signature.
	KindUnrecognizedImage

	// KindProtocol means the bootloader answered with an unexpected
	// opcode or a failure status.
	KindProtocol

	// KindCancelled means the caller cancelled the session.
	KindCancelled
)

func (k Kind) String() string {
	switch k {
	case KindTransportUnavailable:
		return "transport unavailable"
	case KindWriteRejected:
		return "write rejected"
	case KindSyncTimeout:
		return "sync timeout"
	case KindInvalidAddress:
		return "invalid address"
	case KindEmptyImage:
		return "empty image"
	case KindUnrecognizedImage:
		return "unrecognized image"
	case KindProtocol:
		return "protocol error"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error is a session failure carrying its kind and, when available, the
// underlying cause.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error of the same kind, so callers can test with
// errors.Is(err, &flash.Error{Kind: flash.KindSyncTimeout}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the failure kind from an error chain, or KindUnknown.
func KindOf(err error) Kind {
	for err != nil {
		if fe, ok := err.(*Error); ok {
			return fe.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return KindUnknown
}

func newError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}
