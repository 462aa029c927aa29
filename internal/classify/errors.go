package classify

import (
	"errors"
	"fmt"
)

// Kind tells callers why a classification failed, so they can choose between retrying and giving up
type Kind int

const (
	// KindHTTPStatus means the service answered with a non-2xx status
	KindHTTPStatus Kind = iota + 1
	// KindService means the service answered but reported an error in the body
	KindService
	// KindTransport means the request never produced a response
	KindTransport
	// KindDecode means the response body was not the expected JSON
	KindDecode
	// KindInput means the image could not be read or decoded before sending
	KindInput
)

func (k Kind) String() string {
	switch k {
	case KindHTTPStatus:
		return "http_status"
	case KindService:
		return "service"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindInput:
		return "input"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind
var (
	ErrHTTPStatus = errors.New("prediction service http status error")
	ErrService    = errors.New("prediction service error")
	ErrTransport  = errors.New("prediction transport error")
	ErrDecode     = errors.New("prediction decode error")
	ErrInput      = errors.New("prediction input error")
)

// Error is the failure returned by every Classifier
type Error struct {
	Kind       Kind
	StatusCode int    // set for KindHTTPStatus
	Message    string // set for KindService
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("prediction service returned status %d", e.StatusCode)
	case KindService:
		return "prediction service error: " + e.Message
	case KindTransport:
		return fmt.Sprintf("calling prediction service: %v", e.Err)
	case KindDecode:
		return fmt.Sprintf("decoding prediction response: %v", e.Err)
	case KindInput:
		return fmt.Sprintf("preparing image: %v", e.Err)
	default:
		return fmt.Sprintf("classification failed: %v", e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrHTTPStatus:
		return e.Kind == KindHTTPStatus
	case ErrService:
		return e.Kind == KindService
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrInput:
		return e.Kind == KindInput
	}
	return false
}

// KindOf extracts the failure kind from err, if it carries one
func KindOf(err error) (Kind, bool) {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Kind, true
	}
	return 0, false
}
