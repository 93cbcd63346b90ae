package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrorUpstreamMalformed ErrorCode = "UPSTREAM_MALFORMED_RESPONSE"
	ErrorUpstreamTimeout   ErrorCode = "UPSTREAM_TIMEOUT"
	ErrorTransport         ErrorCode = "TRANSPORT_ERROR"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed failure returned by RelayService. UpstreamStatus and
// Detail are set only for ErrorUpstream and echo the upstream reply verbatim.
type Error struct {
	Code           ErrorCode
	Reason         string
	UpstreamStatus int
	Detail         string
	Err            error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
