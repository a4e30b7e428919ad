package models

import "fmt"

// Error codes carried in API error envelopes.
const (
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeDocument     = "DOCUMENT_UNAVAILABLE"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// Daemon operations an error can be attributed to.
const (
	OpConnect = "connect"
	OpOpen    = "open"
	OpWatch   = "watch"
	OpSignal  = "signal"
	OpTrigger = "trigger"
	OpPending = "pending"
)

// ErrorDetail is the error half of the response envelope. Retryable tells
// clients the same request may succeed later without changes.
type ErrorDetail struct {
	Code      string `json:"code"`
	Op        string `json:"op,omitempty"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// NudgeError is a failure of one daemon operation, tagged with the code the
// API reports for it.
type NudgeError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

// NewNudgeError tags err (which may be nil) as a failure of op.
func NewNudgeError(op, code, message string, err error) *NudgeError {
	return &NudgeError{Op: op, Code: code, Message: message, Err: err}
}

func (e *NudgeError) Error() string {
	prefix := e.Code
	if e.Op != "" {
		prefix = e.Op + " " + e.Code
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

func (e *NudgeError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient: the page or browser
// may come back, a limiter refills, a slow page may answer next time.
func (e *NudgeError) Retryable() bool {
	switch e.Code {
	case ErrCodeTimeout, ErrCodeDocument, ErrCodeRateLimited:
		return true
	}
	return false
}

// Detail is the API-facing form of e.
func (e *NudgeError) Detail() *ErrorDetail {
	return &ErrorDetail{
		Code:      e.Code,
		Op:        e.Op,
		Message:   e.Message,
		Retryable: e.Retryable(),
	}
}

// FromDetail rebuilds a NudgeError from an API envelope, for clients.
func FromDetail(d *ErrorDetail) *NudgeError {
	return &NudgeError{Op: d.Op, Code: d.Code, Message: d.Message}
}
