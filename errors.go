package fastlane

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured fastlane error with context and errno mapping
type Error struct {
	Op          string        // Operation that failed (e.g., "PUSH", "EXECUTE")
	NamespaceID uint32        // Target namespace (0 if not applicable)
	Queue       int           // Queue number (0 if not applicable)
	Code        ErrorCode     // High-level error category
	Errno       syscall.Errno // Kernel errno (0 if not applicable)
	Msg         string        // Human-readable message
	Inner       error         // Wrapped error
}

// Error implements the error interface
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.NamespaceID != 0 {
		parts = append(parts, fmt.Sprintf("ns=%d", e.NamespaceID))
	}

	if e.Queue > 0 {
		parts = append(parts, fmt.Sprintf("queue=%d", e.Queue))
	}

	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("fastlane: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("fastlane: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches two structured errors by error code
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents high-level error categories
type ErrorCode string

const (
	ErrCodeRingFull          ErrorCode = "ring full"
	ErrCodeRingEmpty         ErrorCode = "ring empty"
	ErrCodeInvalidParameters ErrorCode = "invalid parameters"
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodeTransport         ErrorCode = "transport failure"
	ErrCodeCQOverflow        ErrorCode = "completion queue overflow"
	ErrCodeIOError           ErrorCode = "I/O error"
	ErrCodeShutdown          ErrorCode = "shutting down"
	ErrCodeNotImplemented    ErrorCode = "not implemented"
)

// Sentinel errors for the two expected steady-state ring conditions. Both
// are recoverable backpressure signals, not failures: callers retry Push on
// ErrRingFull and Pop on ErrRingEmpty. Shared instances keep the hot path
// allocation-free.
var (
	ErrRingFull  = &Error{Code: ErrCodeRingFull, Msg: "ring buffer is full"}
	ErrRingEmpty = &Error{Code: ErrCodeRingEmpty, Msg: "ring buffer is empty"}
)

// Error constructors

// NewError creates a new structured error
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:   op,
		Code: code,
		Msg:  msg,
	}
}

// NewNamespaceError creates a new namespace-scoped error
func NewNamespaceError(op string, namespaceID uint32, code ErrorCode, msg string) *Error {
	return &Error{
		Op:          op,
		NamespaceID: namespaceID,
		Code:        code,
		Msg:         msg,
	}
}

// WrapError wraps an existing error with fastlane context
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	// If it's already a structured error, just update the operation
	if fe, ok := inner.(*Error); ok {
		return &Error{
			Op:          op,
			NamespaceID: fe.NamespaceID,
			Queue:       fe.Queue,
			Code:        fe.Code,
			Errno:       fe.Errno,
			Msg:         fe.Msg,
			Inner:       fe.Inner,
		}
	}

	if errors.Is(inner, context.DeadlineExceeded) {
		return &Error{
			Op:    op,
			Code:  ErrCodeTimeout,
			Msg:   inner.Error(),
			Inner: inner,
		}
	}

	if errors.Is(inner, context.Canceled) {
		return &Error{
			Op:    op,
			Code:  ErrCodeShutdown,
			Msg:   inner.Error(),
			Inner: inner,
		}
	}

	// Map common syscall errors to fastlane error codes
	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{
			Op:    op,
			Code:  mapErrnoToCode(errno),
			Errno: errno,
			Msg:   errno.Error(),
			Inner: inner,
		}
	}

	return &Error{
		Op:    op,
		Code:  ErrCodeIOError,
		Msg:   inner.Error(),
		Inner: inner,
	}
}

// mapErrnoToCode maps syscall errno to fastlane error codes
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EINVAL, syscall.E2BIG, syscall.ERANGE:
		return ErrCodeInvalidParameters
	case syscall.ETIMEDOUT:
		return ErrCodeTimeout
	case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.EPIPE, syscall.EHOSTUNREACH:
		return ErrCodeTransport
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return ErrCodeNotImplemented
	default:
		return ErrCodeIOError
	}
}

// IsCode checks if an error matches a specific error code
func IsCode(err error, code ErrorCode) bool {
	var ferr *Error
	if errors.As(err, &ferr) {
		return ferr.Code == code
	}
	return false
}

// IsErrno checks if an error matches a specific errno
func IsErrno(err error, errno syscall.Errno) bool {
	var ferr *Error
	if errors.As(err, &ferr) {
		return ferr.Errno == errno
	}
	return false
}

// Reason returns the metrics label for an error: the structured error code
// when present, otherwise a generic bucket. Keeping the label set closed
// bounds the io_errors_total series cardinality.
func Reason(err error) string {
	var ferr *Error
	if errors.As(err, &ferr) {
		return string(ferr.Code)
	}
	return "internal"
}
