package bridge

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
)

// ErrorType represents the category of a bridge failure
type ErrorType int

const (
	// ErrTypeProtocol indicates a malformed frame or response payload
	ErrTypeProtocol ErrorType = iota
	// ErrTypeBusy indicates a request was issued while another was outstanding
	ErrTypeBusy
	// ErrTypeTransport indicates the connection failed (write error, read loop ended)
	ErrTypeTransport
	// ErrTypeTimeout indicates no response arrived within the request timeout
	ErrTypeTimeout
	// ErrTypeClosed indicates the bridge connection is closed or disconnected
	ErrTypeClosed
	// ErrTypeCancelled indicates the caller's context ended before the response
	ErrTypeCancelled
	// ErrTypeInvalidArgument indicates a command argument the protocol cannot carry
	ErrTypeInvalidArgument
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeBusy:
		return "Busy"
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeClosed:
		return "Closed"
	case ErrTypeCancelled:
		return "Cancelled"
	case ErrTypeInvalidArgument:
		return "Invalid Argument"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// BridgeError is returned by every Bridge operation that fails
type BridgeError struct {
	Type    ErrorType // Category of error
	Op      string    // Operation that failed, e.g. "GROUP_LIST"
	Message string    // Human-readable error message
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s (caused by: %v)", e.Op, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *BridgeError) Unwrap() error {
	return e.Err
}

func newError(t ErrorType, op, message string, err error) *BridgeError {
	return &BridgeError{Type: t, Op: op, Message: message, Err: err}
}

// transportError classifies a connection failure.
func transportError(op string, err error) *BridgeError {
	switch {
	case errors.Is(err, io.EOF):
		return newError(ErrTypeTransport, op, "connection closed by bridge", err)
	case errors.Is(err, os.ErrDeadlineExceeded):
		return newError(ErrTypeTransport, op, "write deadline exceeded", err)
	case errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return newError(ErrTypeTransport, op, "connection closed", err)
	default:
		return newError(ErrTypeTransport, op, "connection failed", err)
	}
}

func isType(err error, t ErrorType) bool {
	var be *BridgeError
	return errors.As(err, &be) && be.Type == t
}

// IsProtocolError reports whether err is a malformed frame or payload
func IsProtocolError(err error) bool { return isType(err, ErrTypeProtocol) }

// IsBusy reports whether err was caused by an outstanding request
func IsBusy(err error) bool { return isType(err, ErrTypeBusy) }

// IsTransportError reports whether err is a connection failure
func IsTransportError(err error) bool { return isType(err, ErrTypeTransport) }

// IsTimeout reports whether err is a request timeout
func IsTimeout(err error) bool { return isType(err, ErrTypeTimeout) }

// IsClosed reports whether err was returned because the bridge is disconnected
func IsClosed(err error) bool { return isType(err, ErrTypeClosed) }

// IsCancelled reports whether err was caused by context cancellation
func IsCancelled(err error) bool { return isType(err, ErrTypeCancelled) }

// IsInvalidArgument reports whether err rejected a command argument
func IsInvalidArgument(err error) bool { return isType(err, ErrTypeInvalidArgument) }
