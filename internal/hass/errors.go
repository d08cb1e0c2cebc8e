package hass

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"

	"github.com/gorilla/websocket"
)

// ErrorType is the category of a Home Assistant failure
type ErrorType int

const (
	// ErrTypeNetwork covers dial failures and dropped connections
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth means the access token was rejected
	ErrTypeAuth
	// ErrTypeProtocol means Home Assistant sent something unexpected
	ErrTypeProtocol
	// ErrTypeService means a service call or lookup was refused
	ErrTypeService
	// ErrTypeTimeout means a request got no answer in time
	ErrTypeTimeout
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeService:
		return "Service Error"
	case ErrTypeTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is returned by every Client operation that talks to Home Assistant.
type Error struct {
	Type      ErrorType
	Message   string
	Code      string // Home Assistant error code, when one was sent
	Err       error
	Retryable bool
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is worth retrying after a reconnect.
// Errors that did not come from this package are treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var haErr *Error
	if errors.As(err, &haErr) {
		return haErr.Retryable
	}
	return true
}

// IsAuthError reports whether err is a rejected token.
func IsAuthError(err error) bool {
	var haErr *Error
	return errors.As(err, &haErr) && haErr.Type == ErrTypeAuth
}

// classifyNetworkError wraps a transport failure.
func classifyNetworkError(message string, err error) *Error {
	if err == nil {
		return nil
	}

	var haErr *Error
	if errors.As(err, &haErr) {
		return haErr
	}

	if os.IsTimeout(err) {
		return &Error{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &Error{
			Type:      ErrTypeNetwork,
			Message:   fmt.Sprintf("%s: cannot resolve %s", message, dnsErr.Name),
			Err:       err,
			Retryable: dnsErr.IsTemporary,
		}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Type: ErrTypeNetwork, Message: message + ": connection refused", Err: err, Retryable: true}
	}

	if errors.Is(err, websocket.ErrBadHandshake) {
		// Usually a wrong path or a proxy in the way; retry in case HA is still starting
		return &Error{Type: ErrTypeProtocol, Message: message + ": websocket handshake rejected", Err: err, Retryable: true}
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return &Error{
			Type:      ErrTypeNetwork,
			Message:   fmt.Sprintf("%s: connection closed (%d)", message, closeErr.Code),
			Err:       err,
			Retryable: true,
		}
	}

	return &Error{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

func newProtocolError(format string, args ...any) *Error {
	return &Error{Type: ErrTypeProtocol, Message: fmt.Sprintf(format, args...), Retryable: true}
}
