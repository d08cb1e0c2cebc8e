package hass

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/gorilla/websocket"
)

func TestClassifyNetworkError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
	}{
		{"timeout", os.ErrDeadlineExceeded, ErrTypeTimeout, true},
		{"refused", &net.OpError{Op: "dial", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, ErrTypeNetwork, true},
		{"unknown host", &net.DNSError{Name: "ha.invalid", IsNotFound: true}, ErrTypeNetwork, false},
		{"temporary dns", &net.DNSError{Name: "ha.local", IsTemporary: true}, ErrTypeNetwork, true},
		{"bad handshake", fmt.Errorf("dial: %w", websocket.ErrBadHandshake), ErrTypeProtocol, true},
		{"close frame", &websocket.CloseError{Code: websocket.CloseGoingAway}, ErrTypeNetwork, true},
		{"other", errors.New("broken pipe"), ErrTypeNetwork, true},
		{"already classified", &Error{Type: ErrTypeAuth, Message: "bad token"}, ErrTypeAuth, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyNetworkError("connect", tt.err)
			if got.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
		})
	}

	if classifyNetworkError("x", nil) != nil {
		t.Error("classifyNetworkError(nil) != nil")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"foreign", errors.New("boom"), true},
		{"retryable", &Error{Type: ErrTypeTimeout, Retryable: true}, true},
		{"fatal", &Error{Type: ErrTypeAuth}, false},
		{"wrapped fatal", fmt.Errorf("run: %w", &Error{Type: ErrTypeService}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Type: ErrTypeService, Message: "climate.set_temperature failed", Code: "not_found"}
	if got := err.Error(); got != "Service Error: climate.set_temperature failed [not_found]" {
		t.Errorf("Error() = %q", got)
	}

	cause := errors.New("eof")
	wrapped := &Error{Type: ErrTypeNetwork, Message: "lost", Err: cause}
	if !strings.Contains(wrapped.Error(), "caused by: eof") {
		t.Errorf("Error() = %q, missing cause", wrapped.Error())
	}
	if !errors.Is(wrapped, cause) {
		t.Error("Unwrap() does not expose the cause")
	}
	if ErrorType(42).String() != "ErrorType(42)" {
		t.Errorf("unknown ErrorType String() = %q", ErrorType(42).String())
	}
}

func TestResultError(t *testing.T) {
	cmd := Command{Type: TypeCallService, Domain: DomainClimate, Service: ServiceSetHVACMode}
	err := resultError(cmd, &ErrorInfo{Code: "home_assistant_error", Message: "mode not supported"})
	if err.Code != "home_assistant_error" || !strings.Contains(err.Message, "climate.set_hvac_mode failed: mode not supported") {
		t.Errorf("resultError() = %+v", err)
	}
	if err.Retryable {
		t.Error("refused service call marked retryable")
	}

	if got := resultError(Command{Type: TypeGetStates}, nil); got.Message != "get_states failed" {
		t.Errorf("resultError() without info = %q", got.Message)
	}
}

func TestRedact(t *testing.T) {
	got := string(redact([]byte(`{"type":"auth","access_token":"secret"}`)))
	if strings.Contains(got, "secret") {
		t.Errorf("redact() leaked token: %s", got)
	}

	plain := `{"id":3,"type":"ping"}`
	if got := string(redact([]byte(plain))); got != plain {
		t.Errorf("redact() changed %s to %s", plain, got)
	}
}
