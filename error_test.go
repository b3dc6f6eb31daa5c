package gkbus

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestRecoverable(t *testing.T) {
	err := errors.New("boom")
	if !IsRecoverable(err) {
		t.Error("plain error must be recoverable")
	}
	u := Unrecoverable(err)
	if IsRecoverable(u) || IsRecoverable(fmt.Errorf("wrapped: %w", u)) {
		t.Error("unrecoverable error reported recoverable")
	}
	if !errors.Is(u, err) {
		t.Error("Unrecoverable must unwrap to the cause")
	}
	if Unrecoverable(nil).Error() != "unrecoverable error" {
		t.Error("nil cause message")
	}
}

func TestTimeoutError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&TimeoutError{Op: "read", Timeout: 400 * time.Millisecond}, "read timeout (400ms)"},
		{&TimeoutError{Op: "read", Timeout: 2 * time.Second, Want: 4, Got: 1}, "read timeout (2000ms), got 1 of 4 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("got %q", tt.err)
			}
			if !IsTimeout(fmt.Errorf("op: %w", tt.err)) {
				t.Error("IsTimeout false on wrapped timeout")
			}
		})
	}
	if IsTimeout(ErrPortClosed) {
		t.Error("IsTimeout true for a closed port")
	}
}

func TestOpeningPortError(t *testing.T) {
	cause := errors.New("permission denied")
	err := error(&OpeningPortError{Port: "/dev/ttyUSB0", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("cause not unwrapped")
	}
	var ope *OpeningPortError
	if !errors.As(fmt.Errorf("init: %w", err), &ope) || ope.Port != "/dev/ttyUSB0" {
		t.Error("errors.As failed")
	}
}
