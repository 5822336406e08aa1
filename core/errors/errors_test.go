package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeInvalidArgument, "oib is required")

	var e *E
	if !errors.As(err, &e) {
		t.Fatal("New should return *E")
	}
	if e.Code != CodeInvalidArgument {
		t.Errorf("Expected code %s, got %s", CodeInvalidArgument, e.Code)
	}
	if got, want := err.Error(), "INVALID_ARGUMENT: oib is required"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeUnavailable, "registry.List", cause)

	if !errors.Is(err, cause) {
		t.Fatal("Wrapped error should unwrap to its cause")
	}
	if got, want := err.Error(), "UNAVAILABLE registry.List: connection refused"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("eof")
	err := Wrapf(CodeDataLoss, "registry.Create", cause, "decode %s", "client")

	var e *E
	if !errors.As(err, &e) {
		t.Fatal("Wrapf should return *E")
	}
	if e.Msg != "decode client" {
		t.Errorf("Expected message %q, got %q", "decode client", e.Msg)
	}
	if got, want := err.Error(), "DATA_LOSS registry.Create: decode client: eof"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"coded error", New(CodeInvalidArgument, "x"), CodeInvalidArgument},
		{"wrapped coded error", Wrap(CodeNotFound, "op", errors.New("x")), CodeNotFound},
		{"fmt wrapped", errorsJoin(New(CodeUnavailable, "x")), CodeUnavailable},
		{"standard error", errors.New("plain"), ""},
		{"nil error", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.expected {
				t.Errorf("Expected code %q, got %q", tt.expected, got)
			}
			if tt.expected != "" && !IsCode(tt.err, tt.expected) {
				t.Errorf("IsCode(%v, %s) = false", tt.err, tt.expected)
			}
		})
	}
}

func errorsJoin(err error) error {
	return errors.Join(errors.New("context"), err)
}

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Code
	}{
		{http.StatusBadRequest, CodeInvalidArgument},
		{http.StatusUnprocessableEntity, CodeInvalidArgument},
		{http.StatusNotFound, CodeNotFound},
		{http.StatusConflict, CodeAlreadyExists},
		{http.StatusServiceUnavailable, CodeUnavailable},
		{http.StatusGatewayTimeout, CodeDeadlineExceeded},
		{http.StatusInternalServerError, CodeInternal},
		{http.StatusTeapot, CodeInternal},
	}

	for _, tt := range tests {
		if got := FromHTTPStatus(tt.status); got != tt.want {
			t.Errorf("FromHTTPStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestHTTPStatus(t *testing.T) {
	if got := HTTPStatus(CodeNotFound); got != http.StatusNotFound {
		t.Errorf("HTTPStatus(NOT_FOUND) = %d", got)
	}
	if got := HTTPStatus(""); got != http.StatusInternalServerError {
		t.Errorf("HTTPStatus(empty) = %d", got)
	}
}
