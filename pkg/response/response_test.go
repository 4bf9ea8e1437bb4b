package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIs(t *testing.T) {
	notFound := NewError(http.StatusNotFound, "session not found")

	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{name: "same code and message", err: NewError(http.StatusNotFound, "session not found"), target: notFound, want: true},
		{name: "different code", err: NewError(http.StatusBadRequest, "session not found"), target: notFound, want: false},
		{name: "different message", err: NewError(http.StatusNotFound, "other"), target: notFound, want: false},
		{name: "wrapped", err: fmt.Errorf("lookup: %w", notFound), target: notFound, want: true},
		{name: "plain error", err: errors.New("session not found"), target: notFound, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("engine down")
	err := error(&Error{Code: http.StatusServiceUnavailable, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through errors.Is")
	}
}
