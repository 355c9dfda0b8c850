package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindOf(t *testing.T) {
	base := NotFound("source %d not found", 3)
	wrapped := fmt.Errorf("review: %w", base)
	if got := KindOf(wrapped); got != KindNotFound {
		t.Errorf("KindOf(wrapped) = %q", got)
	}
	if got := KindOf(errors.New("plain")); got != KindInternal {
		t.Errorf("KindOf(plain) = %q", got)
	}
	if !Is(wrapped, KindNotFound) || Is(nil, KindNotFound) {
		t.Error("Is mismatch")
	}
}

func TestError_messageAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := New(KindUpstream, "transcription request failed", cause)
	if err.Error() != "transcription request failed: dial tcp: refused" {
		t.Errorf("got %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("cause should unwrap")
	}
	if Validation("no files").Error() != "no files" {
		t.Error("message without cause should be the bare message")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindValidation: http.StatusBadRequest,
		KindNotFound:   http.StatusNotFound,
		KindConflict:   http.StatusConflict,
		KindConfig:     http.StatusServiceUnavailable,
		KindTimeout:    http.StatusBadGateway,
		KindDisabled:   http.StatusNotImplemented,
		KindInternal:   http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%q) = %d, want %d", kind, got, want)
		}
	}
}
