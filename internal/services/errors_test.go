package services_test

import (
	"errors"
	"strings"
	"testing"

	"mirror/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrAdapter, "dispatcher", "match", "embed call failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAdapter) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"dispatcher", "match", "embed call failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestFatalOnlyForSourceUnavailable(t *testing.T) {
	fatal := services.Wrap(services.ErrSourceUnavailable, "pipeline", "read", "stream closed", nil)
	if !services.Fatal(fatal) {
		t.Fatal("source unavailable must be fatal")
	}
	for _, marker := range []error{services.ErrAdapter, services.ErrTimeout, services.ErrProfileStore, services.ErrSink} {
		if services.Fatal(services.Wrap(marker, "x", "y", "z", nil)) {
			t.Fatalf("marker %v must not be fatal", marker)
		}
	}
	if services.Fatal(nil) {
		t.Fatal("nil error must not be fatal")
	}
}
