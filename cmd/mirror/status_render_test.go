package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"mirror/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	deps := []ipc.DependencyStatus{
		{Name: "Text-to-speech", Available: false, Optional: true, Detail: "binary \"espeak-ng\" not found"},
		{Name: "Text-to-speech", Available: true, Command: "espeak-ng"},
	}
	lines := dependencyLines(deps, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[WARN]") {
		t.Fatalf("expected warn for missing optional dependency, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[OK] Ready (command: espeak-ng)") {
		t.Fatalf("expected ready detail, got %q", lines[1])
	}
	if !strings.Contains(lines[2], "Missing dependencies") {
		t.Fatalf("expected missing dependencies summary, got %q", lines[2])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestStatusKindForState(t *testing.T) {
	if statusKindForState("known") != statusOK {
		t.Fatal("known should render OK")
	}
	if statusKindForState("camera_error") != statusError {
		t.Fatal("camera_error should render ERROR")
	}
	if statusKindForState("unknown") != statusWarn {
		t.Fatal("unknown should render WARN")
	}
	if statusKindForState("neutral") != statusInfo {
		t.Fatal("neutral should render INFO")
	}
}
