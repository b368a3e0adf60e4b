package speech

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mirror/internal/logging"
	"mirror/internal/profiles"
)

func TestNewRequiresCommand(t *testing.T) {
	_, err := New(logging.NewNop(), Options{})
	if err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestSayRunsCommandWithSubstitutedArgs(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spoken.txt")
	s, err := New(logging.NewNop(), Options{
		Command:   "sh",
		ExtraArgs: []string{"-c", "printf '%s %s' \"$0\" \"$1\" > " + marker, "{language}", "{message}"},
		Ceiling:   5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Say(context.Background(), "Hello Ana", "en")

	deadline := time.Now().Add(3 * time.Second)
	var content []byte
	for time.Now().Before(deadline) {
		content, err = os.ReadFile(marker)
		if err == nil && len(content) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := string(content); got != "en Hello Ana" {
		t.Errorf("expected substituted args, got %q", got)
	}
}

func TestSayAppendsMessageWithoutPlaceholder(t *testing.T) {
	restore := commandContext
	defer func() { commandContext = restore }()

	var gotArgs []string
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		gotArgs = append([]string{name}, args...)
		return exec.CommandContext(ctx, "true")
	}

	s, err := New(logging.NewNop(), Options{Command: "espeak-ng", ExtraArgs: []string{"-v", "{language}"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	s.Say(context.Background(), "Hi there", "es")

	deadline := time.Now().Add(3 * time.Second)
	for len(gotArgs) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	want := "espeak-ng -v es Hi there"
	if got := strings.Join(gotArgs, " "); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestSayDropsOverlappingMessage(t *testing.T) {
	restore := commandContext
	defer func() { commandContext = restore }()

	calls := make(chan struct{}, 8)
	release := make(chan struct{})
	commandContext = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		calls <- struct{}{}
		<-release
		return exec.CommandContext(ctx, "true")
	}

	s, err := New(logging.NewNop(), Options{Command: "espeak-ng"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Say(context.Background(), "first", "en")
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("first message never started")
	}

	// Second message while the first is still playing must be dropped.
	s.Say(context.Background(), "second", "en")
	close(release)

	select {
	case <-calls:
		t.Error("overlapping message was played")
	case <-time.After(200 * time.Millisecond):
	}
}

func testPerson() *profiles.Person {
	return &profiles.Person{
		ID:           "ana",
		DisplayName:  "Ana",
		Language:     "es",
		VoiceMessage: "Hola, soy Ana",
		Translations: map[string]string{
			"es": "Hola, soy Ana",
			"en": "Hi, it's Ana",
			"de": "Hallo, ich bin Ana",
		},
	}
}

func TestSelectMessageExactMatch(t *testing.T) {
	message, tag := SelectMessage(testPerson(), "en")
	if tag != "en" || message != "Hi, it's Ana" {
		t.Errorf("got %q in %q", message, tag)
	}
}

func TestSelectMessageRegionalVariantCollapses(t *testing.T) {
	message, tag := SelectMessage(testPerson(), "en-US")
	if tag != "en" || message != "Hi, it's Ana" {
		t.Errorf("expected en-US to find en, got %q in %q", message, tag)
	}
}

func TestSelectMessageFallsBackToPreference(t *testing.T) {
	message, tag := SelectMessage(testPerson(), "ja")
	if tag != "es" || message != "Hola, soy Ana" {
		t.Errorf("expected fallback to person preference, got %q in %q", message, tag)
	}
}

func TestSelectMessageNoTranslationsUsesGeneratedGreeting(t *testing.T) {
	person := &profiles.Person{ID: "ben", DisplayName: "Ben"}
	message, _ := SelectMessage(person, "en")
	if message != "Hello Ben!" {
		t.Errorf("expected generated greeting, got %q", message)
	}
}
