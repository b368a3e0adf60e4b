package profiles_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type stubEmbedder struct {
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, image []byte) ([]float32, error) {
	e.calls++
	return []float32{float32(len(image)), 1}, nil
}

func writeImportTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	manifest := `{
        "ana": {
            "name": "Ana",
            "relationship": "daughter",
            "language": "es",
            "voice_message": "Hola",
            "voice_message_translations": {"es": "Hola", "en": "Hello"}
        },
        "ben": {
            "name": "Ben",
            "relationship": "neighbor",
            "language": "en",
            "voice_message": "Hi there"
        }
    }`
	if err := os.WriteFile(filepath.Join(dir, "people.json"), []byte(manifest), 0o644); err != nil {
		t.Fatalf("write people.json: %v", err)
	}

	anaDir := filepath.Join(dir, "known_faces", "ana")
	if err := os.MkdirAll(anaDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"front.jpg", "side.jpeg", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(anaDir, name), []byte("fake-image"), 0o644); err != nil {
			t.Fatalf("write photo: %v", err)
		}
	}
	return dir
}

func TestImportDirectory(t *testing.T) {
	store := openTestStore(t)
	dir := writeImportTree(t)
	embedder := &stubEmbedder{}

	result, err := store.ImportDirectory(context.Background(), dir, embedder)
	if err != nil {
		t.Fatalf("ImportDirectory: %v", err)
	}
	if result.People != 2 {
		t.Errorf("expected 2 people imported, got %d", result.People)
	}
	if result.Encodings != 2 {
		t.Errorf("expected 2 encodings (jpg+jpeg only), got %d", result.Encodings)
	}
	if embedder.calls != 2 {
		t.Errorf("expected embedder called per photo, got %d calls", embedder.calls)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "ben" {
		t.Errorf("expected ben skipped for missing photos, got %v", result.Skipped)
	}

	ana, err := store.Get(context.Background(), "ana")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ana == nil || ana.Translations["en"] != "Hello" {
		t.Errorf("imported profile incomplete: %+v", ana)
	}
}

func TestImportDirectoryMissingManifest(t *testing.T) {
	store := openTestStore(t)

	_, err := store.ImportDirectory(context.Background(), t.TempDir(), &stubEmbedder{})
	if err == nil {
		t.Fatal("expected error for missing people.json")
	}
}
