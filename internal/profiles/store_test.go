package profiles_test

import (
	"context"
	"path/filepath"
	"testing"

	"mirror/internal/profiles"
)

func openTestStore(t *testing.T) *profiles.Store {
	t.Helper()
	store, err := profiles.OpenPath(filepath.Join(t.TempDir(), "profiles.db"))
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store
}

func TestUpsertAndGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	person := &profiles.Person{
		ID:           "ana",
		DisplayName:  "Ana",
		Relationship: "daughter",
		Language:     "es",
		VoiceMessage: "Hola, soy Ana",
		Translations: map[string]string{"es": "Hola, soy Ana", "en": "Hi, it's Ana"},
	}
	if err := store.Upsert(ctx, person); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	loaded, err := store.Get(ctx, "ana")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected person, got nil")
	}
	if loaded.DisplayName != "Ana" || loaded.Relationship != "daughter" {
		t.Errorf("unexpected person: %+v", loaded)
	}
	if loaded.Translations["en"] != "Hi, it's Ana" {
		t.Errorf("translations not preserved: %+v", loaded.Translations)
	}
	if loaded.CreatedAt.IsZero() || loaded.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestUpsertOverwritesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, &profiles.Person{ID: "ben", DisplayName: "Ben"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Upsert(ctx, &profiles.Person{ID: "ben", DisplayName: "Benjamin", Language: "en"}); err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	loaded, err := store.Get(ctx, "ben")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.DisplayName != "Benjamin" || loaded.Language != "en" {
		t.Errorf("update not applied: %+v", loaded)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := openTestStore(t)

	loaded, err := store.Get(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing person, got %+v", loaded)
	}
}

func TestRemoveCascadesEncodings(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, &profiles.Person{ID: "carla", DisplayName: "Carla"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.AddEncoding(ctx, "carla", []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("AddEncoding: %v", err)
	}
	if err := store.Remove(ctx, "carla"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	encodings, err := store.Encodings(ctx)
	if err != nil {
		t.Fatalf("Encodings: %v", err)
	}
	if len(encodings) != 0 {
		t.Errorf("expected encodings deleted with person, got %d", len(encodings))
	}
}

func TestLoadAllAndEncodings(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"ana", "ben"} {
		if err := store.Upsert(ctx, &profiles.Person{ID: id, DisplayName: id}); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	if err := store.AddEncoding(ctx, "ana", []float32{1, 0}); err != nil {
		t.Fatalf("AddEncoding: %v", err)
	}
	if err := store.AddEncoding(ctx, "ana", []float32{0.9, 0.1}); err != nil {
		t.Fatalf("AddEncoding: %v", err)
	}

	people, err := store.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(people) != 2 {
		t.Fatalf("expected 2 people, got %d", len(people))
	}

	encodings, err := store.Encodings(ctx)
	if err != nil {
		t.Fatalf("Encodings: %v", err)
	}
	if len(encodings) != 2 {
		t.Fatalf("expected 2 encodings, got %d", len(encodings))
	}
	for _, enc := range encodings {
		if enc.PersonID != "ana" || len(enc.Vector) != 2 {
			t.Errorf("unexpected encoding: %+v", enc)
		}
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, &profiles.Person{ID: "ana", DisplayName: "Ana"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.RecordRecognition(ctx, "ana", 0.31, 10, true); err != nil {
		t.Fatalf("RecordRecognition: %v", err)
	}
	if err := store.RecordRecognition(ctx, "ana", 0.42, 25, false); err != nil {
		t.Fatalf("RecordRecognition: %v", err)
	}

	events, err := store.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].FrameSeq != 25 || events[0].Announced {
		t.Errorf("expected newest event first without announce, got %+v", events[0])
	}
	if events[1].FrameSeq != 10 || !events[1].Announced {
		t.Errorf("expected announced event second, got %+v", events[1])
	}
	if events[0].EventID == "" || events[0].EventID == events[1].EventID {
		t.Error("expected distinct non-empty event IDs")
	}
}

func TestOpenPathIsReusable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")
	ctx := context.Background()

	store, err := profiles.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	if err := store.Upsert(ctx, &profiles.Person{ID: "ana", DisplayName: "Ana"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := profiles.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	people, err := reopened.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(people) != 1 {
		t.Errorf("expected data to survive reopen, got %d people", len(people))
	}
}
