package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mirror/internal/services"
)

// Embedder computes a face embedding from a JPEG crop. Satisfied by the
// recognition embedding client; injected here to keep the store free of a
// network dependency.
type Embedder interface {
	Embed(ctx context.Context, image []byte) ([]float32, error)
}

// ImportResult summarizes one directory import run.
type ImportResult struct {
	People    int
	Encodings int
	Skipped   []string
}

type importedPerson struct {
	Name         string            `json:"name"`
	Relationship string            `json:"relationship"`
	Language     string            `json:"language"`
	VoiceMessage string            `json:"voice_message"`
	Translations map[string]string `json:"voice_message_translations"`
}

// ImportDirectory loads a people.json plus known_faces/<person_id>/ photo tree
// into the store. Each photo is embedded and enrolled as one encoding. People
// without any usable photo are still imported; their directory names are
// collected in Skipped so the caller can report missing enrollments.
func (s *Store) ImportDirectory(ctx context.Context, dir string, embedder Embedder) (*ImportResult, error) {
	manifest := filepath.Join(dir, "people.json")
	raw, err := os.ReadFile(manifest)
	if err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "import", manifest, err)
	}

	var people map[string]importedPerson
	if err := json.Unmarshal(raw, &people); err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "import", "parse people.json", err)
	}

	result := &ImportResult{}
	ids := make([]string, 0, len(people))
	for id := range people {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		entry := people[id]
		person := &Person{
			ID:           id,
			DisplayName:  entry.Name,
			Relationship: entry.Relationship,
			Language:     entry.Language,
			VoiceMessage: entry.VoiceMessage,
			Translations: entry.Translations,
		}
		if person.DisplayName == "" {
			person.DisplayName = id
		}
		if err := s.Upsert(ctx, person); err != nil {
			return nil, err
		}
		result.People++

		photos, err := personPhotos(filepath.Join(dir, "known_faces", id))
		if err != nil {
			return nil, services.Wrap(services.ErrProfileStore, "profiles", "import", id, err)
		}
		if len(photos) == 0 {
			result.Skipped = append(result.Skipped, id)
			continue
		}

		enrolled := 0
		for _, photo := range photos {
			image, err := os.ReadFile(photo)
			if err != nil {
				return nil, services.Wrap(services.ErrProfileStore, "profiles", "import", photo, err)
			}
			vector, err := embedder.Embed(ctx, image)
			if err != nil {
				return nil, fmt.Errorf("embed %s: %w", photo, err)
			}
			if err := s.AddEncoding(ctx, id, vector); err != nil {
				return nil, err
			}
			enrolled++
		}
		if enrolled == 0 {
			result.Skipped = append(result.Skipped, id)
			continue
		}
		result.Encodings += enrolled
	}

	return result, nil
}

func personPhotos(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var photos []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".jpg" || ext == ".jpeg" {
			photos = append(photos, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(photos)
	return photos, nil
}
