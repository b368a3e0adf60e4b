package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mirror/internal/config"
	"mirror/internal/services"
)

// Store manages profile persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the profile database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database at an explicit path and applies the schema.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "open", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, services.Wrap(services.ErrProfileStore, "profiles", "open",
				fmt.Sprintf("apply pragma %q", pragma), execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "open", "apply schema", err)
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Upsert inserts or replaces a person profile.
func (s *Store) Upsert(ctx context.Context, person *Person) error {
	if person == nil || person.ID == "" {
		return services.Wrap(services.ErrProfileStore, "profiles", "upsert", "person_id is required", nil)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	translations := person.Translations
	if translations == nil {
		translations = map[string]string{}
	}
	translationsJSON, err := json.Marshal(translations)
	if err != nil {
		return services.Wrap(services.ErrProfileStore, "profiles", "upsert", "marshal translations", err)
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO people (person_id, display_name, relationship, language, voice_message, translations_json, photo_ref, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(person_id) DO UPDATE SET
            display_name = excluded.display_name,
            relationship = excluded.relationship,
            language = excluded.language,
            voice_message = excluded.voice_message,
            translations_json = excluded.translations_json,
            photo_ref = excluded.photo_ref,
            updated_at = excluded.updated_at`,
		person.ID, person.DisplayName, person.Relationship, person.Language,
		person.VoiceMessage, string(translationsJSON), person.PhotoRef, now, now,
	)
	if err != nil {
		return services.Wrap(services.ErrProfileStore, "profiles", "upsert", person.ID, err)
	}
	return nil
}

// Get returns one person by ID, or nil when absent.
func (s *Store) Get(ctx context.Context, personID string) (*Person, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT person_id, display_name, relationship, language, voice_message, translations_json, photo_ref, created_at, updated_at
        FROM people WHERE person_id = ?`, personID)
	person, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "get", personID, err)
	}
	return person, nil
}

// Remove deletes a person and their encodings.
func (s *Store) Remove(ctx context.Context, personID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM people WHERE person_id = ?", personID)
	if err != nil {
		return services.Wrap(services.ErrProfileStore, "profiles", "remove", personID, err)
	}
	return nil
}

// LoadAll returns every enrolled person keyed by ID. The map is empty, never
// nil, when no one is enrolled.
func (s *Store) LoadAll(ctx context.Context) (map[string]*Person, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT person_id, display_name, relationship, language, voice_message, translations_json, photo_ref, created_at, updated_at
        FROM people ORDER BY person_id`)
	if err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "load", "query people", err)
	}
	defer rows.Close()

	people := make(map[string]*Person)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrProfileStore, "profiles", "load", "scan person", err)
		}
		people[person.ID] = person
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "load", "iterate people", err)
	}
	return people, nil
}

// AddEncoding stores one face embedding for a person.
func (s *Store) AddEncoding(ctx context.Context, personID string, vector []float32) error {
	if len(vector) == 0 {
		return services.Wrap(services.ErrProfileStore, "profiles", "encode", "empty vector", nil)
	}
	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return services.Wrap(services.ErrProfileStore, "profiles", "encode", "marshal vector", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO encodings (person_id, vector_json, created_at) VALUES (?, ?, ?)",
		personID, string(vectorJSON), now)
	if err != nil {
		return services.Wrap(services.ErrProfileStore, "profiles", "encode", personID, err)
	}
	return nil
}

// Encodings returns all enrolled encodings, for the enrollment index build.
func (s *Store) Encodings(ctx context.Context) ([]Encoding, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, person_id, vector_json FROM encodings ORDER BY id")
	if err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "encodings", "query", err)
	}
	defer rows.Close()

	var encodings []Encoding
	for rows.Next() {
		var enc Encoding
		var vectorJSON string
		if err := rows.Scan(&enc.ID, &enc.PersonID, &vectorJSON); err != nil {
			return nil, services.Wrap(services.ErrProfileStore, "profiles", "encodings", "scan", err)
		}
		if err := json.Unmarshal([]byte(vectorJSON), &enc.Vector); err != nil {
			return nil, services.Wrap(services.ErrProfileStore, "profiles", "encodings", "unmarshal vector", err)
		}
		encodings = append(encodings, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "encodings", "iterate", err)
	}
	return encodings, nil
}

// RecordRecognition appends one history row.
func (s *Store) RecordRecognition(ctx context.Context, personID string, distance float64, frameSeq uint64, announced bool) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO history (event_id, person_id, distance, frame_seq, announced, occurred_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.NewString(), personID, distance, int64(frameSeq), boolToInt(announced), now)
	if err != nil {
		return services.Wrap(services.ErrProfileStore, "profiles", "history", personID, err)
	}
	return nil
}

// History returns the most recent recognition events, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, event_id, person_id, distance, frame_seq, announced, occurred_at
        FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "history", "query", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var announced int
		var occurredAt string
		var frameSeq int64
		if err := rows.Scan(&event.ID, &event.EventID, &event.PersonID, &event.Distance, &frameSeq, &announced, &occurredAt); err != nil {
			return nil, services.Wrap(services.ErrProfileStore, "profiles", "history", "scan", err)
		}
		event.FrameSeq = uint64(frameSeq)
		event.Announced = announced != 0
		if ts, parseErr := time.Parse(time.RFC3339Nano, occurredAt); parseErr == nil {
			event.OccurredAt = ts
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrProfileStore, "profiles", "history", "iterate", err)
	}
	return events, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (*Person, error) {
	var person Person
	var translationsJSON, createdAt, updatedAt string
	if err := row.Scan(&person.ID, &person.DisplayName, &person.Relationship, &person.Language,
		&person.VoiceMessage, &translationsJSON, &person.PhotoRef, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(translationsJSON), &person.Translations); err != nil {
		return nil, fmt.Errorf("unmarshal translations for %s: %w", person.ID, err)
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		person.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		person.UpdatedAt = ts
	}
	return &person, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
