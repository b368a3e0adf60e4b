package testsupport

import (
	"testing"

	"mirror/internal/config"
	"mirror/internal/profiles"
)

// MustOpenStore opens the profile store for the given config, failing the
// test on error and closing the store during cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *profiles.Store {
	t.Helper()

	store, err := profiles.Open(cfg)
	if err != nil {
		t.Fatalf("open profile store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("close profile store: %v", err)
		}
	})
	return store
}
