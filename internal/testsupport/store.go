package testsupport

import (
	"context"
	"testing"

	"wizqueue/internal/config"
	"wizqueue/internal/storage"
)

// MustOpenDB opens the configured store and closes it when the test ends.
func MustOpenDB(t testing.TB, cfg *config.Config) *storage.DB {
	t.Helper()
	db, err := storage.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}
