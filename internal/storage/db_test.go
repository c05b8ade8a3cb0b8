package storage_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wizqueue/internal/services"
	"wizqueue/internal/storage"
)

func openTestDB(t *testing.T) (*storage.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "wizqueue.db")
	db, err := storage.OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestOpenSQLiteAppliesMigrationsOnce(t *testing.T) {
	db, path := openTestDB(t)
	ctx := context.Background()

	statuses, err := db.Migrations(ctx)
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if len(statuses) == 0 {
		t.Fatal("expected embedded migrations")
	}
	for _, status := range statuses {
		if status.AppliedAt == "" {
			t.Fatalf("migration %s not applied", status.Version)
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	again, err := reopened.Migrations(ctx)
	if err != nil {
		t.Fatalf("Migrations failed: %v", err)
	}
	if again[0].AppliedAt != statuses[0].AppliedAt {
		t.Fatalf("migration re-applied: %q != %q", again[0].AppliedAt, statuses[0].AppliedAt)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()
	sentinel := errors.New("abort")

	err := db.WithTx(ctx, func(tx *storage.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO invoices (filename, file_path, upload_date, processed, created_at) VALUES (?, ?, ?, ?, ?)`,
			"a.pdf", "/tmp/a.pdf", storage.Now(), false, storage.Now()); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&count); err != nil {
		t.Fatalf("count invoices: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback, found %d rows", count)
	}
}

func TestConstraintViolationsAreClassified(t *testing.T) {
	db, _ := openTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO queue_items (product_name, quantity, position, status, priority, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"Mug", 0, 0, "pending", 0, storage.Now(), storage.Now())
	if err == nil {
		t.Fatal("expected CHECK violation")
	}
	if !errors.Is(err, services.ErrConstraint) {
		t.Fatalf("expected constraint marker, got %v", err)
	}
	if !storage.IsConstraint(err) {
		t.Fatalf("expected IsConstraint to match %v", err)
	}
}

func TestTimestampsSortLexically(t *testing.T) {
	early := storage.FormatTime(time.Date(2026, 1, 2, 3, 4, 5, 100_000_000, time.UTC))
	late := storage.FormatTime(time.Date(2026, 1, 2, 3, 4, 5, 120_000_000, time.UTC))
	if !(early < late) {
		t.Fatalf("expected %q < %q", early, late)
	}
	parsed := storage.ParseTime(early)
	if parsed.Nanosecond() != 100_000_000 {
		t.Fatalf("unexpected round trip: %v", parsed)
	}
	if !storage.ParseTime("2026-01-02 03:04:05").Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Fatal("expected sqlite default layout to parse")
	}
	if !storage.ParseTime("garbage").IsZero() {
		t.Fatal("expected zero time for garbage")
	}
}
