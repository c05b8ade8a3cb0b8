package invoice_test

import (
	"context"
	"errors"
	"testing"

	"wizqueue/internal/extraction"
	"wizqueue/internal/invoice"
	"wizqueue/internal/services"
	"wizqueue/internal/testsupport"
)

func newStore(t *testing.T) *invoice.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return invoice.NewStore(testsupport.MustOpenDB(t, cfg))
}

func mustCreate(t *testing.T, store *invoice.Store, name string) *invoice.Invoice {
	t.Helper()
	inv, err := store.Create(context.Background(), name, "/uploads/"+name)
	if err != nil {
		t.Fatalf("Create(%s) failed: %v", name, err)
	}
	return inv
}

func TestCreateStartsUnprocessed(t *testing.T) {
	store := newStore(t)
	inv := mustCreate(t, store, "a.pdf")

	if inv.ID == 0 || inv.Filename != "a.pdf" || inv.FilePath != "/uploads/a.pdf" {
		t.Fatalf("unexpected invoice %+v", inv)
	}
	if inv.Processed || inv.ProcessingError != "" || inv.ExtractedData != nil {
		t.Fatalf("new invoice should have no outcome: %+v", inv)
	}
	if inv.UploadDate.IsZero() || inv.CreatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
	if got := inv.State(false); got != invoice.StateUploaded {
		t.Fatalf("State = %s, want uploaded", got)
	}
	if got := inv.State(true); got != invoice.StateProcessing {
		t.Fatalf("State(inFlight) = %s, want processing", got)
	}
}

func TestCreateRequiresNames(t *testing.T) {
	store := newStore(t)
	_, err := store.Create(context.Background(), " ", "/tmp/x.pdf")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := newStore(t)
	inv, err := store.GetByID(context.Background(), 999)
	if err != nil || inv != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", inv, err)
	}
}

func TestMarkProcessedStoresProducts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	inv := mustCreate(t, store, "a.pdf")

	products := []extraction.Product{
		{ProductName: "Bolt", Details: "M3", Quantity: 7},
		{ProductName: "Nut", Quantity: 1},
	}
	if err := store.MarkProcessed(ctx, inv.ID, products); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	got, err := store.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Processed || got.ProcessingError != "" {
		t.Fatalf("unexpected outcome %+v", got)
	}
	if len(got.ExtractedData) != 2 || got.ExtractedData[0] != products[0] || got.ExtractedData[1] != products[1] {
		t.Fatalf("unexpected extracted data %+v", got.ExtractedData)
	}
	if got.State(true) != invoice.StateProcessed {
		t.Fatalf("State = %s, want processed", got.State(true))
	}
}

func TestMarkProcessedEmptyResult(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	inv := mustCreate(t, store, "a.pdf")

	if err := store.MarkProcessed(ctx, inv.ID, nil); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	got, _ := store.GetByID(ctx, inv.ID)
	if got.ExtractedData == nil || len(got.ExtractedData) != 0 {
		t.Fatalf("expected empty non-nil data, got %#v", got.ExtractedData)
	}
}

func TestMarkFailed(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	inv := mustCreate(t, store, "a.pdf")

	if err := store.MarkFailed(ctx, inv.ID, "PDF has no pages"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}
	got, _ := store.GetByID(ctx, inv.ID)
	if got.Processed || got.ProcessingError != "PDF has no pages" || got.ExtractedData != nil {
		t.Fatalf("unexpected outcome %+v", got)
	}
	if got.State(false) != invoice.StateFailed {
		t.Fatalf("State = %s, want failed", got.State(false))
	}
}

func TestTerminalTransitionIsExclusive(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		first  func(id int64) error
		second func(id int64) error
	}{
		{
			name:   "processed then failed",
			first:  func(id int64) error { return store.MarkProcessed(ctx, id, nil) },
			second: func(id int64) error { return store.MarkFailed(ctx, id, "late") },
		},
		{
			name:   "failed then processed",
			first:  func(id int64) error { return store.MarkFailed(ctx, id, "boom") },
			second: func(id int64) error { return store.MarkProcessed(ctx, id, nil) },
		},
		{
			name:   "failed twice",
			first:  func(id int64) error { return store.MarkFailed(ctx, id, "boom") },
			second: func(id int64) error { return store.MarkFailed(ctx, id, "again") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := mustCreate(t, store, tt.name+".pdf")
			if err := tt.first(inv.ID); err != nil {
				t.Fatalf("first transition failed: %v", err)
			}
			if err := tt.second(inv.ID); !errors.Is(err, invoice.ErrFinalized) {
				t.Fatalf("expected ErrFinalized, got %v", err)
			}
		})
	}
}

func TestMarkMissingInvoice(t *testing.T) {
	store := newStore(t)
	err := store.MarkFailed(context.Background(), 42, "boom")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListNewestFirstWithLimit(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		mustCreate(t, store, name)
	}

	all, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].Filename != "c.pdf" || all[2].Filename != "a.pdf" {
		t.Fatalf("unexpected order: %v", filenames(all))
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Filename != "c.pdf" {
		t.Fatalf("unexpected limited list: %v", filenames(limited))
	}
}

func TestListPending(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	a := mustCreate(t, store, "a.pdf")
	b := mustCreate(t, store, "b.pdf")
	c := mustCreate(t, store, "c.pdf")
	if err := store.MarkProcessed(ctx, a.ID, nil); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}
	if err := store.MarkFailed(ctx, c.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	pending, err := store.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b.ID {
		t.Fatalf("unexpected pending: %v", filenames(pending))
	}
}

func filenames(invoices []*invoice.Invoice) []string {
	out := make([]string, len(invoices))
	for i, inv := range invoices {
		out[i] = inv.Filename
	}
	return out
}
