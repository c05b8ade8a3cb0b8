package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"wizqueue/internal/services"
)

func TestWrapKeepsMarkerAndCause(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrConstraint, "queue", "insert", "duplicate", cause)
	if !errors.Is(err, services.ErrConstraint) {
		t.Fatalf("expected constraint marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be preserved, got %v", err)
	}
	if !strings.Contains(err.Error(), "queue: insert: duplicate") {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestWrapDefaultsToInternal(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrInternal) {
		t.Fatalf("expected internal marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestDetailStripsMarker(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{services.Validationf("status %q is not valid", "done"), `status "done" is not valid`},
		{services.NotFoundf("queue item %d", 7), "queue item 7"},
		{errors.New("plain"), "plain"},
		{nil, ""},
	}
	for _, tc := range tests {
		if got := services.Detail(tc.err); got != tc.want {
			t.Fatalf("Detail(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := services.WithRequestID(context.Background(), "req-1")
	ctx = services.WithInvoiceID(ctx, 42)
	ctx = services.WithPage(ctx, 3)

	if id, ok := services.RequestIDFromContext(ctx); !ok || id != "req-1" {
		t.Fatalf("unexpected request id: %q %v", id, ok)
	}
	if id, ok := services.InvoiceIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("unexpected invoice id: %d %v", id, ok)
	}
	if page, ok := services.PageFromContext(ctx); !ok || page != 3 {
		t.Fatalf("unexpected page: %d %v", page, ok)
	}
	if _, ok := services.PageFromContext(services.WithPage(context.Background(), 0)); ok {
		t.Fatal("expected zero page to be ignored")
	}
}
