package httpapi_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"wizqueue/internal/httpapi"
	"wizqueue/internal/queue"
)

func createItem(t *testing.T, e *env, name string) httpapi.QueueItem {
	t.Helper()
	rec, body := e.do(t, http.MethodPost, "/api/queue", map[string]any{"productName": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %s: status %d %+v", name, rec.Code, body)
	}
	return decode[httpapi.QueueItem](t, body.Data)
}

func listNames(t *testing.T, e *env) []string {
	t.Helper()
	rec, body := e.do(t, http.MethodGet, "/api/queue", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	items := decode[[]httpapi.QueueItem](t, body.Data)
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.ProductName)
	}
	return names
}

func TestCreateQueueItemDefaults(t *testing.T) {
	e := newEnv(t)

	rec, body := e.do(t, http.MethodPost, "/api/queue", map[string]any{"productName": "  Dragon  "})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %+v", rec.Code, body)
	}
	if body.Message != "Queue item created successfully" {
		t.Fatalf("message = %q", body.Message)
	}
	item := decode[httpapi.QueueItem](t, body.Data)
	if item.ProductName != "Dragon" || item.Quantity != 1 || item.Status != "pending" || item.Position != 0 {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.Details != nil || item.Notes != nil {
		t.Fatalf("empty optional fields should be null: %+v", item)
	}
	if item.CreatedAt == "" || item.UpdatedAt == "" {
		t.Fatalf("timestamps missing: %+v", item)
	}

	second := createItem(t, e, "Knight")
	if second.Position != 1 {
		t.Fatalf("second position = %d", second.Position)
	}
}

func TestQueueValidationErrors(t *testing.T) {
	e := newEnv(t)
	item := createItem(t, e, "Dragon")

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
		errMsg string
	}{
		{name: "missing product", method: http.MethodPost, path: "/api/queue", body: map[string]any{"quantity": 2}, want: http.StatusBadRequest, errMsg: "productName is required"},
		{name: "zero quantity", method: http.MethodPost, path: "/api/queue", body: map[string]any{"productName": "A", "quantity": 0}, want: http.StatusBadRequest},
		{name: "bad status", method: http.MethodPost, path: "/api/queue", body: map[string]any{"productName": "A", "status": "melted"}, want: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/api/queue", body: "{", want: http.StatusBadRequest, errMsg: "Invalid request body"},
		{name: "invalid id", method: http.MethodGet, path: "/api/queue/abc", want: http.StatusBadRequest, errMsg: "Invalid ID"},
		{name: "missing item", method: http.MethodGet, path: "/api/queue/999", want: http.StatusNotFound, errMsg: "Queue item not found"},
		{name: "update missing", method: http.MethodPut, path: "/api/queue/999", body: map[string]any{"quantity": 3}, want: http.StatusNotFound, errMsg: "Queue item not found"},
		{name: "update empty name", method: http.MethodPut, path: fmt.Sprintf("/api/queue/%d", item.ID), body: map[string]any{"productName": " "}, want: http.StatusBadRequest},
		{name: "delete missing", method: http.MethodDelete, path: "/api/queue/999", want: http.StatusNotFound, errMsg: "Queue item not found"},
		{name: "reorder missing fields", method: http.MethodPatch, path: "/api/queue/reorder", body: map[string]any{"itemId": item.ID}, want: http.StatusBadRequest, errMsg: "itemId and newPosition are required"},
		{name: "reorder negative", method: http.MethodPatch, path: "/api/queue/reorder", body: map[string]any{"itemId": item.ID, "newPosition": -1}, want: http.StatusBadRequest},
		{name: "reorder unknown item", method: http.MethodPatch, path: "/api/queue/reorder", body: map[string]any{"itemId": 999, "newPosition": 0}, want: http.StatusNotFound},
		{name: "status empty", method: http.MethodPatch, path: fmt.Sprintf("/api/queue/%d/status", item.ID), body: map[string]any{}, want: http.StatusBadRequest, errMsg: "Status is required"},
		{name: "status invalid", method: http.MethodPatch, path: fmt.Sprintf("/api/queue/%d/status", item.ID), body: map[string]any{"status": "melted"}, want: http.StatusBadRequest},
		{name: "batch not array", method: http.MethodPost, path: "/api/queue/batch", body: map[string]any{"items": "x"}, want: http.StatusBadRequest, errMsg: "Items must be an array"},
		{name: "batch missing items", method: http.MethodPost, path: "/api/queue/batch", body: map[string]any{}, want: http.StatusBadRequest, errMsg: "Items must be an array"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := e.do(t, tc.method, tc.path, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (%+v)", rec.Code, tc.want, body)
			}
			if body.Success {
				t.Fatalf("expected failure envelope, got %+v", body)
			}
			if tc.errMsg != "" && body.Error != tc.errMsg {
				t.Fatalf("error = %q, want %q", body.Error, tc.errMsg)
			}
		})
	}
}

func TestUpdateAndStatus(t *testing.T) {
	e := newEnv(t)
	item := createItem(t, e, "Dragon")
	path := fmt.Sprintf("/api/queue/%d", item.ID)

	rec, body := e.do(t, http.MethodPut, path, map[string]any{"quantity": 4, "notes": "PLA, red"})
	if rec.Code != http.StatusOK || body.Message != "Queue item updated successfully" {
		t.Fatalf("update = %d %+v", rec.Code, body)
	}
	updated := decode[httpapi.QueueItem](t, body.Data)
	if updated.Quantity != 4 || updated.Notes == nil || *updated.Notes != "PLA, red" {
		t.Fatalf("unexpected update %+v", updated)
	}

	rec, body = e.do(t, http.MethodPatch, path+"/status", map[string]any{"status": "printing"})
	if rec.Code != http.StatusOK || body.Message != "Status updated successfully" {
		t.Fatalf("status = %d %+v", rec.Code, body)
	}
	if got := decode[httpapi.QueueItem](t, body.Data).Status; got != "printing" {
		t.Fatalf("status = %q", got)
	}

	rec, body = e.do(t, http.MethodGet, "/api/queue?status=printing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("filtered list = %d", rec.Code)
	}
	if items := decode[[]httpapi.QueueItem](t, body.Data); len(items) != 1 {
		t.Fatalf("filtered items = %+v", items)
	}
	rec, _ = e.do(t, http.MethodGet, "/api/queue?status=melted", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad filter = %d", rec.Code)
	}
}

func TestReorderAndDelete(t *testing.T) {
	e := newEnv(t)
	a := createItem(t, e, "A")
	createItem(t, e, "B")
	c := createItem(t, e, "C")

	rec, body := e.do(t, http.MethodPatch, "/api/queue/reorder", map[string]any{"itemId": c.ID, "newPosition": 0})
	if rec.Code != http.StatusOK || body.Message != "Queue reordered successfully" {
		t.Fatalf("reorder = %d %+v", rec.Code, body)
	}
	if got := fmt.Sprint(listNames(t, e)); got != "[C A B]" {
		t.Fatalf("order after reorder = %s", got)
	}

	rec, body = e.do(t, http.MethodDelete, fmt.Sprintf("/api/queue/%d", a.ID), nil)
	if rec.Code != http.StatusOK || body.Message != "Queue item deleted successfully" {
		t.Fatalf("delete = %d %+v", rec.Code, body)
	}
	if got := fmt.Sprint(listNames(t, e)); got != "[C B]" {
		t.Fatalf("order after delete = %s", got)
	}
	rec, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/queue/%d", a.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleted item lookup = %d", rec.Code)
	}
}

func TestBatchCreate(t *testing.T) {
	e := newEnv(t)
	createItem(t, e, "A")
	createItem(t, e, "B")

	rec, body := e.do(t, http.MethodPost, "/api/queue/batch", map[string]any{
		"items": []map[string]any{
			{"productName": "X", "quantity": 2},
			{"productName": "Y"},
		},
		"basePosition": 1,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("batch = %d %+v", rec.Code, body)
	}
	if body.Message != "2 queue items created successfully" {
		t.Fatalf("message = %q", body.Message)
	}
	created := decode[[]httpapi.QueueItem](t, body.Data)
	if len(created) != 2 || created[0].Quantity != 2 {
		t.Fatalf("created = %+v", created)
	}
	if got := fmt.Sprint(listNames(t, e)); got != "[A X Y B]" {
		t.Fatalf("order after batch = %s", got)
	}

	// An invalid entry rejects the whole batch.
	rec, _ = e.do(t, http.MethodPost, "/api/queue/batch", map[string]any{
		"items": []map[string]any{{"productName": "Z"}, {"productName": ""}},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid batch = %d", rec.Code)
	}
	items, err := e.queue.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("batch should be atomic, have %d items", len(items))
	}
}

func TestCreateWithInvoiceReference(t *testing.T) {
	e := newEnv(t)
	inv, err := e.invoices.Create(context.Background(), "a.pdf", "/tmp/a.pdf")
	if err != nil {
		t.Fatalf("Create invoice: %v", err)
	}
	rec, body := e.do(t, http.MethodPost, "/api/queue", map[string]any{"productName": "Widget", "invoiceId": inv.ID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d %+v", rec.Code, body)
	}
	item := decode[httpapi.QueueItem](t, body.Data)
	if item.InvoiceID == nil || *item.InvoiceID != inv.ID {
		t.Fatalf("invoice id = %v", item.InvoiceID)
	}
	stored, err := e.queue.GetByID(context.Background(), item.ID)
	if err != nil || stored == nil || stored.Status != queue.StatusPending {
		t.Fatalf("stored = %+v err=%v", stored, err)
	}
}
