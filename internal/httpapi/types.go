package httpapi

import (
	"time"

	"wizqueue/internal/extraction"
	"wizqueue/internal/invoice"
	"wizqueue/internal/queue"
	"wizqueue/internal/storage"
)

// QueueItem is the wire form of queue.Item.
type QueueItem struct {
	ID          int64   `json:"id"`
	ProductName string  `json:"productName"`
	Details     *string `json:"details"`
	Quantity    int     `json:"quantity"`
	Position    int     `json:"position"`
	Status      string  `json:"status"`
	InvoiceID   *int64  `json:"invoiceId"`
	Priority    int     `json:"priority"`
	Notes       *string `json:"notes"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// Invoice is the wire form of invoice.Invoice.
type Invoice struct {
	ID              int64                `json:"id"`
	Filename        string               `json:"filename"`
	FilePath        *string              `json:"filePath"`
	UploadDate      string               `json:"uploadDate"`
	Processed       bool                 `json:"processed"`
	ProcessingError *string              `json:"processingError"`
	ExtractedData   []extraction.Product `json:"extractedData"`
	CreatedAt       string               `json:"createdAt"`
	State           invoice.State        `json:"state"`
}

// InvoiceStatus is returned by the status poll endpoint.
type InvoiceStatus struct {
	InvoiceID       int64                `json:"invoiceId"`
	Filename        string               `json:"filename"`
	Processed       bool                 `json:"processed"`
	ProcessingError *string              `json:"processingError"`
	ExtractedData   []extraction.Product `json:"extractedData"`
	State           invoice.State        `json:"state"`
}

// UploadResult acknowledges a stored upload.
type UploadResult struct {
	InvoiceID int64  `json:"invoiceId"`
	Filename  string `json:"filename"`
	Message   string `json:"message"`
}

type createItemRequest struct {
	ProductName string `json:"productName"`
	Details     string `json:"details"`
	Quantity    *int   `json:"quantity"`
	Position    *int   `json:"position"`
	Status      string `json:"status"`
	InvoiceID   *int64 `json:"invoiceId"`
	Priority    int    `json:"priority"`
	Notes       string `json:"notes"`
}

type updateItemRequest struct {
	ProductName *string `json:"productName"`
	Details     *string `json:"details"`
	Quantity    *int    `json:"quantity"`
	Position    *int    `json:"position"`
	Status      *string `json:"status"`
	Priority    *int    `json:"priority"`
	Notes       *string `json:"notes"`
}

type reorderRequest struct {
	ItemID      *int64 `json:"itemId"`
	NewPosition *int   `json:"newPosition"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (r createItemRequest) toInput() queue.CreateInput {
	quantity := 1
	if r.Quantity != nil {
		quantity = *r.Quantity
	}
	return queue.CreateInput{
		ProductName: r.ProductName,
		Details:     r.Details,
		Quantity:    quantity,
		Position:    r.Position,
		Status:      queue.Status(r.Status),
		InvoiceID:   r.InvoiceID,
		Priority:    r.Priority,
		Notes:       r.Notes,
	}
}

func (r updateItemRequest) toInput() (queue.UpdateInput, error) {
	patch := queue.UpdateInput{
		ProductName: r.ProductName,
		Details:     r.Details,
		Quantity:    r.Quantity,
		Position:    r.Position,
		Priority:    r.Priority,
		Notes:       r.Notes,
	}
	if r.Status != nil {
		status, err := queue.ParseStatus(*r.Status)
		if err != nil {
			return patch, err
		}
		patch.Status = &status
	}
	return patch, nil
}

func toQueueItem(item *queue.Item) QueueItem {
	return QueueItem{
		ID:          item.ID,
		ProductName: item.ProductName,
		Details:     optional(item.Details),
		Quantity:    item.Quantity,
		Position:    item.Position,
		Status:      string(item.Status),
		InvoiceID:   item.InvoiceID,
		Priority:    item.Priority,
		Notes:       optional(item.Notes),
		CreatedAt:   formatTime(item.CreatedAt),
		UpdatedAt:   formatTime(item.UpdatedAt),
	}
}

func toQueueItems(items []*queue.Item) []QueueItem {
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		out = append(out, toQueueItem(item))
	}
	return out
}

func toInvoice(inv *invoice.Invoice, inFlight bool) Invoice {
	return Invoice{
		ID:              inv.ID,
		Filename:        inv.Filename,
		FilePath:        optional(inv.FilePath),
		UploadDate:      formatTime(inv.UploadDate),
		Processed:       inv.Processed,
		ProcessingError: optional(inv.ProcessingError),
		ExtractedData:   inv.ExtractedData,
		CreatedAt:       formatTime(inv.CreatedAt),
		State:           inv.State(inFlight),
	}
}

func toInvoiceStatus(inv *invoice.Invoice, inFlight bool) InvoiceStatus {
	return InvoiceStatus{
		InvoiceID:       inv.ID,
		Filename:        inv.Filename,
		Processed:       inv.Processed,
		ProcessingError: optional(inv.ProcessingError),
		ExtractedData:   inv.ExtractedData,
		State:           inv.State(inFlight),
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return storage.FormatTime(t)
}
