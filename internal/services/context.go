package services

import "context"

type contextKey string

const (
	invoiceIDKey contextKey = "invoice_id"
	pageKey      contextKey = "page"
	requestIDKey contextKey = "request_id"
)

// WithInvoiceID annotates context with the invoice being processed.
func WithInvoiceID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, invoiceIDKey, id)
}

// InvoiceIDFromContext extracts the invoice identifier if present.
func InvoiceIDFromContext(ctx context.Context) (int64, bool) {
	switch val := ctx.Value(invoiceIDKey).(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithPage annotates context with the 1-indexed page number being extracted.
func WithPage(ctx context.Context, page int) context.Context {
	if page <= 0 {
		return ctx
	}
	return context.WithValue(ctx, pageKey, page)
}

// PageFromContext returns the page number if present.
func PageFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(pageKey).(int)
	return v, ok && v > 0
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
