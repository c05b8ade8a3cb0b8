package queue

import (
	"fmt"
	"strings"
	"time"

	"wizqueue/internal/services"
)

// Status tracks where a print job is in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPrinting  Status = "printing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var statusOrder = []Status{StatusPending, StatusPrinting, StatusCompleted, StatusCancelled}

// AllStatuses returns every known status in display order.
func AllStatuses() []Status {
	return append([]Status(nil), statusOrder...)
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, candidate := range statusOrder {
		if s == candidate {
			return true
		}
	}
	return false
}

// ParseStatus normalizes user input into a Status.
func ParseStatus(value string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	if status == "" {
		return "", services.Validationf("status is required")
	}
	if !status.Valid() {
		return "", services.Validationf("invalid status %q (expected one of pending, printing, completed, cancelled)", value)
	}
	return status, nil
}

// Item is one print job.
type Item struct {
	ID          int64
	ProductName string
	Details     string
	Quantity    int
	Position    int
	Status      Status
	InvoiceID   *int64
	Priority    int
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput describes a new item. Position is optional; nil appends.
type CreateInput struct {
	ProductName string
	Details     string
	Quantity    int
	Position    *int
	Status      Status
	InvoiceID   *int64
	Priority    int
	Notes       string
}

func (in CreateInput) normalized() (CreateInput, error) {
	in.ProductName = strings.TrimSpace(in.ProductName)
	in.Details = strings.TrimSpace(in.Details)
	in.Notes = strings.TrimSpace(in.Notes)
	if in.ProductName == "" {
		return in, services.Validationf("productName is required")
	}
	if in.Quantity < 1 {
		return in, services.Validationf("quantity must be at least 1 (got %d)", in.Quantity)
	}
	if in.Position != nil && *in.Position < 0 {
		return in, services.Validationf("position must not be negative (got %d)", *in.Position)
	}
	if in.Status == "" {
		in.Status = StatusPending
	}
	if !in.Status.Valid() {
		return in, services.Validationf("invalid status %q", in.Status)
	}
	return in, nil
}

// UpdateInput is a partial update; nil fields are left unchanged.
type UpdateInput struct {
	ProductName *string
	Details     *string
	Quantity    *int
	Position    *int
	Status      *Status
	Priority    *int
	Notes       *string
}

// IsEmpty reports whether the patch changes nothing.
func (u UpdateInput) IsEmpty() bool {
	return u.ProductName == nil && u.Details == nil && u.Quantity == nil && u.Position == nil &&
		u.Status == nil && u.Priority == nil && u.Notes == nil
}

func (u UpdateInput) validate() error {
	if u.ProductName != nil && strings.TrimSpace(*u.ProductName) == "" {
		return services.Validationf("productName must not be empty")
	}
	if u.Quantity != nil && *u.Quantity < 1 {
		return services.Validationf("quantity must be at least 1 (got %d)", *u.Quantity)
	}
	if u.Position != nil && *u.Position < 0 {
		return services.Validationf("position must not be negative (got %d)", *u.Position)
	}
	if u.Status != nil && !u.Status.Valid() {
		return services.Validationf("invalid status %q", *u.Status)
	}
	return nil
}

// Stats counts items per status.
type Stats map[Status]int

// Total sums every status.
func (s Stats) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

func (s Stats) String() string {
	parts := make([]string, 0, len(statusOrder))
	for _, status := range statusOrder {
		parts = append(parts, fmt.Sprintf("%s=%d", status, s[status]))
	}
	return strings.Join(parts, " ")
}
