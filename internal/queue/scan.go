package queue

import (
	"database/sql"

	"wizqueue/internal/storage"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*Item, error) {
	var (
		item      Item
		details   sql.NullString
		status    string
		invoiceID sql.NullInt64
		notes     sql.NullString
		createdAt string
		updatedAt string
	)
	if err := row.Scan(
		&item.ID,
		&item.ProductName,
		&details,
		&item.Quantity,
		&item.Position,
		&status,
		&invoiceID,
		&item.Priority,
		&notes,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	item.Details = details.String
	item.Status = Status(status)
	item.InvoiceID = storage.Int64Ptr(invoiceID)
	item.Notes = notes.String
	item.CreatedAt = storage.ParseTime(createdAt)
	item.UpdatedAt = storage.ParseTime(updatedAt)
	return &item, nil
}
