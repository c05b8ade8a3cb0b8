package invoice

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"wizqueue/internal/extraction"
	"wizqueue/internal/services"
	"wizqueue/internal/storage"
)

const invoiceColumns = `id, filename, file_path, upload_date, processed, processing_error, extracted_data, created_at`

// Store persists invoices.
type Store struct {
	db *storage.DB
}

// NewStore wraps an open storage handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// Create records a freshly uploaded file.
func (s *Store) Create(ctx context.Context, filename, filePath string) (*Invoice, error) {
	filename = strings.TrimSpace(filename)
	filePath = strings.TrimSpace(filePath)
	if filename == "" || filePath == "" {
		return nil, services.Validationf("filename and file path are required")
	}
	now := storage.Now()
	var id int64
	err := s.db.QueryRowContext(ctx, `INSERT INTO invoices (
    filename, file_path, upload_date, processed, created_at
) VALUES (?, ?, ?, ?, ?) RETURNING id`, filename, filePath, now, false, now).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches one invoice. A missing invoice yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice %d: %w", id, err)
	}
	return inv, nil
}

// List returns the most recent uploads first. limit <= 0 uses
// DefaultListLimit.
func (s *Store) List(ctx context.Context, limit int) ([]*Invoice, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.query(ctx, `SELECT `+invoiceColumns+` FROM invoices
ORDER BY upload_date DESC, id DESC LIMIT ?`, limit)
}

// ListPending returns invoices that have no outcome yet, oldest first.
func (s *Store) ListPending(ctx context.Context) ([]*Invoice, error) {
	return s.query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE processed = ? AND processing_error IS NULL
ORDER BY id ASC`, false)
}

// MarkProcessed stores the extracted products and flags the invoice as
// processed.
func (s *Store) MarkProcessed(ctx context.Context, id int64, products []extraction.Product) error {
	if products == nil {
		products = []extraction.Product{}
	}
	encoded, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encode extracted data: %w", err)
	}
	return s.finalize(ctx, id, "mark processed", `UPDATE invoices
SET processed = ?, extracted_data = ?, processing_error = NULL
WHERE id = ? AND processed = ? AND processing_error IS NULL`, true, string(encoded), id, false)
}

// MarkFailed records message as the processing error.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "processing failed"
	}
	return s.finalize(ctx, id, "mark failed", `UPDATE invoices
SET processed = ?, processing_error = ?, extracted_data = NULL
WHERE id = ? AND processed = ? AND processing_error IS NULL`, false, message, id, false)
}

func (s *Store) finalize(ctx context.Context, id int64, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s invoice %d: %w", op, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s invoice %d: rows affected: %w", op, id, err)
	}
	if affected == 1 {
		return nil
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return services.NotFoundf("invoice %d", id)
	}
	return fmt.Errorf("%s invoice %d: %w", op, id, ErrFinalized)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := make([]*Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoices: %w", err)
	}
	return invoices, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (*Invoice, error) {
	var (
		inv        Invoice
		procErr    sql.NullString
		extracted  sql.NullString
		uploadDate string
		createdAt  string
	)
	if err := row.Scan(
		&inv.ID,
		&inv.Filename,
		&inv.FilePath,
		&uploadDate,
		&inv.Processed,
		&procErr,
		&extracted,
		&createdAt,
	); err != nil {
		return nil, err
	}
	inv.ProcessingError = procErr.String
	inv.UploadDate = storage.ParseTime(uploadDate)
	inv.CreatedAt = storage.ParseTime(createdAt)
	if extracted.Valid && strings.TrimSpace(extracted.String) != "" {
		if err := json.Unmarshal([]byte(extracted.String), &inv.ExtractedData); err != nil {
			return nil, fmt.Errorf("decode extracted data for invoice %d: %w", inv.ID, err)
		}
		if inv.ExtractedData == nil {
			inv.ExtractedData = []extraction.Product{}
		}
	}
	return &inv, nil
}
