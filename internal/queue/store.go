package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wizqueue/internal/services"
	"wizqueue/internal/storage"
)

const itemColumns = `id, product_name, details, quantity, position, status, invoice_id, priority, notes, created_at, updated_at`

// Store persists queue items.
type Store struct {
	db *storage.DB
}

// NewStore wraps an open storage handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// List returns items ordered by position. When statuses are given only those
// statuses are returned.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY position ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate queue items: %w", err)
	}
	return items, nil
}

// GetByID fetches one item. A missing item yields (nil, nil).
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	return getByID(ctx, s.db, id)
}

// Create appends an item, or inserts it at in.Position shifting later items.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Item, error) {
	in, err := in.normalized()
	if err != nil {
		return nil, err
	}

	var id int64
	err = s.db.WithTx(ctx, func(tx *storage.Tx) error {
		next, err := nextPosition(ctx, tx)
		if err != nil {
			return err
		}
		target := next
		if in.Position != nil {
			target = min(*in.Position, next)
		}
		id, err = insertAt(ctx, tx, in, target, next)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create queue item: %w", err)
	}
	return s.GetByID(ctx, id)
}

// BatchOption customizes CreateMany.
type BatchOption func(*batchOptions)

type batchOptions struct {
	base *int
}

// AtPosition starts auto-positioned batch items at p instead of the next free
// position. Existing items at or after p move down to make room.
func AtPosition(p int) BatchOption {
	return func(o *batchOptions) {
		o.base = &p
	}
}

// CreateMany inserts every input in one transaction, preserving input order.
// Inputs with an explicit Position are inserted there; the others take
// consecutive positions from the batch base. An empty batch returns an empty
// slice without touching the database.
func (s *Store) CreateMany(ctx context.Context, inputs []CreateInput, opts ...BatchOption) ([]*Item, error) {
	if len(inputs) == 0 {
		return []*Item{}, nil
	}

	var options batchOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.base != nil && *options.base < 0 {
		return nil, services.Validationf("basePosition must not be negative (got %d)", *options.base)
	}

	normalized := make([]CreateInput, len(inputs))
	for i, in := range inputs {
		n, err := in.normalized()
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		normalized[i] = n
	}

	ids := make([]int64, 0, len(normalized))
	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		ids = ids[:0]
		next, err := nextPosition(ctx, tx)
		if err != nil {
			return err
		}
		cursor := next
		if options.base != nil {
			cursor = min(*options.base, next)
		}
		for _, in := range normalized {
			target := cursor
			if in.Position != nil {
				target = min(*in.Position, next)
			}
			id, err := insertAt(ctx, tx, in, target, next)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			next++
			switch {
			case in.Position == nil:
				cursor = target + 1
			case target <= cursor:
				cursor++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create queue items: %w", err)
	}

	items := make([]*Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, item)
		}
	}
	return items, nil
}

// Reorder moves an item to newPosition. Items between the old and new
// positions shift by one toward the vacated slot. A position past the end is
// clamped to the last occupied position; an unchanged position is a no-op.
func (s *Store) Reorder(ctx context.Context, id int64, newPosition int) error {
	if newPosition < 0 {
		return services.Validationf("newPosition must not be negative (got %d)", newPosition)
	}
	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		return reorder(ctx, tx, id, newPosition)
	})
	if err != nil {
		return fmt.Errorf("reorder queue item %d: %w", id, err)
	}
	return nil
}

// Update applies a partial update. A position change goes through the reorder
// shift inside the same transaction. An empty patch returns the current item.
func (s *Store) Update(ctx context.Context, id int64, patch UpdateInput) (*Item, error) {
	if err := patch.validate(); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		item, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, services.NotFoundf("queue item %d", id)
		}
		return item, nil
	}

	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		if _, err := currentPosition(ctx, tx, id); err != nil {
			return err
		}
		if patch.Position != nil {
			if err := reorder(ctx, tx, id, *patch.Position); err != nil {
				return err
			}
		}

		sets := make([]string, 0, 7)
		args := make([]any, 0, 8)
		if patch.ProductName != nil {
			sets = append(sets, "product_name = ?")
			args = append(args, strings.TrimSpace(*patch.ProductName))
		}
		if patch.Details != nil {
			sets = append(sets, "details = ?")
			args = append(args, storage.NullableString(*patch.Details))
		}
		if patch.Quantity != nil {
			sets = append(sets, "quantity = ?")
			args = append(args, *patch.Quantity)
		}
		if patch.Status != nil {
			sets = append(sets, "status = ?")
			args = append(args, string(*patch.Status))
		}
		if patch.Priority != nil {
			sets = append(sets, "priority = ?")
			args = append(args, *patch.Priority)
		}
		if patch.Notes != nil {
			sets = append(sets, "notes = ?")
			args = append(args, storage.NullableString(*patch.Notes))
		}
		sets = append(sets, "updated_at = ?")
		args = append(args, storage.Now(), id)

		_, err := tx.ExecContext(ctx, `UPDATE queue_items SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update queue item %d: %w", id, err)
	}
	return s.GetByID(ctx, id)
}

// UpdateStatus sets the status of one item.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status Status) (*Item, error) {
	if !status.Valid() {
		return nil, services.Validationf("invalid status %q", status)
	}
	return s.Update(ctx, id, UpdateInput{Status: &status})
}

// Delete removes an item and reports whether it existed. Remaining positions
// are not compacted.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM queue_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete queue item %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete queue item %d: %w", id, err)
	}
	return affected > 0, nil
}

// Compact rewrites positions to 0..N-1 in current order and returns how many
// items moved.
func (s *Store) Compact(ctx context.Context) (int64, error) {
	var moved int64
	err := s.db.WithTx(ctx, func(tx *storage.Tx) error {
		moved = 0
		rows, err := tx.QueryContext(ctx, `SELECT id, position FROM queue_items ORDER BY position ASC, id ASC`)
		if err != nil {
			return err
		}
		type slot struct {
			id       int64
			position int
		}
		var slots []slot
		for rows.Next() {
			var sl slot
			if err := rows.Scan(&sl.id, &sl.position); err != nil {
				rows.Close()
				return err
			}
			slots = append(slots, sl)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		now := storage.Now()
		for i, sl := range slots {
			if sl.position == i {
				continue
			}
			if _, err := tx.ExecContext(ctx, `UPDATE queue_items SET position = ?, updated_at = ? WHERE id = ?`, i, now, sl.id); err != nil {
				return err
			}
			moved++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("compact queue: %w", err)
	}
	return moved, nil
}

// Stats counts items per status. Every known status is present in the result.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(Stats, len(statusOrder))
	for _, status := range statusOrder {
		stats[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan queue stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

func getByID(ctx context.Context, q storage.Querier, id int64) (*Item, error) {
	row := q.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM queue_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get queue item %d: %w", id, err)
	}
	return item, nil
}
