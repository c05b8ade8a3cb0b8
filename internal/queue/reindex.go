package queue

import (
	"context"
	"database/sql"
	"errors"

	"wizqueue/internal/services"
	"wizqueue/internal/storage"
)

// nextPosition is one past the highest occupied position, or 0 when empty.
func nextPosition(ctx context.Context, q storage.Querier) (int, error) {
	var next int
	if err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM queue_items`).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func currentPosition(ctx context.Context, q storage.Querier, id int64) (int, error) {
	var position int
	err := q.QueryRowContext(ctx, `SELECT position FROM queue_items WHERE id = ?`, id).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, services.NotFoundf("queue item %d", id)
	}
	return position, err
}

// insertAt writes in at target. When target is inside the occupied range
// (target < next) the items at or after it move down one slot first.
func insertAt(ctx context.Context, tx *storage.Tx, in CreateInput, target, next int) (int64, error) {
	if target < next {
		if _, err := tx.ExecContext(ctx, `UPDATE queue_items SET position = position + 1 WHERE position >= ?`, target); err != nil {
			return 0, err
		}
	}
	now := storage.Now()
	var id int64
	err := tx.QueryRowContext(ctx, `INSERT INTO queue_items (
    product_name, details, quantity, position, status, invoice_id, priority, notes, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		in.ProductName,
		storage.NullableString(in.Details),
		in.Quantity,
		target,
		string(in.Status),
		storage.NullableInt64(in.InvoiceID),
		in.Priority,
		storage.NullableString(in.Notes),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// reorder applies the shift-and-place move inside tx.
//
// Moving up (new < cur): items in [new, cur) shift +1.
// Moving down (new > cur): items in (cur, new] shift -1.
// The moved item then takes new. Other items never change relative order.
func reorder(ctx context.Context, tx *storage.Tx, id int64, newPosition int) error {
	current, err := currentPosition(ctx, tx, id)
	if err != nil {
		return err
	}
	var last int
	if err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM queue_items`).Scan(&last); err != nil {
		return err
	}
	newPosition = min(newPosition, last)
	if newPosition == current {
		return nil
	}

	if newPosition < current {
		_, err = tx.ExecContext(ctx,
			`UPDATE queue_items SET position = position + 1 WHERE position >= ? AND position < ?`,
			newPosition, current)
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE queue_items SET position = position - 1 WHERE position > ? AND position <= ?`,
			current, newPosition)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE queue_items SET position = ?, updated_at = ? WHERE id = ?`, newPosition, storage.Now(), id)
	return err
}
