// Package queue persists print-job queue items and maintains their order.
//
// Every item carries a zero-based position; together the positions form the
// total order shown to operators. The Store keeps that ordering dense and
// duplicate-free across creates and reorders:
//
//   - Create appends at the next free position, or inserts at an explicit
//     position and shifts later items down by one.
//   - CreateMany inserts a batch in one transaction, preserving input order,
//     starting at the next free position or at AtPosition(p).
//   - Reorder moves one item and shifts the items between its old and new
//     positions by one in the opposite direction.
//
// Delete removes the row and leaves a gap in the positions; nothing closes
// it implicitly. Compact is an explicit operator action that rewrites
// positions to 0..N-1 in current order.
//
// Every multi-statement mutation runs inside storage.DB.WithTx, so partial
// shifts are never observable. Concurrent reorders on overlapping ranges are
// serialized by the database and the last commit wins.
package queue
