// Package invoice persists uploaded invoices and their extraction outcome.
//
// An invoice is created unprocessed when its PDF is stored. Exactly one
// terminal transition follows: MarkProcessed stores the extracted products,
// MarkFailed stores the error text. A second transition is rejected with
// ErrFinalized, so a cancelled task and a late success cannot both land.
//
// The in-flight "processing" state is not persisted; callers combine the
// row with the worker pool snapshot through Invoice.State.
package invoice
