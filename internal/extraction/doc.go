// Package extraction turns invoice PDFs into product line items.
//
// A Pipeline rasterizes the PDF into page images, sends each page to a
// vision model with a fixed instruction prompt, parses the free-text answer
// into products, and merges duplicates across pages.
//
// # Failure semantics
//
// Zero pages, an unreadable file, or any failed model request aborts the
// whole invoice with an *ExtractionError; there is no partial success. A
// model answer that cannot be parsed is not a failure: it contributes no
// products and is logged.
//
// # Parsing
//
// ParseResponse strips Markdown fences, takes the span from the first '['
// to the last ']', and decodes it as a JSON array. Elements without a
// non-empty string productName are dropped. details is stringified and
// trimmed. quantity is coerced to a whole number of at least 1.
//
// # Deduplication
//
// Deduplicate keys products by case-folded productName and details, sums
// quantities on collision, and keeps the first-seen spelling and order.
package extraction
