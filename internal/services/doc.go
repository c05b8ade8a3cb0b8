// Package services defines shared utilities consumed by the stores, the
// extraction pipeline and the HTTP layer.
//
// Key responsibilities:
//   - Context helpers that stamp request IDs, invoice IDs, and page numbers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper so every layer can tag
//     failures (validation, not found, constraint, extraction, unavailable)
//     and the HTTP boundary can map them to status codes with errors.Is.
//
// Use these helpers when wiring new components so error classification and
// observability stay uniform across the service.
package services
