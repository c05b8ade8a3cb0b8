// Package ollama talks to a local Ollama server for vision model inference.
//
// The extraction pipeline uses Client.Generate to send one rendered invoice
// page (base64 PNG) plus the product prompt and receive the raw model text.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Generate: non-streaming /api/generate call with images attached.
// Client.Models: list locally available models via /api/tags.
// Client.HealthCheck: confirm the server answers and the model is pulled.
//
// # Retry Behaviour
//
// Requests are retried on HTTP 408/429/5xx and network timeouts with
// exponential backoff (base 1s, max 10s). A Retry-After header takes
// precedence over the computed delay. Context cancellation aborts retries.
package ollama
