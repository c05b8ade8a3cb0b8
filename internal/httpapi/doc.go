// Package httpapi exposes the queue and invoice upload over HTTP with gin.
//
// Every /api response uses the envelope {success, data?, error?, message?}.
// Domain errors carry the markers from internal/services and are mapped to
// status codes in one place (respondError). In production the text of
// unexpected errors is replaced with a generic message.
//
// Middleware order: request ID, panic recovery, request logging, CORS; the
// /api group adds bearer auth when a token or JWT secret is configured, and
// POST /api/upload is rate limited per client.
//
// Uploads are stored under paths.upload_dir, recorded as invoices and handed
// to a processing.Dispatcher; the response does not wait for extraction.
package httpapi
