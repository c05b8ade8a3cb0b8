// Package config loads, normalizes, and validates WizQueue configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours the
// environment variables the service has always accepted (DATABASE_URL,
// OLLAMA_BASE_URL, UPLOAD_DIR and friends). The Config type centralizes every
// knob the daemon and CLI need so storage, upload limits, the vision model and
// the worker pool are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
