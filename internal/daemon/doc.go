// Package daemon coordinates the long-running WizQueue process.
//
// It wires the HTTP API, the invoice processing pool and the optional AMQP
// consumer into a single lifecycle with flock-based locking to prevent
// multiple instances sharing one data directory. Startup resubmits invoices
// left pending by a previous run; shutdown stops the API first so no new
// uploads arrive while the pool drains.
//
// Keep orchestration here: request handling lives in httpapi and task
// execution in processing.
package daemon
