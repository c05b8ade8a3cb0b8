// Command wizqueue is the operator CLI for WizQueue.
//
// It runs the API daemon (serve), inspects and edits the print queue and
// invoices directly through the configured store, runs one-off invoice
// extractions, issues API tokens and checks the local environment.
package main
