// Package preflight provides readiness checks for the filesystem paths,
// executables and services WizQueue depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check.
//     Failures are warnings: the API still serves the print queue while
//     the vision model is down.
//   - The CLI "wizqueue doctor" command prints the same results as a table
//     and exits non-zero when a check fails.
package preflight
