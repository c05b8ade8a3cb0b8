// Package deps checks the external executables WizQueue shells out to.
package deps
