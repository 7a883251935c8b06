// Package preflight provides readiness checks for the ntfy server, the
// mailbox and log directories, and the host tools the query handlers use.
//
// The daemon logs a snapshot of these checks at startup, and the CLI
// "ntfybridge status" command renders them. Checks never fail hard: each one
// produces a Result describing what is wrong.
package preflight
