// Package main hosts the ntfybridge CLI entrypoint and command graph.
//
// The Cobra-based command tree covers both sides of the relay: the daemon
// commands (run, start, stop, status, logs) that poll ntfy, and the mailbox
// commands (inbox, reply, query) an editor hook or operator runs against the
// local inbox and outbox files. Configuration resolution lives in the shared
// command context so subcommands can focus on output.
package main
