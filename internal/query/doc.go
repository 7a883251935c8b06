// Package query implements the small command protocol embedded in inbound
// messages.
//
// A message body of the form "query: <key>" (or "q: <key>") is answered
// synchronously instead of being queued in the inbox. Parse maps the key onto
// a closed set of kinds; Engine.Handle runs the matching read-only handler
// against an Inspector and always produces a Result, converting handler
// failures into an error-tagged reply. Handlers never touch the OS directly:
// the Inspector interface is the only path to processes, disks, and files,
// which keeps the engine platform-neutral and testable with a fake.
package query
