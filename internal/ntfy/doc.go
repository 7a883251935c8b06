// Package ntfy is a thin client for the ntfy push-notification service.
//
// Poll fetches the newline-delimited JSON records published to a topic within
// a time window and keeps only message events. Send publishes a plain-text body
// with optional Title, Priority, and Tags headers. Both calls are bounded by the
// client's request timeout and never return transport failures to the relay
// loop: failures are logged and surface as an empty batch or a false result.
// Publish and Fetch expose the underlying errors for callers that need them.
package ntfy
