// Package notifications publishes ntfybridge lifecycle notices.
//
// The relay loop announces its own startup; this package covers the other
// end of the lifecycle (clean shutdown and fatal errors) plus the operator
// test message behind "ntfybridge notify test". Notices go to the reply topic
// through the ntfy client. When no topic is configured a noop service is
// returned so callers never need to nil-check.
package notifications
