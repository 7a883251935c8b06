// Package sysinspect implements query.Inspector for Unix-like hosts.
//
// Process lookups shell out to pgrep and ps; disk usage comes from statfs on
// Linux and macOS and from `df -Pk` elsewhere; log tails are read directly
// through internal/logs. Every subprocess runs under the caller's context,
// so the query engine's command timeout bounds it.
package sysinspect
