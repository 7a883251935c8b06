// Package daemon owns the long-running ntfybridge process lifecycle.
//
// It wraps the relay loop with flock-based locking so only one bridge polls a
// given state directory, writes a pid file for the CLI stop command, and
// exposes a status snapshot for "ntfybridge status". Relay behavior lives in
// the bridge package; the daemon focuses on startup, shutdown, and the
// single-instance guarantees around them.
package daemon
