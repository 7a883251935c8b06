// Package logs reads the tail of line-oriented log files with bounded memory.
//
// LastLines and LastBytes back the query engine's training-log handlers;
// Tail and Follow power `ntfybridge logs` and its --follow mode. Follow polls
// the file on an interval and stops when the caller's context is cancelled.
package logs
