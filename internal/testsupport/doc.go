// Package testsupport provides shared fixtures for ntfybridge tests: a config
// rooted in per-test temp directories and an in-process fake ntfy server.
package testsupport
