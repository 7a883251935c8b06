// Package config loads, normalizes, and validates ntfybridge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// NTFY_BRIDGE_TOPIC and TRAINING_LOG. The Config type centralizes every knob the
// daemon and CLI need so the topic, mailbox paths, and query settings are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
