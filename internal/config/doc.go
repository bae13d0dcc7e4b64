// Package config loads, normalizes, and validates dawpresence configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the DAWPRESENCE_RUNTIME_DIR
// environment fallback. The Config type centralizes the channel name, the
// daemon install location, and the host-name to presence-client table so the
// emitter, the daemon, and the CLI agree on one set of values.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
