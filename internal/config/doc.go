// Package config loads, normalizes, and validates netsight configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// WIGLE_API_CREDENTIAL. The Config type centralizes every knob the CLI
// needs, so data directories and lookup-API credentials are discovered in
// one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
