// Package config loads, normalizes, and validates Vecna configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// VECNA_SERVICES_API_KEY. The Config type centralizes every knob the worker
// and CLI need: storage locations, the parse and generate service endpoints,
// pipeline lease and taxonomy policy, and the quality gate threshold.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
