// Package config loads, normalizes, and validates subgen configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as SUBGEN_COOKIES_FILE
// and SUBGEN_MODEL_DIR. The Config type centralizes the knobs the fetch,
// transcribe, and batch layers need so the CLI resolves them in one pass.
package config
