// Package config loads application configuration from built-in defaults, an
// optional YAML file, and TASKHUB_* environment variables, in that order of
// precedence (environment wins). The loaded Config is an explicit value
// injected into constructors at startup; nothing reads configuration
// globally at request time.
package config
