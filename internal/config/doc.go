// Package config loads, normalizes, and validates the TOML configuration
// shared by the daemon and CLI. Defaults are embedded so a missing config
// file still yields a usable configuration once API keys are supplied.
package config
