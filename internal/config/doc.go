// Package config loads and validates the TOML configuration for redline.
package config
