// Package config loads the marketgate service configuration from a .env
// file, an optional YAML file and MARKETGATE_* environment variables.
package config
