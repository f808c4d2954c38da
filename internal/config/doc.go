// Package config handles configuration loading, parsing, and validation
// from environment variables and an optional YAML file. It provides type-safe
// access to the scheduler, channel and storage settings while keeping
// configuration details separate from the delivery logic.
package config
