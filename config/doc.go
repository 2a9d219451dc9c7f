// Package config loads a [goSession.Config] from a file and the environment.
//
// Files may be YAML, JSON or TOML; keys use the mapstructure names of the
// config structs (gateway.base_url, store.driver, audit.buffer_size). Every key
// can be overridden by an environment variable named GOSESSION_ followed by the
// upper-cased key with dots replaced by underscores.
package config
