// Package config loads and validates the infragate YAML configuration,
// expanding ${VAR} environment references and parsing duration strings.
package config
