// Package config loads challenge trees and runner settings for flagrun.
//
// It provides functionality for:
//   - Parsing JSON or YAML challenge trees into a tagged Node tree
//   - Rejecting malformed or ambiguous nodes with a ConfigError
//   - Flattening a tree into runnable Units
//   - Validating documents against the embedded JSON schema
//   - Loading .flagrun.config.json settings with defaults and merging
package config
