// Package file provides file-based implementations of driven port interfaces.
//
// Adapters:
//   - ConfigStore: read-only TOML configuration (tripwise.toml)
//   - PromptStore: user-editable prompt templates with built-in defaults
package file
