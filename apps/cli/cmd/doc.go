// Package cmd implements the flagrun CLI commands using Cobra.
//
// Available commands:
//   - run: Execute every test program in a challenge tree and report results
//   - validate: Check challenge tree files without executing anything
//   - list: Display the flattened test units of a challenge tree
//   - init: Create an example challenge tree and test program
//   - version: Show flagrun version information
//   - completion: Generate shell completion scripts
//
// Flags fall back to FLAGRUN_* environment variables, then to an optional
// settings file, then to built-in defaults.
package cmd
