// Package cmd implements the command-line interface for parcelpal.
//
// This package provides the following commands:
//   - serve: Start the skill webhook server
//   - accounts: List linked voice accounts
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
