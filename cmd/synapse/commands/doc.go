// Package commands defines the synapse CLI.
//
// Commands
//
//   - chat        Interactive session: start-session, accept-envelope, send, status
//   - inspect     Decode an envelope and describe it
//   - transcript  Decrypt and print a sealed chat transcript
//   - selftest    Negotiate two in-process sessions and exchange a message
//
// # Implementation
//
// The root command loads the TOML config (if any), applies flag overrides and
// configures logging before any subcommand runs. Logs go to stderr so the
// chat prompt on stdout stays readable.
package commands
