// Package app loads configuration and wires the session, transport and
// transcript together for the command-line front end.
package app
