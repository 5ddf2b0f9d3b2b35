// Package cli provides the tokenauth command-line client.
//
// Given a command on the command line (register, login, refresh, logout,
// whoami, profile, ping) the client runs it once and exits. Without one
// it starts an interactive prompt accepting the same commands.
package cli
