// Package daemon runs the relay daemon's listener loop.
//
// A Daemon owns one channel listener and alternates between two states:
// listening for a client and serving one. While serving it reads frames
// line by line and hands each decoded event to the dispatcher before
// reading the next. Malformed lines are logged and skipped; read errors
// tear the connection down and return the loop to listening. Only
// cancellation of the start context or Stop ends the loop.
//
// Process concerns such as configuration, pid files, and signal handling
// live in daemonrun.
package daemon
