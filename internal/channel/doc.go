// Package channel implements the local byte-stream channel between the
// emitter and the relay daemon.
//
// A channel is a Unix domain socket named after a well-known channel name.
// The client side dials with a bounded wait; the server side owns the name
// through an advisory lock so only one daemon serves a channel at a time.
// Accept is cancellable through a context so the daemon can shut down
// deterministically.
package channel
