// Package presence turns decoded frames into presence-display updates.
//
// The Dispatcher owns the last-known PresenceState and forwards every event
// to a Client with a fresh start timestamp. Client failures are logged and
// never interrupt the caller. ClientTable maps audio host names to
// presence client identifiers.
package presence
