// Package emitter drives presence events from the audio host side.
//
// The host invokes Initialize once, Activate on every processing state
// change, and Terminate on unload. Each hook sends at most one frame over
// the channel. Nothing here blocks longer than the bounded connect wait or
// a single local write, and no failure is reported to the host: every
// problem is logged and the session continues without presence.
package emitter
