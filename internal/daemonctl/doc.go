// Package daemonctl starts, checks, and stops relay daemon processes from
// outside the daemon.
package daemonctl
