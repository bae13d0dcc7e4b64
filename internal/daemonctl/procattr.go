package daemonctl

import "syscall"

// sysProcAttr detaches the daemon into its own session so it outlives the
// audio host and never receives the host's terminal signals.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true,
	}
}
