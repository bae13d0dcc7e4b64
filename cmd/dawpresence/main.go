// Command dawpresence is the operator CLI for the presence relay: it runs the
// emitter lifecycle outside an audio host, sends single frames, and inspects
// or controls the relay daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
