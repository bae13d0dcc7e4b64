// Command dawpresenced is the relay daemon. It is normally spawned by the
// emitter with the audio host's display name as its only argument.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"dawpresence/internal/daemonrun"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, daemonrun.ErrHostMissing) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
