package testsupport

import (
	"context"
	"sync"
	"time"

	"dawpresence/internal/presence"
)

// PresenceClient records every update it receives. Err, when set, is
// returned from SetPresence after the call is recorded.
type PresenceClient struct {
	mu    sync.Mutex
	calls []presence.Activity
	err   error
	seen  chan struct{}
}

// NewPresenceClient returns an empty recording client.
func NewPresenceClient() *PresenceClient {
	return &PresenceClient{seen: make(chan struct{}, 1024)}
}

// SetPresence implements presence.Client.
func (c *PresenceClient) SetPresence(a presence.Activity) error {
	c.mu.Lock()
	c.calls = append(c.calls, a)
	err := c.err
	c.mu.Unlock()
	select {
	case c.seen <- struct{}{}:
	default:
	}
	return err
}

// FailWith makes subsequent calls return err.
func (c *PresenceClient) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Calls returns a copy of the recorded updates.
func (c *PresenceClient) Calls() []presence.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]presence.Activity, len(c.calls))
	copy(out, c.calls)
	return out
}

// WaitForCalls blocks until at least n updates were recorded or timeout
// elapses, and returns what was recorded.
func (c *PresenceClient) WaitForCalls(n int, timeout time.Duration) []presence.Activity {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if calls := c.Calls(); len(calls) >= n {
			return calls
		}
		select {
		case <-c.seen:
		case <-deadline.C:
			return c.Calls()
		}
	}
}

// Run blocks until ctx is done, standing in for a client session loop.
func (c *PresenceClient) Run(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}
