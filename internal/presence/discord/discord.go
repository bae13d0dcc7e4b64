// Package discord adapts the presence client port to Discord's local RPC
// interface.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugolgst/rich-go/client"
	"github.com/hugolgst/rich-go/ipc"

	"dawpresence/internal/presence"
)

// DefaultRetryInterval spaces handshake attempts while Discord is absent.
const DefaultRetryInterval = 15 * time.Second

// DefaultHealthInterval spaces liveness checks of an idle session.
const DefaultHealthInterval = 30 * time.Second

const (
	ipcSocketName = "discord-ipc-0"
	dialTimeout  = 250 * time.Millisecond
)

// ErrDiscordUnreachable reports that Discord's IPC socket stopped accepting
// connections after the handshake.
var ErrDiscordUnreachable = errors.New("discord IPC socket unreachable")

// rpc is the subset of the Discord RPC library the adapter drives. The
// library reports socket write failures only on stdout, so Alive is the
// adapter's own view of whether the session can still deliver updates.
type rpc interface {
	Login(clientID string) error
	SetActivity(client.Activity) error
	Logout()
	Alive() bool
}

type richGo struct{}

func (richGo) Login(clientID string) error { return client.Login(clientID) }

func (richGo) SetActivity(a client.Activity) error { return client.SetActivity(a) }

func (richGo) Logout() { client.Logout() }

func (richGo) Alive() bool {
	conn, err := net.DialTimeout("unix", filepath.Join(ipc.GetIpcPath(), ipcSocketName), dialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Client pushes presence updates to the local Discord application. It
// connects in the background; updates issued before the handshake completes
// fail with presence.ErrClientNotReady.
type Client struct {
	clientID string
	events   presence.Events
	retry    time.Duration
	health   time.Duration
	rpc      rpc

	// mu serializes library calls; the library keeps one global socket.
	mu    sync.Mutex
	ready atomic.Bool
	lost  chan struct{}
}

// Option customizes a Client.
type Option func(*Client)

// WithRetryInterval overrides the delay between handshake attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retry = d
		}
	}
}

// WithHealthInterval overrides the delay between liveness checks while
// connected.
func WithHealthInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.health = d
		}
	}
}

func withRPC(r rpc) Option {
	return func(c *Client) {
		c.rpc = r
	}
}

// New creates a client for the given application identifier.
func New(clientID string, events presence.Events, opts ...Option) *Client {
	c := &Client{
		clientID: clientID,
		events:   events,
		retry:    DefaultRetryInterval,
		health:   DefaultHealthInterval,
		rpc:      richGo{},
		lost:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs the handshake and keeps the session alive until ctx is
// done. While connected it checks the IPC socket every health interval and
// logs in again once Discord comes back. It returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	defer c.logout()
	for {
		if !c.ready.Load() {
			if err := c.login(); err != nil {
				c.events.Error(fmt.Errorf("discord handshake: %w", err))
			} else {
				c.events.Ready(c.clientID)
			}
		}

		wait := c.retry
		if c.ready.Load() {
			wait = c.health
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-c.lost:
			timer.Stop()
		case <-timer.C:
			if c.ready.Load() && !c.alive() {
				c.markLost()
				select {
				case <-c.lost:
				default:
				}
				c.events.Error(ErrDiscordUnreachable)
			}
		}
	}
}

// SetPresence publishes a with a start timestamp so Discord shows elapsed
// time since the update.
func (c *Client) SetPresence(a presence.Activity) error {
	if !c.ready.Load() {
		return presence.ErrClientNotReady
	}
	started := a.StartedAt
	activity := client.Activity{
		Details:    a.Details,
		State:      a.State,
		Timestamps: &client.Timestamps{Start: &started},
	}

	c.mu.Lock()
	err := c.rpc.SetActivity(activity)
	if err == nil && !c.rpc.Alive() {
		err = ErrDiscordUnreachable
	}
	c.mu.Unlock()
	if err != nil {
		c.markLost()
		err = fmt.Errorf("discord set activity: %w", err)
		c.events.Error(err)
		return err
	}
	c.events.PresenceUpdated(a)
	return nil
}

func (c *Client) login() error {
	if c.clientID == "" {
		return errors.New("client ID is empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.rpc.Login(c.clientID); err != nil {
		return err
	}
	c.ready.Store(true)
	return nil
}

func (c *Client) alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rpc.Alive()
}

func (c *Client) markLost() {
	if !c.ready.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	c.rpc.Logout()
	c.mu.Unlock()
	select {
	case c.lost <- struct{}{}:
	default:
	}
}

func (c *Client) logout() {
	if !c.ready.CompareAndSwap(true, false) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rpc.Logout()
}
