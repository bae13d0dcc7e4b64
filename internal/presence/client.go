package presence

import (
	"errors"
	"time"
)

// ErrClientNotReady reports an update issued before the presence client
// completed its handshake. Such updates are dropped.
var ErrClientNotReady = errors.New("presence client not ready")

// Activity is the payload pushed to the presence-display client.
type Activity struct {
	Details   string
	State     string
	StartedAt time.Time
}

// Client is the presence-display collaborator.
type Client interface {
	SetPresence(Activity) error
}

// Events carries the presence client's lifecycle callbacks. Nil callbacks
// are ignored.
type Events struct {
	OnReady           func(clientID string)
	OnError           func(err error)
	OnPresenceUpdated func(Activity)
}

// Ready invokes OnReady when set.
func (e Events) Ready(clientID string) {
	if e.OnReady != nil {
		e.OnReady(clientID)
	}
}

// Error invokes OnError when set.
func (e Events) Error(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

// PresenceUpdated invokes OnPresenceUpdated when set.
func (e Events) PresenceUpdated(a Activity) {
	if e.OnPresenceUpdated != nil {
		e.OnPresenceUpdated(a)
	}
}
