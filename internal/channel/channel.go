package channel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// DefaultConnectTimeout bounds Dial when no timeout is supplied.
const DefaultConnectTimeout = 5 * time.Second

const retryInterval = 200 * time.Millisecond

// lockGrace is how long Listen keeps retrying a held lock. InUse checks hold
// the lock for microseconds, so a starting daemon outlasts them.
const (
	lockGrace      = 250 * time.Millisecond
	lockRetryDelay = 10 * time.Millisecond
)

var (
	// ErrConnectTimeout reports that no daemon accepted the connection
	// within the bounded wait.
	ErrConnectTimeout = errors.New("channel connect timed out")
	// ErrChannelBusy reports that another process already serves the
	// channel name.
	ErrChannelBusy = errors.New("channel already served by another process")
)

// Path returns the socket location for name inside dir.
func Path(dir, name string) string {
	return filepath.Join(dir, name+".sock")
}

func lockPath(socketPath string) string {
	return socketPath + ".lock"
}

// Dial connects to the channel socket, retrying until a server accepts or
// timeout elapses. It never blocks past the bound; on failure the returned
// error wraps ErrConnectTimeout and the last dial error.
func Dial(ctx context.Context, path string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	var lastErr error
	for {
		conn, err := dialer.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w after %s (%s): %w", ErrConnectTimeout, timeout, path, lastErr)
		case <-time.After(retryInterval):
		}
	}
}

// Listener accepts channel connections for one channel name.
type Listener struct {
	path string
	ln   *net.UnixListener
	lock *flock.Flock

	closeOnce sync.Once
	closeErr  error
}

// Listen claims the channel at path and starts listening. It fails with
// ErrChannelBusy when another process holds the channel. A stale socket
// left by a dead daemon is removed.
func Listen(path string) (*Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create channel directory: %w", err)
	}

	lock := flock.New(lockPath(path))
	ctx, cancel := context.WithTimeout(context.Background(), lockGrace)
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	cancel()
	if !ok {
		if err == nil || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", path, ErrChannelBusy)
		}
		return nil, fmt.Errorf("acquire channel lock: %w", err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = lock.Unlock()
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("resolve socket address: %w", err)
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("listen on socket: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("restrict socket permissions: %w", err)
	}

	return &Listener{path: path, ln: ln, lock: lock}, nil
}

// Path returns the socket path the listener serves.
func (l *Listener) Path() string {
	return l.path
}

// Accept blocks until a client connects or ctx is done. Cancellation
// returns ctx.Err() and leaves the listener usable.
func (l *Listener) Accept(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := l.ln.SetDeadline(time.Time{}); err != nil {
		return nil, fmt.Errorf("reset accept deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = l.ln.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	conn, err := l.ln.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

// Close stops listening, removes the socket, and releases the channel.
// It is safe to call more than once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		var errs []error
		if err := l.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, fmt.Errorf("close listener: %w", err))
		}
		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove socket: %w", err))
		}
		if err := l.lock.Unlock(); err != nil {
			errs = append(errs, fmt.Errorf("release channel lock: %w", err))
		}
		l.closeErr = errors.Join(errs...)
	})
	return l.closeErr
}

// InUse reports whether some process currently holds the channel at path.
// The check takes a shared lock for an instant; concurrent checks do not
// collide and Listen waits out the overlap.
func InUse(path string) (bool, error) {
	lock := flock.New(lockPath(path))
	ok, err := lock.TryRLock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("check channel lock: %w", err)
	}
	if !ok {
		return true, nil
	}
	_ = lock.Unlock()
	return false, nil
}
