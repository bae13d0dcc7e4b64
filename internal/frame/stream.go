package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DefaultMaxLineBytes bounds a single wire line when no limit is given.
const DefaultMaxLineBytes = 64 * 1024

// ErrLineTooLong reports a line whose content exceeds the configured limit.
// The reader has already skipped past it, so reading can continue.
var ErrLineTooLong = errors.New("frame line exceeds size limit")

const readChunkBytes = 4096

// Reader yields raw lines from a connection. Decoding is left to the caller
// so that malformed lines can be logged and skipped without ending the read.
type Reader struct {
	br  *bufio.Reader
	max int
}

// NewReader wraps r. maxLineBytes <= 0 selects DefaultMaxLineBytes.
func NewReader(r io.Reader, maxLineBytes int) *Reader {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Reader{br: bufio.NewReaderSize(r, readChunkBytes), max: maxLineBytes}
}

// ReadLine returns the next line without its terminator. It returns io.EOF
// when the peer closes the stream cleanly. A line longer than the limit is
// consumed up to its terminator and reported as ErrLineTooLong.
func (r *Reader) ReadLine() (string, error) {
	var buf []byte
	tooLong := false
	for {
		chunk, err := r.br.ReadSlice('\n')
		if !tooLong {
			buf = append(buf, chunk...)
			if len(strings.TrimRight(string(buf), "\r\n")) > r.max {
				tooLong = true
				buf = nil
			}
		}
		switch {
		case err == nil:
			if tooLong {
				return "", ErrLineTooLong
			}
			return trimTerminator(buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if tooLong {
				return "", ErrLineTooLong
			}
			if len(buf) > 0 {
				return trimTerminator(buf), nil
			}
			return "", io.EOF
		default:
			return "", fmt.Errorf("read frame: %w", err)
		}
	}
}

func trimTerminator(b []byte) string {
	line := strings.TrimSuffix(string(b), "\n")
	return strings.TrimSuffix(line, "\r")
}

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Writer serializes encoded events onto an underlying stream. When the stream
// supports write deadlines each frame is bounded by the configured timeout.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	timeout time.Duration
	max     int
}

// NewWriter creates a thread-safe frame writer. timeout <= 0 disables the
// per-frame deadline; maxLineBytes <= 0 selects DefaultMaxLineBytes.
func NewWriter(w io.Writer, timeout time.Duration, maxLineBytes int) *Writer {
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Writer{w: w, timeout: timeout, max: maxLineBytes}
}

// Write encodes ev and writes it as one line. Events that would not fit the
// reader's line limit are rejected with ErrLineTooLong before any byte is
// written.
func (fw *Writer) Write(ev Event) error {
	line, err := Encode(ev)
	if err != nil {
		return err
	}
	if len(line)-1 > fw.max {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrLineTooLong, len(line)-1, fw.max)
	}

	fw.mu.Lock()
	defer fw.mu.Unlock()

	if d, ok := fw.w.(writeDeadliner); ok && fw.timeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(fw.timeout)); err != nil {
			return fmt.Errorf("set write deadline: %w", err)
		}
		defer func() { _ = d.SetWriteDeadline(time.Time{}) }()
	}
	if _, err := io.WriteString(fw.w, line); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
