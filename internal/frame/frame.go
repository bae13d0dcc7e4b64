// Package frame encodes presence events as single text lines.
//
// Wire format: "<details>;<state>\n", UTF-8. Decoding splits on the first
// delimiter only, so any further delimiters remain part of the state.
package frame

import (
	"errors"
	"fmt"
	"strings"
)

// Delimiter separates details from state on the wire.
const Delimiter = ";"

// Event is one presence update. The zero value is a valid event with empty
// fields.
type Event struct {
	Details string
	State   string
}

// ErrInvalidField reports a field that contains the delimiter or a line break
// and therefore cannot be framed.
var ErrInvalidField = errors.New("frame field contains delimiter or line break")

// FormatError reports a line that does not carry two delimited fields.
type FormatError struct {
	Line string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed frame %q: expected \"details%sstate\"", e.Line, Delimiter)
}

// Encode renders ev as a terminated wire line.
func Encode(ev Event) (string, error) {
	if err := validField("details", ev.Details); err != nil {
		return "", err
	}
	if err := validField("state", ev.State); err != nil {
		return "", err
	}
	return ev.Details + Delimiter + ev.State + "\n", nil
}

// Decode parses one wire line. A trailing line terminator is tolerated.
func Decode(line string) (Event, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	parts := strings.SplitN(line, Delimiter, 2)
	if len(parts) < 2 {
		return Event{}, &FormatError{Line: line}
	}
	return Event{Details: parts[0], State: parts[1]}, nil
}

func validField(name, value string) error {
	if strings.ContainsAny(value, Delimiter+"\r\n") {
		return fmt.Errorf("%s %q: %w", name, value, ErrInvalidField)
	}
	return nil
}
