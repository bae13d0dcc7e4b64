package presence

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// ErrUnmappedHost reports a host name without a presence client identifier.
var ErrUnmappedHost = errors.New("no client ID configured for host")

// ClientTable maps audio host display names to presence client identifiers.
type ClientTable map[string]string

// Lookup resolves host to a client identifier. An exact match wins;
// otherwise names are compared case-insensitively.
func (t ClientTable) Lookup(host string) (string, error) {
	host = strings.TrimSpace(host)
	if id, ok := t[host]; ok && id != "" {
		return id, nil
	}
	folder := cases.Fold()
	want := folder.String(host)
	for _, name := range t.Hosts() {
		if folder.String(name) == want && t[name] != "" {
			return t[name], nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnmappedHost, host)
}

// Hosts returns the mapped host names in sorted order.
func (t ClientTable) Hosts() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
