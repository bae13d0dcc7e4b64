package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine(statusLine{Label: "Process", Kind: statusError, Detail: "Not running"}, false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Process:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine(statusLine{Label: "Channel", Kind: statusOK, Detail: "Accepting"}, true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderStatusLineWithoutDetail(t *testing.T) {
	got := renderStatusLine(statusLine{Label: "Log", Kind: statusWarn}, false)
	if !strings.HasSuffix(got, "[WARN]") {
		t.Fatalf("expected bare status label, got %q", got)
	}
}

func TestWriteSection(t *testing.T) {
	var buf bytes.Buffer
	writeSection(&buf, "Relay Daemon", []statusLine{{Label: "Process", Kind: statusInfo, Detail: "idle"}}, false)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "== Relay Daemon ==" || lines[1] != strings.Repeat("-", len(lines[0])) {
		t.Fatalf("unexpected header %q / %q", lines[0], lines[1])
	}
	if !strings.Contains(lines[2], "[INFO] idle") {
		t.Fatalf("unexpected status line %q", lines[2])
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestConfigStatusLinesWarnsWithoutClients(t *testing.T) {
	env := setupCLITestEnv(t)
	cfg := *env.cfg
	cfg.Clients = nil

	lines := configStatusLines(&cfg, "", false)
	if lines[0].Kind != statusInfo || !strings.Contains(lines[0].Detail, "Defaults") {
		t.Fatalf("expected defaults source line, got %+v", lines[0])
	}
	last := lines[len(lines)-1]
	if last.Kind != statusWarn || last.Detail != "0" {
		t.Fatalf("expected warn for empty client table, got %+v", last)
	}
}
