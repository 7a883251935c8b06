package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"ntfybridge/internal/daemonctl"
	"ntfybridge/internal/deps"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusError, "Not running", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Daemon:", "[ERROR] Not running")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Daemon", statusOK, "Running", true)
	if !strings.HasPrefix(got, ansiGreen) || !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected green line, got %q", got)
	}
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "pgrep", Available: false},
		{Name: "ps", Available: true, Command: "ps"},
		{Name: "df", Optional: true, Detail: "binary \"df\" not found"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[ERROR]") || !strings.Contains(lines[0], "Summary") {
		t.Fatalf("expected summary line first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] not available") {
		t.Fatalf("unexpected pgrep line %q", lines[1])
	}
	if !strings.Contains(lines[2], "[OK] Ready (command: ps)") {
		t.Fatalf("unexpected ps line %q", lines[2])
	}
	if !strings.Contains(lines[3], "[WARN]") {
		t.Fatalf("unexpected df line %q", lines[3])
	}
}

func TestDaemonStatusLine(t *testing.T) {
	if got := daemonStatusLine(daemonctl.Info{Running: true, PID: 42}, nil, false); !strings.Contains(got, "[OK] Running (pid 42)") {
		t.Fatalf("unexpected running line %q", got)
	}
	if got := daemonStatusLine(daemonctl.Info{}, nil, false); !strings.Contains(got, "[WARN] Not running") {
		t.Fatalf("unexpected stopped line %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTablePadsRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"only"}}, []columnAlignment{alignLeft, alignRight})
	if !strings.Contains(out, "only") || !strings.Contains(out, "A") {
		t.Fatalf("unexpected table %q", out)
	}
	if renderTable(nil, nil, nil) != "" {
		t.Fatal("expected empty table without headers")
	}
}
