package sysinspect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"ntfybridge/internal/logging"
	"ntfybridge/internal/logs"
	"ntfybridge/internal/query"
)

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Inspector inspects the local host.
type Inspector struct {
	run    runFunc
	logger *slog.Logger
}

var _ query.Inspector = (*Inspector)(nil)

// New returns an inspector that runs host tools directly.
func New(logger *slog.Logger) *Inspector {
	return &Inspector{
		run:    runCommand,
		logger: logging.NewComponentLogger(logger, "sysinspect"),
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.Bytes(), fmt.Errorf("%s: %w", name, ctxErr)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return stdout.Bytes(), fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return stdout.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// FindProcess runs `pgrep -f pattern` and returns the first PID.
func (i *Inspector) FindProcess(ctx context.Context, pattern string) (int, bool, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return 0, false, nil
	}
	out, err := i.run(ctx, "pgrep", "-f", pattern)
	if err != nil {
		// pgrep exits 1 when nothing matched.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return 0, false, nil
		}
		return 0, false, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return 0, false, fmt.Errorf("parse pgrep output %q: %w", line, err)
		}
		return pid, true, nil
	}
	return 0, false, nil
}

// Processes lists processes via ps.
func (i *Inspector) Processes(ctx context.Context) ([]query.Process, error) {
	out, err := i.run(ctx, "ps", "-eo", "pid=,pcpu=,pmem=,args=")
	if err != nil {
		return nil, err
	}
	return parsePS(string(out)), nil
}

// TailBytes reads the end of path directly.
func (i *Inspector) TailBytes(ctx context.Context, path string, maxBytes int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return logs.LastBytes(path, maxBytes)
}

// TailLines reads the last n lines of path directly.
func (i *Inspector) TailLines(ctx context.Context, path string, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return logs.LastLines(path, n)
}

// parsePS parses `ps -eo pid=,pcpu=,pmem=,args=` output. Rows that do not
// start with a numeric PID are skipped.
func parsePS(output string) []query.Process {
	var procs []query.Process
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		cpu, _ := strconv.ParseFloat(fields[1], 64)
		mem, _ := strconv.ParseFloat(fields[2], 64)
		procs = append(procs, query.Process{
			PID:     pid,
			CPU:     cpu,
			Mem:     mem,
			Command: strings.Join(fields[3:], " "),
		})
	}
	return procs
}

// parseDF parses `df -Pk` output. The second return value is false when the
// data row is missing or malformed.
func parseDF(output string) (query.DiskUsage, bool) {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) < 2 {
		return query.DiskUsage{}, false
	}
	fields := strings.Fields(lines[len(lines)-1])
	if len(fields) < 5 {
		return query.DiskUsage{}, false
	}
	total, err1 := strconv.ParseUint(fields[1], 10, 64)
	used, err2 := strconv.ParseUint(fields[2], 10, 64)
	avail, err3 := strconv.ParseUint(fields[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return query.DiskUsage{}, false
	}
	return query.DiskUsage{
		Total:     total * 1024,
		Used:      used * 1024,
		Available: avail * 1024,
	}, true
}

// dfUsage runs df and falls back to its raw output when parsing fails.
func (i *Inspector) dfUsage(ctx context.Context, path string) (query.DiskUsage, error) {
	out, err := i.run(ctx, "df", "-Pk", path)
	if err != nil && len(out) == 0 {
		return query.DiskUsage{}, err
	}
	if usage, ok := parseDF(string(out)); ok {
		return usage, nil
	}
	return query.DiskUsage{Raw: string(out)}, nil
}
