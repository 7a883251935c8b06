package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"time"
)

const (
	scanBufferSize = 64 * 1024
	defaultPoll    = 250 * time.Millisecond
)

// TailOptions selects a window of the file. A negative Offset returns the
// last Limit lines; otherwise lines are read forward from Offset.
type TailOptions struct {
	Offset int64
	Limit  int
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads a window of path. A missing file yields an empty result.
func Tail(path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Offset < 0 {
		lines, offset, err := readLastLines(path, opts.Limit)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return result, err
		}
		result.Lines = lines
		result.Offset = offset
		return result, nil
	}

	offset := opts.Offset
	if offset > info.Size() {
		// Truncated or rotated since the caller last read.
		offset = 0
	}
	lines, next, err := readForward(path, offset)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return result, err
	}
	result.Lines = lines
	result.Offset = next
	return result, nil
}

// LastLines returns up to n trailing lines of path. Unlike Tail, a missing
// file is reported as an error wrapping fs.ErrNotExist.
func LastLines(path string, n int) ([]string, error) {
	lines, _, err := readLastLines(path, n)
	return lines, err
}

// LastBytes returns up to maxBytes from the end of path. A missing file is
// reported as an error wrapping fs.ErrNotExist.
func LastBytes(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	start := info.Size() - maxBytes
	if start < 0 || maxBytes <= 0 {
		start = 0
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log file: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	return data, nil
}

// Follow emits lines appended to path after offset until ctx is cancelled.
// The file may be absent or rotated; reading resumes from the start when it
// shrinks below the current offset. It returns nil on cancellation.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string)) error {
	if interval <= 0 {
		interval = defaultPoll
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result, err := Tail(path, TailOptions{Offset: offset})
		if err != nil {
			return err
		}
		for _, line := range result.Lines {
			emit(line)
		}
		offset = result.Offset

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// readLastLines reads backward from the end of path in fixed-size chunks
// until it has seen enough newlines, so cost depends on the size of the
// requested lines rather than the whole file.
func readLastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}
	if limit <= 0 || size == 0 {
		return nil, size, nil
	}

	var chunks [][]byte
	pos := size
	newlines := 0
	// One newline more than limit guarantees limit whole lines even when the
	// file ends with a newline.
	for pos > 0 && newlines <= limit {
		n := min(int64(scanBufferSize), pos)
		pos -= n
		chunk := make([]byte, n)
		if _, err := file.ReadAt(chunk, pos); err != nil && !errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		newlines += bytes.Count(chunk, []byte{'\n'})
		chunks = append(chunks, chunk)
	}
	slices.Reverse(chunks)
	data := bytes.TrimSuffix(bytes.Join(chunks, nil), []byte{'\n'})

	parts := bytes.Split(data, []byte{'\n'})
	if pos > 0 {
		// The first part started before the window.
		parts = parts[1:]
	}
	if len(parts) > limit {
		parts = parts[len(parts)-limit:]
	}
	lines := make([]string, len(parts))
	for i, part := range parts {
		lines[i] = string(bytes.TrimSuffix(part, []byte{'\r'}))
	}
	return lines, size, nil
}

func readForward(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	// Only complete lines are consumed so a partially written line is picked
	// up whole on the next read.
	reader := bufio.NewReaderSize(file, scanBufferSize)
	var lines []string
	next := offset
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
		next += int64(len(chunk))
		line := chunk[:len(chunk)-1]
		if n := len(line); n > 0 && line[n-1] == '\r' {
			line = line[:n-1]
		}
		lines = append(lines, line)
	}
	return lines, next, nil
}
