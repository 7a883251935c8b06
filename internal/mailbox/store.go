package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"ntfybridge/internal/fileutil"
	"ntfybridge/internal/ntfy"
)

const fileMode = 0o644

// Store owns an inbox and outbox file pair.
type Store struct {
	inboxPath  string
	outboxPath string
	now        func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store over the given inbox and outbox paths.
func NewStore(inboxPath, outboxPath string, opts ...Option) *Store {
	s := &Store{inboxPath: inboxPath, outboxPath: outboxPath, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InboxPath returns the inbox file path.
func (s *Store) InboxPath() string { return s.inboxPath }

// OutboxPath returns the outbox file path.
func (s *Store) OutboxPath() string { return s.outboxPath }

// AppendInbox appends entry as one JSON line, creating parent directories as needed.
func (s *Store) AppendInbox(entry InboxEntry) error {
	if entry.ID == "" {
		entry.ID = UnknownID
	}
	if entry.Timestamp == "" {
		entry.Timestamp = s.now().Format(TimestampLayout)
	}
	if entry.Tags == nil {
		entry.Tags = []string{}
	}
	if entry.Priority == 0 {
		entry.Priority = ntfy.DefaultLevel
	}
	line, err := marshalLine(entry)
	if err != nil {
		return fmt.Errorf("encode inbox entry: %w", err)
	}
	if err := fileutil.AppendLine(s.inboxPath, line, fileMode); err != nil {
		return fmt.Errorf("append inbox: %w", err)
	}
	return nil
}

// AcceptMessage records an inbound ntfy message as an unread inbox entry.
func (s *Store) AcceptMessage(msg ntfy.Message) (InboxEntry, error) {
	entry := EntryFromMessage(msg, s.now())
	return entry, s.AppendInbox(entry)
}

// ReadOptions selects which inbox entries ReadInbox returns.
type ReadOptions struct {
	// UnreadOnly skips entries already marked read.
	UnreadOnly bool
	// MarkRead flips the read flag of every returned entry and rewrites the file.
	MarkRead bool
}

// ReadInbox returns inbox entries in file order. When MarkRead is set and at
// least one entry was returned, the file is rewritten atomically with those
// entries marked read; lines that are not JSON objects are carried over
// unchanged. A missing inbox yields no entries.
func (s *Store) ReadInbox(opts ReadOptions) ([]InboxEntry, error) {
	lines, err := fileutil.ReadLines(s.inboxPath)
	if err != nil {
		return nil, fmt.Errorf("read inbox: %w", err)
	}

	var (
		entries   []InboxEntry
		rewritten = make([]string, 0, len(lines))
	)
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, fields, ok := decodeInboxLine(line)
		if !ok {
			rewritten = append(rewritten, line)
			continue
		}
		if opts.UnreadOnly && entry.Read {
			rewritten = append(rewritten, line)
			continue
		}
		entries = append(entries, entry)
		if !opts.MarkRead || entry.Read {
			rewritten = append(rewritten, line)
			continue
		}
		fields["read"] = json.RawMessage("true")
		updated, err := marshalLine(fields)
		if err != nil {
			return nil, fmt.Errorf("encode inbox entry: %w", err)
		}
		rewritten = append(rewritten, updated)
	}

	if opts.MarkRead && len(entries) > 0 {
		if err := fileutil.WriteLinesAtomic(s.inboxPath, rewritten, fileMode); err != nil {
			return nil, fmt.Errorf("rewrite inbox: %w", err)
		}
	}
	return entries, nil
}

// decodeInboxLine parses a line into both the typed entry and its raw field
// map, so marking it read keeps fields this package does not know about.
func decodeInboxLine(line string) (InboxEntry, map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &fields); err != nil || fields == nil {
		return InboxEntry{}, nil, false
	}
	var entry InboxEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		// Known keys with unexpected types; keep what decoded.
		entry = looseInboxEntry(fields)
	}
	return entry, fields, true
}

func looseInboxEntry(fields map[string]json.RawMessage) InboxEntry {
	var entry InboxEntry
	_ = json.Unmarshal(fields["id"], &entry.ID)
	_ = json.Unmarshal(fields["timestamp"], &entry.Timestamp)
	_ = json.Unmarshal(fields["title"], &entry.Title)
	_ = json.Unmarshal(fields["message"], &entry.Message)
	_ = json.Unmarshal(fields["tags"], &entry.Tags)
	_ = json.Unmarshal(fields["priority"], &entry.Priority)
	_ = json.Unmarshal(fields["read"], &entry.Read)
	return entry
}

// Summary describes the inbox at a point in time.
type Summary struct {
	Total  int
	Unread int
	// Latest is the last parseable entry in file order, or nil.
	Latest *InboxEntry
}

// Summary counts inbox entries without modifying the file.
func (s *Store) Summary() (Summary, error) {
	entries, err := s.ReadInbox(ReadOptions{})
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Total: len(entries)}
	for i := range entries {
		if !entries[i].Read {
			summary.Unread++
		}
	}
	if len(entries) > 0 {
		latest := entries[len(entries)-1]
		summary.Latest = &latest
	}
	return summary, nil
}

// ClearInbox deletes the inbox file. Clearing an absent inbox is not an error.
func (s *Store) ClearInbox() error {
	if err := os.Remove(s.inboxPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear inbox: %w", err)
	}
	return nil
}

// AppendOutbox queues entry for the next drain. An empty priority becomes
// "default" and an empty timestamp is filled with the current time.
func (s *Store) AppendOutbox(entry OutboxEntry) error {
	if entry.Priority == "" {
		entry.Priority = ntfy.PriorityDefault
	}
	if entry.Timestamp == "" {
		entry.Timestamp = s.now().Format(TimestampLayout)
	}
	line, err := marshalLine(entry)
	if err != nil {
		return fmt.Errorf("encode outbox entry: %w", err)
	}
	if err := fileutil.AppendLine(s.outboxPath, line, fileMode); err != nil {
		return fmt.Errorf("append outbox: %w", err)
	}
	return nil
}

// PendingOutbox returns the queued entries without sending them.
func (s *Store) PendingOutbox() ([]OutboxEntry, error) {
	lines, err := fileutil.ReadLines(s.outboxPath)
	if err != nil {
		return nil, fmt.Errorf("read outbox: %w", err)
	}
	var entries []OutboxEntry
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, parseOutboxLine(line))
	}
	return entries, nil
}

// SendFunc publishes one outbox entry and reports whether it was delivered.
type SendFunc func(ctx context.Context, pub ntfy.Publication) bool

// DrainResult reports one outbox drain.
type DrainResult struct {
	Attempted int
	Sent      int
	Remaining int
}

// DrainOutbox attempts to send every queued entry in file order. Delivered
// lines are removed by rewriting the file atomically; lines that failed,
// and lines appended while the drain was in flight, stay queued. Lines are
// tracked by position, so one of two identical lines can be removed while
// the other remains.
func (s *Store) DrainOutbox(ctx context.Context, send SendFunc) (DrainResult, error) {
	var result DrainResult
	lines, err := fileutil.ReadLines(s.outboxPath)
	if err != nil {
		return result, fmt.Errorf("read outbox: %w", err)
	}
	if len(lines) == 0 {
		return result, nil
	}

	sent := make([]bool, len(lines))
	pending := 0
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pending++
		if ctx.Err() != nil {
			continue
		}
		result.Attempted++
		if send(ctx, parseOutboxLine(line).Publication()) {
			sent[i] = true
			result.Sent++
		}
	}

	if result.Sent == 0 {
		result.Remaining = pending
		return result, nil
	}

	current, err := fileutil.ReadLines(s.outboxPath)
	if err != nil {
		return result, fmt.Errorf("reread outbox: %w", err)
	}

	remaining := make([]string, 0, len(lines)-result.Sent)
	for i, line := range lines {
		if sent[i] || strings.TrimSpace(line) == "" {
			continue
		}
		remaining = append(remaining, line)
	}
	if len(current) > len(lines) {
		for _, line := range current[len(lines):] {
			if strings.TrimSpace(line) != "" {
				remaining = append(remaining, line)
			}
		}
	}
	result.Remaining = len(remaining)

	if err := fileutil.WriteLinesAtomic(s.outboxPath, remaining, fileMode); err != nil {
		return result, fmt.Errorf("rewrite outbox: %w", err)
	}
	return result, nil
}
