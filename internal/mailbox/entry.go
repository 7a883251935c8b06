package mailbox

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"ntfybridge/internal/ntfy"
)

// TimestampLayout is the local-time ISO-8601 layout written to both files.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// UnknownID is stored when an inbound message carries no id.
const UnknownID = "unknown"

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// InboxEntry is an accepted inbound message. Only Read ever changes after
// the entry is written.
type InboxEntry struct {
	ID        string   `json:"id"`
	Timestamp string   `json:"timestamp"`
	Title     string   `json:"title"`
	Message   string   `json:"message"`
	Tags      []string `json:"tags"`
	Priority  int      `json:"priority"`
	Read      bool     `json:"read"`
}

// EntryFromMessage projects an inbound ntfy message into an unread inbox entry.
func EntryFromMessage(msg ntfy.Message, receivedAt time.Time) InboxEntry {
	id := strings.TrimSpace(msg.ID)
	if id == "" {
		id = UnknownID
	}
	tags := msg.Tags
	if tags == nil {
		tags = []string{}
	}
	return InboxEntry{
		ID:        id,
		Timestamp: receivedAt.Format(TimestampLayout),
		Title:     msg.Title,
		Message:   msg.Message,
		Tags:      tags,
		Priority:  msg.Level(),
	}
}

// Time parses Timestamp. It returns the zero time when the value is missing
// or in an unrecognized layout.
func (e InboxEntry) Time() time.Time {
	return parseTimestamp(e.Timestamp)
}

// Level returns Priority clamped to the 1-5 range, defaulting to 3.
func (e InboxEntry) Level() int {
	if e.Priority < 1 || e.Priority > 5 {
		return ntfy.DefaultLevel
	}
	return e.Priority
}

// OutboxEntry is a reply waiting to be published.
type OutboxEntry struct {
	Message   string        `json:"message"`
	Title     string        `json:"title"`
	Priority  ntfy.Priority `json:"priority"`
	Tags      string        `json:"tags"`
	Timestamp string        `json:"timestamp"`
}

// Publication converts the entry into an ntfy publication, normalizing the
// priority to the ntfy vocabulary.
func (e OutboxEntry) Publication() ntfy.Publication {
	priority, _ := ntfy.ParsePriority(string(e.Priority))
	return ntfy.Publication{
		Message:  e.Message,
		Title:    e.Title,
		Priority: priority,
		Tags:     e.Tags,
	}
}

// outboxRecord accepts the loose shapes other producers write: numeric
// priorities and tag arrays.
type outboxRecord struct {
	Message   string          `json:"message"`
	Title     string          `json:"title"`
	Priority  json.RawMessage `json:"priority"`
	Tags      json.RawMessage `json:"tags"`
	Timestamp string          `json:"timestamp"`
}

// parseOutboxLine decodes one outbox line. Lines that are not JSON objects are
// treated as a plain-text body with default metadata.
func parseOutboxLine(line string) OutboxEntry {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return plainOutboxEntry(trimmed)
	}
	var rec outboxRecord
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return plainOutboxEntry(trimmed)
	}
	return OutboxEntry{
		Message:   rec.Message,
		Title:     rec.Title,
		Priority:  decodePriority(rec.Priority),
		Tags:      decodeTags(rec.Tags),
		Timestamp: rec.Timestamp,
	}
}

func plainOutboxEntry(body string) OutboxEntry {
	return OutboxEntry{Message: body, Priority: ntfy.PriorityDefault}
}

func decodePriority(raw json.RawMessage) ntfy.Priority {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ntfy.PriorityDefault
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		p, _ := ntfy.ParsePriority(name)
		return p
	}
	var level int
	if err := json.Unmarshal(raw, &level); err == nil {
		p, _ := ntfy.PriorityFromLevel(level)
		return p
	}
	return ntfy.PriorityDefault
}

func decodeTags(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var joined string
	if err := json.Unmarshal(raw, &joined); err == nil {
		return joined
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, ",")
	}
	return ""
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// marshalLine encodes v as a single JSON line without HTML escaping.
func marshalLine(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
