package ntfy

import (
	"strings"
	"time"
)

// EventMessage is the ntfy event type carrying a published message. Other
// events (open, keepalive, poll_request) are discarded.
const EventMessage = "message"

// NoticeTag marks publications the bridge sends about itself so the poll
// loop can recognize them when they come back through the listen topic.
const NoticeTag = "ntfybridge"

// Message is an inbound record returned by a topic poll.
type Message struct {
	ID       string   `json:"id"`
	Time     int64    `json:"time"`
	Event    string   `json:"event"`
	Topic    string   `json:"topic"`
	Title    string   `json:"title,omitempty"`
	Message  string   `json:"message"`
	Tags     []string `json:"tags,omitempty"`
	Priority int      `json:"priority,omitempty"`
}

// ReceivedAt returns the publish time reported by ntfy, or the zero time when absent.
func (m Message) ReceivedAt() time.Time {
	if m.Time <= 0 {
		return time.Time{}
	}
	return time.Unix(m.Time, 0)
}

// Level returns the message priority, defaulting to DefaultLevel when unset or out of range.
func (m Message) Level() int {
	if m.Priority < 1 || m.Priority > 5 {
		return DefaultLevel
	}
	return m.Priority
}

// HasTag reports whether tag is among the message tags.
func (m Message) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// Summary returns the title, or the first 50 characters of the body.
func (m Message) Summary() string {
	if title := strings.TrimSpace(m.Title); title != "" {
		return title
	}
	runes := []rune(m.Message)
	if len(runes) > 50 {
		return string(runes[:50])
	}
	return m.Message
}

// Publication is an outbound message.
type Publication struct {
	Message  string
	Title    string
	Priority Priority
	// Tags is a comma-joined label list, passed through verbatim.
	Tags string
}
