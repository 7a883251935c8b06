package testsupport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ntfybridge/internal/ntfy"
)

// Published is a message received by the fake server's publish endpoint.
type Published struct {
	Topic    string
	Message  string
	Title    string
	Tags     string
	Priority string
}

// FakeNtfy is an in-process ntfy server. Polls return every queued message
// for the topic on each request, the way a since window re-delivers recent
// messages.
type FakeNtfy struct {
	server *httptest.Server

	mu        sync.Mutex
	messages  map[string][]ntfy.Message
	published []Published
	polls     int
	failPolls bool
}

// NewFakeNtfy starts a fake server and registers its shutdown with t.
func NewFakeNtfy(t testing.TB) *FakeNtfy {
	t.Helper()
	f := &FakeNtfy{messages: make(map[string][]ntfy.Message)}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the server base URL.
func (f *FakeNtfy) URL() string {
	return f.server.URL
}

// Queue makes msgs visible to polls of topic. Missing events default to
// "message".
func (f *FakeNtfy) Queue(topic string, msgs ...ntfy.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range msgs {
		if msg.Event == "" {
			msg.Event = ntfy.EventMessage
		}
		msg.Topic = topic
		f.messages[topic] = append(f.messages[topic], msg)
	}
}

// FailPolls makes subsequent polls answer 500.
func (f *FakeNtfy) FailPolls(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPolls = fail
}

// Published returns a copy of every publish received so far.
func (f *FakeNtfy) Published() []Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Published, len(f.published))
	copy(out, f.published)
	return out
}

// Polls returns the number of poll requests served.
func (f *FakeNtfy) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *FakeNtfy) handle(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")
	switch {
	case path == "v1/health":
		_, _ = io.WriteString(w, `{"healthy":true}`)
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/json"):
		f.servePoll(w, strings.TrimSuffix(path, "/json"))
	case r.Method == http.MethodPost || r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.published = append(f.published, Published{
			Topic:    path,
			Message:  string(body),
			Title:    r.Header.Get("Title"),
			Tags:     r.Header.Get("Tags"),
			Priority: r.Header.Get("Priority"),
		})
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	default:
		http.NotFound(w, r)
	}
}

func (f *FakeNtfy) servePoll(w http.ResponseWriter, topic string) {
	f.mu.Lock()
	f.polls++
	fail := f.failPolls
	msgs := append([]ntfy.Message(nil), f.messages[topic]...)
	f.mu.Unlock()

	if fail {
		http.Error(w, "unavailable", http.StatusInternalServerError)
		return
	}
	enc := json.NewEncoder(w)
	for _, msg := range msgs {
		_ = enc.Encode(msg)
	}
}
