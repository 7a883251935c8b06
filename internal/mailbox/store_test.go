package mailbox_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ntfybridge/internal/mailbox"
	"ntfybridge/internal/ntfy"
)

func newStore(t *testing.T) *mailbox.Store {
	t.Helper()
	dir := t.TempDir()
	fixed := time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)
	return mailbox.NewStore(
		filepath.Join(dir, "state", "inbox"),
		filepath.Join(dir, "state", "outbox"),
		mailbox.WithClock(func() time.Time { return fixed }),
	)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAcceptMessageCreatesUnreadEntry(t *testing.T) {
	store := newStore(t)

	entry, err := store.AcceptMessage(ntfy.Message{Message: "hello there", Event: ntfy.EventMessage})
	if err != nil {
		t.Fatalf("AcceptMessage: %v", err)
	}
	if entry.ID != mailbox.UnknownID || entry.Priority != 3 || entry.Read {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Timestamp != "2026-03-04T05:06:07.000000" {
		t.Fatalf("unexpected timestamp %q", entry.Timestamp)
	}

	content := readFile(t, store.InboxPath())
	if !strings.Contains(content, `"read":false`) || !strings.Contains(content, `"tags":[]`) {
		t.Fatalf("unexpected inbox line %q", content)
	}
}

func TestReadInboxMarkReadThenUnreadIsEmpty(t *testing.T) {
	store := newStore(t)
	for _, body := range []string{"one", "two", "three"} {
		if _, err := store.AcceptMessage(ntfy.Message{ID: body, Message: body}); err != nil {
			t.Fatal(err)
		}
	}

	first, err := store.ReadInbox(mailbox.ReadOptions{UnreadOnly: true, MarkRead: true})
	if err != nil {
		t.Fatalf("ReadInbox: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(first))
	}

	second, err := store.ReadInbox(mailbox.ReadOptions{UnreadOnly: true, MarkRead: true})
	if err != nil {
		t.Fatalf("ReadInbox: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no unread entries, got %d", len(second))
	}

	all, err := store.ReadInbox(mailbox.ReadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range all {
		if !entry.Read {
			t.Fatalf("entry %s not marked read", entry.ID)
		}
	}
}

func TestReadInboxPeekDoesNotModify(t *testing.T) {
	store := newStore(t)
	if _, err := store.AcceptMessage(ntfy.Message{ID: "a", Message: "peek"}); err != nil {
		t.Fatal(err)
	}
	before := readFile(t, store.InboxPath())

	entries, err := store.ReadInbox(mailbox.ReadOptions{UnreadOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if after := readFile(t, store.InboxPath()); after != before {
		t.Fatalf("peek modified inbox:\n%s\n%s", before, after)
	}
}

func TestReadInboxPreservesMalformedLinesAndUnknownFields(t *testing.T) {
	store := newStore(t)
	malformed := "this is {not json"
	array := `["also","kept"]`
	crlf := "garbage line\r"
	writeFile(t, store.InboxPath(), strings.Join([]string{
		`{"id":"x1","timestamp":"2026-01-01T00:00:00","title":"","message":"hi","tags":[],"priority":3,"read":false,"extra":"keep-me"}`,
		malformed,
		array,
		`{"id":"x2","message":"already","read":true}`,
		crlf,
	}, "\n")+"\n")

	entries, err := store.ReadInbox(mailbox.ReadOptions{UnreadOnly: true, MarkRead: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "x1" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	lines := strings.Split(strings.TrimRight(readFile(t, store.InboxPath()), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), lines)
	}
	if !strings.Contains(lines[0], `"read":true`) || !strings.Contains(lines[0], `"extra":"keep-me"`) {
		t.Fatalf("first line not updated correctly: %s", lines[0])
	}
	if lines[1] != malformed || lines[2] != array {
		t.Fatalf("malformed lines changed: %q %q", lines[1], lines[2])
	}
	if lines[3] != `{"id":"x2","message":"already","read":true}` {
		t.Fatalf("read entry rewritten: %s", lines[3])
	}
	if lines[4] != crlf {
		t.Fatalf("CRLF line changed: %q", lines[4])
	}
}

func TestSummary(t *testing.T) {
	store := newStore(t)

	empty, err := store.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if empty.Total != 0 || empty.Unread != 0 || empty.Latest != nil {
		t.Fatalf("unexpected empty summary %+v", empty)
	}

	writeFile(t, store.InboxPath(), strings.Join([]string{
		`{"id":"a","message":"one","read":true}`,
		`garbage`,
		`{"id":"b","message":"two","read":false}`,
	}, "\n")+"\n")

	summary, err := store.Summary()
	if err != nil {
		t.Fatal(err)
	}
	if summary.Total != 2 || summary.Unread != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Latest == nil || summary.Latest.ID != "b" {
		t.Fatalf("unexpected latest %+v", summary.Latest)
	}
}

func TestClearInboxIsIdempotent(t *testing.T) {
	store := newStore(t)
	if err := store.ClearInbox(); err != nil {
		t.Fatalf("clear absent inbox: %v", err)
	}
	if _, err := store.AcceptMessage(ntfy.Message{ID: "a", Message: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := store.ClearInbox(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(store.InboxPath()); !os.IsNotExist(err) {
		t.Fatalf("expected inbox removed, stat err=%v", err)
	}
	if err := store.ClearInbox(); err != nil {
		t.Fatalf("clear twice: %v", err)
	}
}

func TestDrainOutboxRemovesSentEntries(t *testing.T) {
	store := newStore(t)
	if err := store.AppendOutbox(mailbox.OutboxEntry{Message: "done", Title: "Reply", Tags: "robot"}); err != nil {
		t.Fatal(err)
	}

	var got []ntfy.Publication
	result, err := store.DrainOutbox(context.Background(), func(_ context.Context, pub ntfy.Publication) bool {
		got = append(got, pub)
		return true
	})
	if err != nil {
		t.Fatalf("DrainOutbox: %v", err)
	}
	if result.Sent != 1 || result.Remaining != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(got) != 1 || got[0].Message != "done" || got[0].Title != "Reply" || got[0].Priority != ntfy.PriorityDefault || got[0].Tags != "robot" {
		t.Fatalf("unexpected publication %+v", got)
	}
	if content := readFile(t, store.OutboxPath()); strings.Contains(content, "done") {
		t.Fatalf("sent entry still queued: %q", content)
	}
}

func TestDrainOutboxKeepsFailedEntries(t *testing.T) {
	store := newStore(t)
	if err := store.AppendOutbox(mailbox.OutboxEntry{Message: "retry me"}); err != nil {
		t.Fatal(err)
	}
	before := readFile(t, store.OutboxPath())

	result, err := store.DrainOutbox(context.Background(), func(context.Context, ntfy.Publication) bool { return false })
	if err != nil {
		t.Fatal(err)
	}
	if result.Attempted != 1 || result.Sent != 0 || result.Remaining != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if after := readFile(t, store.OutboxPath()); after != before {
		t.Fatalf("outbox changed after failed send:\n%s\n%s", before, after)
	}
}

func TestDrainOutboxPlainTextAndPartialFailure(t *testing.T) {
	store := newStore(t)
	plain := "just a plain line"
	writeFile(t, store.OutboxPath(), strings.Join([]string{
		`{"message":"first","title":"T","priority":"high","tags":"a,b"}`,
		plain,
		`{"message":"second","priority":5,"tags":["x","y"]}`,
	}, "\n")+"\n")

	var got []ntfy.Publication
	_, err := store.DrainOutbox(context.Background(), func(_ context.Context, pub ntfy.Publication) bool {
		got = append(got, pub)
		return pub.Message != "second"
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(got))
	}
	if got[0].Priority != ntfy.PriorityHigh || got[0].Tags != "a,b" {
		t.Fatalf("unexpected first publication %+v", got[0])
	}
	if got[1].Message != plain || got[1].Title != "" || got[1].Priority != ntfy.PriorityDefault {
		t.Fatalf("plain line not sent as raw text: %+v", got[1])
	}
	if got[2].Priority != ntfy.PriorityMax || got[2].Tags != "x,y" {
		t.Fatalf("unexpected loose publication %+v", got[2])
	}

	remaining := strings.TrimRight(readFile(t, store.OutboxPath()), "\n")
	if remaining != `{"message":"second","priority":5,"tags":["x","y"]}` {
		t.Fatalf("unexpected remaining outbox %q", remaining)
	}
}

func TestDrainOutboxTracksDuplicateLinesByPosition(t *testing.T) {
	store := newStore(t)
	line := `{"message":"same"}`
	writeFile(t, store.OutboxPath(), line+"\n"+line+"\n")

	calls := 0
	result, err := store.DrainOutbox(context.Background(), func(context.Context, ntfy.Publication) bool {
		calls++
		return calls == 1
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 1 || result.Remaining != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if got := readFile(t, store.OutboxPath()); got != line+"\n" {
		t.Fatalf("expected one duplicate to remain, got %q", got)
	}
}

func TestDrainOutboxKeepsLinesAppendedDuringDrain(t *testing.T) {
	store := newStore(t)
	if err := store.AppendOutbox(mailbox.OutboxEntry{Message: "queued"}); err != nil {
		t.Fatal(err)
	}

	_, err := store.DrainOutbox(context.Background(), func(context.Context, ntfy.Publication) bool {
		if err := store.AppendOutbox(mailbox.OutboxEntry{Message: "late arrival"}); err != nil {
			t.Errorf("append during drain: %v", err)
		}
		return true
	})
	if err != nil {
		t.Fatal(err)
	}

	pending, err := store.PendingOutbox()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Message != "late arrival" {
		t.Fatalf("unexpected pending entries %+v", pending)
	}
}

func TestDrainOutboxPreservesCRLFLinesOfFailedSends(t *testing.T) {
	store := newStore(t)
	content := "plain body\r\n" + `{"message":"json body"}` + "\r\n"
	writeFile(t, store.OutboxPath(), content)

	var got []string
	result, err := store.DrainOutbox(context.Background(), func(_ context.Context, pub ntfy.Publication) bool {
		got = append(got, pub.Message)
		return pub.Message == "json body"
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Sent != 1 || result.Remaining != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(got) != 2 || got[0] != "plain body" {
		t.Fatalf("unexpected messages %q", got)
	}
	if after := readFile(t, store.OutboxPath()); after != "plain body\r\n" {
		t.Fatalf("failed line not kept byte-for-byte: %q", after)
	}
}

func TestDrainOutboxOversizedLineDoesNotBlockQueue(t *testing.T) {
	store := newStore(t)
	huge := strings.Repeat("z", 5*1024*1024)
	writeFile(t, store.OutboxPath(), huge+"\n"+`{"message":"reply"}`+"\n")

	var sent []string
	result, err := store.DrainOutbox(context.Background(), func(_ context.Context, pub ntfy.Publication) bool {
		if len(pub.Message) > 1024 {
			return false
		}
		sent = append(sent, pub.Message)
		return true
	})
	if err != nil {
		t.Fatalf("DrainOutbox: %v", err)
	}
	if result.Attempted != 2 || result.Sent != 1 || result.Remaining != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(sent) != 1 || sent[0] != "reply" {
		t.Fatalf("unexpected sends %q", sent)
	}
	if after := readFile(t, store.OutboxPath()); after != huge+"\n" {
		t.Fatalf("oversized line not kept, file is %d bytes", len(after))
	}
}

func TestDrainOutboxMissingFile(t *testing.T) {
	store := newStore(t)
	result, err := store.DrainOutbox(context.Background(), func(context.Context, ntfy.Publication) bool {
		t.Fatal("send should not be called")
		return false
	})
	if err != nil {
		t.Fatal(err)
	}
	if result != (mailbox.DrainResult{}) {
		t.Fatalf("unexpected result %+v", result)
	}
}
