package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ntfybridge/internal/logging"
	"ntfybridge/internal/mailbox"
	"ntfybridge/internal/ntfy"
	"ntfybridge/internal/query"
)

// ErrAlreadyRunning is returned when Run is called on a loop that is active.
var ErrAlreadyRunning = errors.New("bridge loop already running")

const (
	defaultReplyTitle = "Query Result"
	defaultReplyTags  = "robot"
	startupTags       = ntfy.NoticeTag + ",white_check_mark"
)

// Transport is the ntfy surface the loop needs. Both calls absorb their own
// failures.
type Transport interface {
	Poll(ctx context.Context, topic, since string) []ntfy.Message
	Send(ctx context.Context, topic string, pub ntfy.Publication) bool
}

// Router answers query messages. Handle returns false for ordinary content.
type Router interface {
	Handle(ctx context.Context, body string) (query.Result, bool)
}

// Mailbox is the persistent side of the relay.
type Mailbox interface {
	InboxPath() string
	AcceptMessage(msg ntfy.Message) (mailbox.InboxEntry, error)
	DrainOutbox(ctx context.Context, send mailbox.SendFunc) (mailbox.DrainResult, error)
}

// Settings configures the loop.
type Settings struct {
	// ListenTopic is polled for inbound messages and also receives outbox
	// messages and the startup notice.
	ListenTopic string
	// ReplyTopic receives query answers only. Empty means ListenTopic.
	ReplyTopic   string
	PollWindow   string
	PollInterval time.Duration
	SeenCapacity int
	// StartupMarker identifies the bridge's own startup notice when it comes
	// back through the listen topic. Notices tagged ntfy.NoticeTag are
	// skipped as well.
	StartupMarker string
	StartupTitle  string
}

// Stats is a snapshot of loop counters.
type Stats struct {
	State      State
	Cycles     int64
	Received   int64
	Queries    int64
	Queued     int64
	Sent       int64
	SeenIDs    int
	LastPollAt time.Time
}

// CycleReport summarizes one poll, route, and drain pass.
type CycleReport struct {
	Polled     int
	Duplicates int
	Skipped    int
	Queries    int
	Queued     int
	Drain      mailbox.DrainResult
}

// Bridge is the relay loop.
type Bridge struct {
	settings  Settings
	transport Transport
	box       Mailbox
	router    Router
	logger    *slog.Logger

	state atomic.Int32

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	// stopped records a Stop that arrived while no loop was active, so a Run
	// started afterwards exits without cycling.
	stopped bool

	// Owned by the loop goroutine; stats reads go through statsMu.
	seen    *seenSet
	statsMu sync.Mutex
	stats   Stats
}

// New builds a loop. router may be nil, in which case every message is queued.
func New(settings Settings, transport Transport, box Mailbox, router Router, logger *slog.Logger) (*Bridge, error) {
	if transport == nil || box == nil {
		return nil, errors.New("bridge requires a transport and a mailbox")
	}
	if strings.TrimSpace(settings.ListenTopic) == "" {
		return nil, errors.New("bridge requires a listen topic")
	}
	if settings.ReplyTopic == "" {
		settings.ReplyTopic = settings.ListenTopic
	}
	if settings.PollInterval <= 0 {
		return nil, fmt.Errorf("bridge poll interval must be positive, got %s", settings.PollInterval)
	}
	return &Bridge{
		settings:  settings,
		transport: transport,
		box:       box,
		router:    router,
		logger:    logging.NewComponentLogger(logger, "bridge"),
		seen:      newSeenSet(settings.SeenCapacity),
	}, nil
}

// State returns the current phase.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

func (b *Bridge) setState(s State) {
	b.state.Store(int32(s))
}

// Stats returns a snapshot of the loop counters.
func (b *Bridge) Stats() Stats {
	b.statsMu.Lock()
	defer b.statsMu.Unlock()
	snapshot := b.stats
	snapshot.State = b.State()
	snapshot.SeenIDs = b.seen.Len()
	return snapshot
}

// Run announces startup and cycles until ctx is cancelled or Stop is called.
// It returns nil on a clean stop, and returns at once when Stop was called
// before it.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrAlreadyRunning
	}
	if b.stopped {
		b.mu.Unlock()
		b.setState(StateStopped)
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	b.running = true
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	defer func() {
		cancel()
		b.setState(StateStopped)
		b.mu.Lock()
		b.running = false
		b.cancel = nil
		b.mu.Unlock()
		close(done)
	}()

	// In-flight work is not aborted by a stop request; it finishes or times
	// out on its own.
	work := context.WithoutCancel(runCtx)

	b.logger.Info("bridge started",
		logging.String(logging.FieldTopic, b.settings.ListenTopic),
		logging.String("reply_topic", b.settings.ReplyTopic),
		logging.String("inbox", b.box.InboxPath()),
		logging.Duration("poll_interval", b.settings.PollInterval),
	)
	b.announce(work)

	for runCtx.Err() == nil {
		b.RunOnce(work)
		b.setState(StateWaiting)
		if !b.wait(runCtx) {
			break
		}
	}

	b.logger.Info("bridge stopped", logging.Int64("cycles", b.Stats().Cycles))
	return nil
}

// wait sleeps for the poll interval and reports false if ctx ended first.
func (b *Bridge) wait(ctx context.Context) bool {
	timer := time.NewTimer(b.settings.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stop wakes the loop and waits for the current cycle to finish. Called
// before Run, it keeps the loop from starting.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	if cancel == nil {
		b.stopped = true
	}
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (b *Bridge) announce(ctx context.Context) {
	body := fmt.Sprintf("%s\nInbox: %s", b.settings.StartupMarker, b.box.InboxPath())
	if !b.transport.Send(ctx, b.settings.ListenTopic, ntfy.Publication{
		Message: body,
		Title:   b.settings.StartupTitle,
		Tags:    startupTags,
	}) {
		b.logger.Debug("startup notification not delivered")
	}
}

// RunOnce performs a single poll, route, and drain pass.
func (b *Bridge) RunOnce(ctx context.Context) CycleReport {
	var report CycleReport

	b.setState(StatePolling)
	messages := b.transport.Poll(ctx, b.settings.ListenTopic, b.settings.PollWindow)
	report.Polled = len(messages)
	b.statsMu.Lock()
	b.stats.LastPollAt = time.Now()
	b.statsMu.Unlock()

	b.setState(StateRouting)
	for _, msg := range messages {
		b.route(ctx, msg, &report)
	}

	b.setState(StateDraining)
	drain, err := b.box.DrainOutbox(ctx, func(ctx context.Context, pub ntfy.Publication) bool {
		return b.transport.Send(ctx, b.settings.ListenTopic, pub)
	})
	if err != nil {
		logging.WarnWithContext(b.logger, "outbox drain failed", "outbox_drain_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check outbox file permissions"),
			logging.String(logging.FieldImpact, "queued replies stay pending until the next cycle"),
		)
	}
	report.Drain = drain
	if drain.Sent > 0 {
		b.logger.Info("outbox drained",
			logging.Int("sent", drain.Sent),
			logging.Int("remaining", drain.Remaining),
		)
	}

	b.statsMu.Lock()
	b.stats.Cycles++
	b.stats.Received += int64(report.Polled - report.Duplicates)
	b.stats.Queries += int64(report.Queries)
	b.stats.Queued += int64(report.Queued)
	b.stats.Sent += int64(drain.Sent)
	b.statsMu.Unlock()
	return report
}

// route handles one polled message. The id is marked seen before routing so
// each id is handled at most once per process lifetime, whatever the outcome.
func (b *Bridge) route(ctx context.Context, msg ntfy.Message, report *CycleReport) {
	if msg.ID == "" {
		report.Skipped++
		return
	}
	b.statsMu.Lock()
	isNew := b.seen.Add(msg.ID)
	b.statsMu.Unlock()
	if !isNew {
		report.Duplicates++
		return
	}

	topic := msg.Topic
	if topic == "" {
		topic = b.settings.ListenTopic
	}
	logger := logging.WithContext(logging.WithMessageID(logging.WithTopic(ctx, topic), msg.ID), b.logger)

	if msg.HasTag(ntfy.NoticeTag) ||
		(b.settings.StartupMarker != "" && strings.Contains(msg.Message, b.settings.StartupMarker)) {
		report.Skipped++
		logger.Debug("skipping own notice", logging.String("summary", msg.Summary()))
		return
	}

	if b.router != nil {
		if result, ok := b.router.Handle(ctx, msg.Message); ok {
			report.Queries++
			b.reply(ctx, logger, msg, result)
			return
		}
	}

	if _, err := b.box.AcceptMessage(msg); err != nil {
		logging.WarnWithContext(logger, "inbox append failed", "inbox_append_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check inbox path and permissions"),
			logging.String(logging.FieldImpact, "message was not stored and will not be redelivered"),
		)
		return
	}
	report.Queued++
	logger.Info("message received", logging.String("summary", msg.Summary()))
}

func (b *Bridge) reply(ctx context.Context, logger *slog.Logger, msg ntfy.Message, result query.Result) {
	title := result.Title
	if title == "" {
		title = defaultReplyTitle
	}
	tags := result.Tags
	if tags == "" {
		tags = defaultReplyTags
	}
	logger.Info("query answered",
		logging.String("query", truncate(msg.Message, 30)),
		logging.String("reply_topic", b.settings.ReplyTopic),
	)
	b.transport.Send(ctx, b.settings.ReplyTopic, ntfy.Publication{
		Message: result.Response,
		Title:   title,
		Tags:    tags,
	})
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
