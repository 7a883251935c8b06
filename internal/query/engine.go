package query

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ntfybridge/internal/logging"
)

const (
	trainingTailBytes = 2000
	maxResponseChars  = 500
	maxErrorChars     = 100
	maxProcesses      = 5
	maxCommandChars   = 40
	diskRawChars      = 200
	diskPath          = "/"
)

const helpText = `Available queries:
- training / status: Training progress
- tasks: List all tasks
- disk: Disk space usage
- processes / ps: Running processes
- logs [n]: Last n log lines
- help: This message

Example: query: training`

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Result is the reply to a query.
type Result struct {
	Response string
	Title    string
	// Tags is a comma-joined ntfy tag list.
	Tags string
}

// Settings names the local things queries report on.
type Settings struct {
	TrainingLog     string
	TrainingProcess string
	MonitorProcess  string
	BridgeProcess   string
	// Interpreter and ProcessKeywords filter the process listing: a process
	// is shown when its command line contains Interpreter and any keyword.
	Interpreter     string
	ProcessKeywords []string
	// CommandTimeout bounds each handler's inspector calls.
	CommandTimeout time.Duration
}

// Engine answers queries.
type Engine struct {
	settings  Settings
	inspector Inspector
	progress  ProgressExtractor
	logger    *slog.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithProgressExtractor replaces the training log parser.
func WithProgressExtractor(p ProgressExtractor) Option {
	return func(e *Engine) {
		if p != nil {
			e.progress = p
		}
	}
}

// WithLogger sets the logger used for handler failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.NewComponentLogger(logger, "query")
	}
}

// NewEngine builds an engine over inspector.
func NewEngine(settings Settings, inspector Inspector, opts ...Option) *Engine {
	e := &Engine{
		settings:  settings,
		inspector: inspector,
		progress:  EpochProgress{},
		logger:    logging.NewComponentLogger(nil, "query"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Handle answers body when it is a query. The boolean is false when body is
// ordinary content the caller should queue instead.
func (e *Engine) Handle(ctx context.Context, body string) (Result, bool) {
	req, ok := Parse(body)
	if !ok {
		return Result{}, false
	}
	return e.Run(ctx, req), true
}

// Run executes a parsed request. It never fails: handler errors become an
// error-tagged Result.
func (e *Engine) Run(ctx context.Context, req Request) Result {
	if e.settings.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.settings.CommandTimeout)
		defer cancel()
	}

	e.logger.Debug("running query",
		logging.String("kind", req.Kind.String()),
		logging.String("key", req.Key),
	)

	switch req.Kind {
	case KindTraining:
		status, err := e.trainingStatus(ctx)
		if err != nil {
			return e.failure("Error checking training", err)
		}
		return status.result()
	case KindTasks:
		return e.tasks(ctx)
	case KindDisk:
		return e.disk(ctx)
	case KindProcesses:
		return e.processes(ctx)
	case KindLogs:
		return e.logs(ctx, req.Lines)
	case KindHelp:
		return Result{Response: helpText, Title: "Query Help", Tags: "question"}
	default:
		return Result{
			Response: fmt.Sprintf("Unknown query: %s\n\nUse 'query: help' for available commands.", req.Key),
			Title:    "Query Error",
			Tags:     "x",
		}
	}
}

func (e *Engine) failure(prefix string, err error) Result {
	logging.WarnWithContext(e.logger, "query handler failed", "query_failed",
		logging.String("handler", prefix),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the query settings and that the host tools are installed"),
		logging.String(logging.FieldImpact, "remote operator receives an error reply"),
	)
	return Result{
		Response: prefix + ": " + truncate(err.Error(), maxErrorChars),
		Title:    "Query Error",
		Tags:     "x",
	}
}

type trainingStatus struct {
	running  bool
	pid      int
	logFound bool
	progress *Progress
}

func (e *Engine) trainingStatus(ctx context.Context) (trainingStatus, error) {
	pid, found, err := e.inspector.FindProcess(ctx, e.settings.TrainingProcess)
	if err != nil {
		return trainingStatus{}, err
	}
	if !found {
		return trainingStatus{}, nil
	}
	status := trainingStatus{running: true, pid: pid}

	data, err := e.inspector.TailBytes(ctx, e.settings.TrainingLog, trainingTailBytes)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return status, nil
		}
		return trainingStatus{}, err
	}
	status.logFound = true
	if progress, ok := e.progress.Extract(strings.ToValidUTF8(string(data), "")); ok {
		status.progress = &progress
	}
	return status, nil
}

func (s trainingStatus) result() Result {
	const title = "Training Status"
	switch {
	case !s.running:
		return Result{Response: "No training process running.", Title: title, Tags: "stop_sign"}
	case s.progress != nil:
		var b strings.Builder
		fmt.Fprintf(&b, "Epoch %d/%d - %d%% complete", s.progress.Epoch, s.progress.Total, s.progress.Percent)
		if len(s.progress.Losses) == 3 {
			fmt.Fprintf(&b, "\nBox: %s | Cls: %s | DFL: %s", s.progress.Losses[0], s.progress.Losses[1], s.progress.Losses[2])
		}
		fmt.Fprintf(&b, "\nPID: %d", s.pid)
		return Result{Response: b.String(), Title: title, Tags: "chart_with_upwards_trend"}
	case s.logFound:
		return Result{Response: fmt.Sprintf("Training running (PID: %d)\nUnable to parse progress.", s.pid), Title: title, Tags: "hourglass"}
	default:
		return Result{Response: fmt.Sprintf("Training running (PID: %d)\nNo log file found.", s.pid), Title: title, Tags: "hourglass"}
	}
}

func (e *Engine) tasks(ctx context.Context) Result {
	// A failed training check shows row 1 as in progress; the other rows
	// still render.
	training, err := e.trainingStatus(ctx)
	if err != nil {
		logging.WarnWithContext(e.logger, "training status unavailable", "query_tasks_training_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the training process pattern and log path"),
			logging.String(logging.FieldImpact, "task board shows training without progress"),
		)
		training = trainingStatus{running: true}
	}

	lines := make([]string, 0, 3)
	switch {
	case !training.running:
		lines = append(lines, "1. [STOPPED] Training")
	case training.progress != nil:
		lines = append(lines, fmt.Sprintf("1. [IN PROGRESS] Training - Epoch %d/%d (%d%%)",
			training.progress.Epoch, training.progress.Total, training.progress.Percent))
	default:
		lines = append(lines, "1. [IN PROGRESS] Training")
	}

	_, monitor, err := e.inspector.FindProcess(ctx, e.settings.MonitorProcess)
	if err != nil {
		return e.failure("Error getting tasks", err)
	}
	if monitor {
		lines = append(lines, "2. [RUNNING] Training Monitor")
	} else {
		lines = append(lines, "2. [STOPPED] Training Monitor")
	}

	_, bridge, err := e.inspector.FindProcess(ctx, e.settings.BridgeProcess)
	if err != nil {
		return e.failure("Error getting tasks", err)
	}
	if bridge {
		lines = append(lines, "3. [RUNNING] Remote Bridge")
	} else {
		lines = append(lines, "3. [STOPPED] Remote Bridge")
	}

	return Result{Response: strings.Join(lines, "\n"), Title: "Task Status", Tags: "clipboard"}
}

func (e *Engine) disk(ctx context.Context) Result {
	usage, err := e.inspector.DiskUsage(ctx, diskPath)
	if err != nil {
		return e.failure("Error", err)
	}
	if usage.Total == 0 {
		return Result{Response: truncate(usage.Raw, diskRawChars), Title: "Disk Space", Tags: "floppy_disk"}
	}
	return Result{
		Response: fmt.Sprintf("Used: %s/%s (%d%%)\nAvailable: %s",
			humanize.IBytes(usage.Used), humanize.IBytes(usage.Total), usedPercent(usage), humanize.IBytes(usage.Available)),
		Title: "Disk Space",
		Tags:  "floppy_disk",
	}
}

// usedPercent matches df: used over the space visible to unprivileged users,
// rounded up.
func usedPercent(u DiskUsage) uint64 {
	visible := u.Used + u.Available
	if visible == 0 {
		return 0
	}
	return (u.Used*100 + visible - 1) / visible
}

func (e *Engine) processes(ctx context.Context) Result {
	procs, err := e.inspector.Processes(ctx)
	if err != nil {
		return e.failure("Error", err)
	}

	interpreter := strings.ToLower(e.settings.Interpreter)
	var rows []string
	for _, proc := range procs {
		cmd := strings.ToLower(proc.Command)
		if !strings.Contains(cmd, interpreter) {
			continue
		}
		if !slices.ContainsFunc(e.settings.ProcessKeywords, func(kw string) bool {
			return kw != "" && strings.Contains(cmd, strings.ToLower(kw))
		}) {
			continue
		}
		rows = append(rows, fmt.Sprintf("PID %d: %s... (CPU:%s%% MEM:%s%%)",
			proc.PID, truncate(proc.Command, maxCommandChars), formatPercent(proc.CPU), formatPercent(proc.Mem)))
		if len(rows) == maxProcesses {
			break
		}
	}

	if len(rows) == 0 {
		return Result{Response: "No training/bridge processes found.", Title: "Processes", Tags: "gear"}
	}
	return Result{Response: strings.Join(rows, "\n"), Title: "Processes", Tags: "gear"}
}

func (e *Engine) logs(ctx context.Context, n int) Result {
	if n <= 0 {
		return Result{Response: "", Title: fmt.Sprintf("Last %d Log Lines", n), Tags: "page_facing_up"}
	}
	raw, err := e.inspector.TailLines(ctx, e.settings.TrainingLog, n)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Response: "Training log not found.", Title: "Training Logs", Tags: "page_facing_up"}
		}
		return e.failure("Error", err)
	}

	cleaned := ansiPattern.ReplaceAllString(strings.Join(raw, "\n"), "")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(cleaned, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return Result{
		Response: truncate(strings.Join(lines, "\n"), maxResponseChars),
		Title:    fmt.Sprintf("Last %d Log Lines", n),
		Tags:     "page_facing_up",
	}
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// truncate limits s to n characters without splitting a rune.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
