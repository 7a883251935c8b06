package query_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"

	"ntfybridge/internal/query"
)

type fakeInspector struct {
	pids       map[string]int
	findErr    error
	findErrs   map[string]error
	disk       query.DiskUsage
	diskErr    error
	procs      []query.Process
	logBytes   []byte
	logLines   []string
	logMissing bool

	requestedLines int
	requestedBytes int64
}

func (f *fakeInspector) FindProcess(_ context.Context, pattern string) (int, bool, error) {
	if f.findErr != nil {
		return 0, false, f.findErr
	}
	if err := f.findErrs[pattern]; err != nil {
		return 0, false, err
	}
	pid, ok := f.pids[pattern]
	return pid, ok, nil
}

func (f *fakeInspector) DiskUsage(context.Context, string) (query.DiskUsage, error) {
	return f.disk, f.diskErr
}

func (f *fakeInspector) Processes(context.Context) ([]query.Process, error) {
	return f.procs, nil
}

func (f *fakeInspector) TailBytes(_ context.Context, path string, maxBytes int64) ([]byte, error) {
	f.requestedBytes = maxBytes
	if f.logMissing {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	return f.logBytes, nil
}

func (f *fakeInspector) TailLines(_ context.Context, path string, n int) ([]string, error) {
	f.requestedLines = n
	if f.logMissing {
		return nil, fmt.Errorf("open %s: %w", path, fs.ErrNotExist)
	}
	if len(f.logLines) > n {
		return f.logLines[len(f.logLines)-n:], nil
	}
	return f.logLines, nil
}

func settings() query.Settings {
	return query.Settings{
		TrainingLog:     "/tmp/training.log",
		TrainingProcess: "train",
		MonitorProcess:  "training_monitor",
		BridgeProcess:   "ntfybridge",
		Interpreter:     "python",
		ProcessKeywords: []string{"train", "bridge", "yolo"},
	}
}

func handle(t *testing.T, inspector query.Inspector, body string) query.Result {
	t.Helper()
	engine := query.NewEngine(settings(), inspector)
	result, ok := engine.Handle(context.Background(), body)
	if !ok {
		t.Fatalf("expected %q to be handled as a query", body)
	}
	return result
}

func TestHandleIgnoresOrdinaryMessages(t *testing.T) {
	engine := query.NewEngine(settings(), &fakeInspector{})
	for _, body := range []string{"hello there", "queries: disk", "query:", "  ", "please query: disk"} {
		if _, ok := engine.Handle(context.Background(), body); ok {
			t.Fatalf("did not expect %q to be a query", body)
		}
	}
}

func TestDiskQuery(t *testing.T) {
	inspector := &fakeInspector{disk: query.DiskUsage{
		Total:     100 << 30,
		Used:      40 << 30,
		Available: 60 << 30,
	}}
	result := handle(t, inspector, "query: disk")

	if result.Title != "Disk Space" || result.Tags != "floppy_disk" {
		t.Fatalf("unexpected metadata %+v", result)
	}
	if !strings.Contains(result.Response, "Used:") || !strings.Contains(result.Response, "Available:") {
		t.Fatalf("unexpected response %q", result.Response)
	}
	if !strings.Contains(result.Response, "(40%)") || !strings.Contains(result.Response, "60 GiB") {
		t.Fatalf("unexpected figures %q", result.Response)
	}
}

func TestDiskQueryFallsBackToRawOutput(t *testing.T) {
	inspector := &fakeInspector{disk: query.DiskUsage{Raw: strings.Repeat("r", 300)}}
	result := handle(t, inspector, "Q: space")
	if result.Title != "Disk Space" || len(result.Response) != 200 {
		t.Fatalf("unexpected fallback %+v", result)
	}
}

func TestDiskQueryError(t *testing.T) {
	inspector := &fakeInspector{diskErr: errors.New(strings.Repeat("e", 150))}
	result := handle(t, inspector, "query: disk")
	if result.Title != "Query Error" || result.Tags != "x" {
		t.Fatalf("unexpected error result %+v", result)
	}
	if result.Response != "Error: "+strings.Repeat("e", 100) {
		t.Fatalf("diagnostic not truncated: %q", result.Response)
	}
}

func TestUnknownQuery(t *testing.T) {
	result := handle(t, &fakeInspector{}, "query: bogus-key")
	if !strings.Contains(result.Response, "Unknown query: bogus-key") {
		t.Fatalf("unexpected response %q", result.Response)
	}
	if result.Tags != "x" || result.Title != "Query Error" {
		t.Fatalf("unexpected metadata %+v", result)
	}
}

func TestLogsQueryWithCount(t *testing.T) {
	inspector := &fakeInspector{logLines: []string{
		"first line",
		"\x1b[32mgreen\x1b[0m done",
		"   ",
		"epoch 1\r epoch 2",
		"last",
	}}
	result := handle(t, inspector, "query: logs 3")

	if inspector.requestedLines != 3 {
		t.Fatalf("expected 3 lines requested, got %d", inspector.requestedLines)
	}
	if result.Title != "Last 3 Log Lines" || result.Tags != "page_facing_up" {
		t.Fatalf("unexpected metadata %+v", result)
	}
	if result.Response != "epoch 1\nepoch 2\nlast" {
		t.Fatalf("unexpected response %q", result.Response)
	}
	if strings.Contains(result.Response, "\x1b") {
		t.Fatalf("ANSI escapes not stripped: %q", result.Response)
	}
}

func TestLogsQueryTruncatesAndStripsANSI(t *testing.T) {
	long := "\x1b[1;31m" + strings.Repeat("z", 600) + "\x1b[0m"
	inspector := &fakeInspector{logLines: []string{long}}
	result := handle(t, inspector, "q: log")

	if inspector.requestedLines != query.DefaultLogLines {
		t.Fatalf("expected default line count, got %d", inspector.requestedLines)
	}
	if result.Response != strings.Repeat("z", 500) {
		t.Fatalf("unexpected response length %d", len(result.Response))
	}
}

func TestLogsQueryMissingLog(t *testing.T) {
	result := handle(t, &fakeInspector{logMissing: true}, "query: logs")
	if result.Response != "Training log not found." || result.Title != "Training Logs" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTrainingQuery(t *testing.T) {
	progressLog := "setup\n" +
		"      1/100      1.7G      2.989      5.435      4.506          8        448: 10%\r" +
		"     12/100      1.7G      1.234      2.345      3.456          8        448: 78% ━━━━\n"

	tests := []struct {
		name      string
		inspector *fakeInspector
		want      string
		tags      string
	}{
		{
			name:      "stopped",
			inspector: &fakeInspector{},
			want:      "No training process running.",
			tags:      "stop_sign",
		},
		{
			name:      "progress",
			inspector: &fakeInspector{pids: map[string]int{"train": 4242}, logBytes: []byte(progressLog)},
			want:      "Epoch 12/100 - 78% complete\nBox: 1.234 | Cls: 2.345 | DFL: 3.456\nPID: 4242",
			tags:      "chart_with_upwards_trend",
		},
		{
			name:      "unparseable",
			inspector: &fakeInspector{pids: map[string]int{"train": 7}, logBytes: []byte("loading weights\n")},
			want:      "Training running (PID: 7)\nUnable to parse progress.",
			tags:      "hourglass",
		},
		{
			name:      "no log",
			inspector: &fakeInspector{pids: map[string]int{"train": 7}, logMissing: true},
			want:      "Training running (PID: 7)\nNo log file found.",
			tags:      "hourglass",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := handle(t, tt.inspector, "query: training")
			if result.Response != tt.want || result.Tags != tt.tags || result.Title != "Training Status" {
				t.Fatalf("unexpected result %+v", result)
			}
		})
	}
}

func TestTrainingQueryReadsBoundedTail(t *testing.T) {
	inspector := &fakeInspector{pids: map[string]int{"train": 1}, logBytes: []byte("x")}
	handle(t, inspector, "query: status")
	if inspector.requestedBytes != 2000 {
		t.Fatalf("expected 2000 byte tail, got %d", inspector.requestedBytes)
	}
}

func TestTrainingQueryError(t *testing.T) {
	result := handle(t, &fakeInspector{findErr: errors.New("pgrep exploded")}, "query: train")
	if result.Response != "Error checking training: pgrep exploded" || result.Tags != "x" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTasksQuery(t *testing.T) {
	inspector := &fakeInspector{
		pids:     map[string]int{"train": 10, "ntfybridge": 11},
		logBytes: []byte("Epoch 3/50 box_loss 45%\n"),
	}
	result := handle(t, inspector, "query: task list")

	want := strings.Join([]string{
		"1. [IN PROGRESS] Training - Epoch 3/50 (45%)",
		"2. [STOPPED] Training Monitor",
		"3. [RUNNING] Remote Bridge",
	}, "\n")
	if result.Response != want || result.Title != "Task Status" || result.Tags != "clipboard" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestTasksQueryAllStopped(t *testing.T) {
	result := handle(t, &fakeInspector{pids: map[string]int{"training_monitor": 5}}, "query: tasks")
	if !strings.HasPrefix(result.Response, "1. [STOPPED] Training\n2. [RUNNING] Training Monitor") {
		t.Fatalf("unexpected response %q", result.Response)
	}
}

func TestTasksQueryTrainingCheckFails(t *testing.T) {
	inspector := &fakeInspector{
		pids:     map[string]int{"training_monitor": 5, "ntfybridge": 11},
		findErrs: map[string]error{"train": errors.New("pgrep: invalid pattern")},
	}
	result := handle(t, inspector, "query: tasks")

	want := strings.Join([]string{
		"1. [IN PROGRESS] Training",
		"2. [RUNNING] Training Monitor",
		"3. [RUNNING] Remote Bridge",
	}, "\n")
	if result.Response != want || result.Title != "Task Status" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestProcessesQuery(t *testing.T) {
	procs := []query.Process{
		{PID: 1, CPU: 0, Mem: 0.1, Command: "/sbin/init"},
		{PID: 2, CPU: 99.5, Mem: 12.3, Command: "python train.py --epochs 100 --data coco.yaml --batch 16"},
		{PID: 3, CPU: 0.2, Mem: 0.3, Command: "python -m http.server"},
		{PID: 4, CPU: 1, Mem: 2, Command: "Python bridge.py"},
	}
	for i := range 6 {
		procs = append(procs, query.Process{PID: 100 + i, Command: "python yolo_worker.py"})
	}

	result := handle(t, &fakeInspector{procs: procs}, "query: ps")
	lines := strings.Split(result.Response, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 rows, got %d: %q", len(lines), result.Response)
	}
	if lines[0] != "PID 2: python train.py --epochs 100 --data coco... (CPU:99.5% MEM:12.3%)" {
		t.Fatalf("unexpected first row %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "PID 4: Python bridge.py...") {
		t.Fatalf("unexpected second row %q", lines[1])
	}
}

func TestProcessesQueryNoneFound(t *testing.T) {
	result := handle(t, &fakeInspector{}, "query: processes")
	if result.Response != "No training/bridge processes found." || result.Title != "Processes" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestHelpQuery(t *testing.T) {
	for _, body := range []string{"query: help", "q: ?", "QUERY:   HELP  "} {
		result := handle(t, &fakeInspector{}, body)
		if result.Title != "Query Help" || result.Tags != "question" {
			t.Fatalf("%q: unexpected result %+v", body, result)
		}
		if !strings.HasSuffix(result.Response, "Example: query: training") {
			t.Fatalf("%q: unexpected help text %q", body, result.Response)
		}
	}
}
