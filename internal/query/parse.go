package query

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the closed set of supported queries.
type Kind int

const (
	KindUnknown Kind = iota
	KindTraining
	KindTasks
	KindDisk
	KindProcesses
	KindLogs
	KindHelp
)

func (k Kind) String() string {
	switch k {
	case KindTraining:
		return "training"
	case KindTasks:
		return "tasks"
	case KindDisk:
		return "disk"
	case KindProcesses:
		return "processes"
	case KindLogs:
		return "logs"
	case KindHelp:
		return "help"
	default:
		return "unknown"
	}
}

const (
	// DefaultLogLines is used by "logs" without a count.
	DefaultLogLines = 10
	// MaxLogLines caps "logs N"; replies are truncated well before this.
	MaxLogLines = 500
)

var (
	queryPattern    = regexp.MustCompile(`(?i)^(?:query|q):\s*(.+)$`)
	logCountPattern = regexp.MustCompile(`^logs?\s+(\d+)$`)
)

var keyKinds = map[string]Kind{
	"training":  KindTraining,
	"train":     KindTraining,
	"status":    KindTraining,
	"tasks":     KindTasks,
	"task":      KindTasks,
	"task list": KindTasks,
	"disk":      KindDisk,
	"space":     KindDisk,
	"processes": KindProcesses,
	"process":   KindProcesses,
	"ps":        KindProcesses,
	"logs":      KindLogs,
	"log":       KindLogs,
	"help":      KindHelp,
	"?":         KindHelp,
}

// Request is a parsed query.
type Request struct {
	Kind Kind
	// Key is the lower-cased, trimmed text after the prefix.
	Key string
	// Lines is the requested log line count for KindLogs.
	Lines int
}

// Parse reports whether body is a query and, if so, what it asks for.
// Unrecognized keys parse as KindUnknown; only bodies without the prefix
// return false.
func Parse(body string) (Request, bool) {
	match := queryPattern.FindStringSubmatch(strings.TrimSpace(body))
	if match == nil {
		return Request{}, false
	}
	// Casers carry state and are not shared across goroutines.
	key := strings.TrimSpace(cases.Lower(language.Und).String(strings.TrimSpace(match[1])))

	if m := logCountPattern.FindStringSubmatch(key); m != nil {
		lines, err := strconv.Atoi(m[1])
		if err != nil || lines > MaxLogLines {
			lines = MaxLogLines
		}
		return Request{Kind: KindLogs, Key: key, Lines: lines}, true
	}

	kind := keyKinds[key]
	req := Request{Kind: kind, Key: key}
	if kind == KindLogs {
		req.Lines = DefaultLogLines
	}
	return req, true
}
