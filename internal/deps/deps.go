package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines a host tool the query handlers shell out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Severity classifies a status for display: ok, warn (optional and
// missing), or error (required and missing).
func (s Status) Severity() string {
	switch {
	case s.Available:
		return "ok"
	case s.Optional:
		return "warn"
	default:
		return "error"
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Detail = path
		results = append(results, status)
	}
	return results
}

// Summary aggregates requirement availability.
type Summary struct {
	Total           int
	Available       int
	MissingRequired int
	MissingOptional int
	Severity        string
	Detail          string
}

// Summarize counts available and missing requirements.
func Summarize(statuses []Status) Summary {
	if len(statuses) == 0 {
		return Summary{Severity: "info", Detail: "No dependency checks configured"}
	}
	summary := Summary{Total: len(statuses)}
	for _, status := range statuses {
		switch {
		case status.Available:
			summary.Available++
		case status.Optional:
			summary.MissingOptional++
		default:
			summary.MissingRequired++
		}
	}
	summary.Severity = "ok"
	if summary.MissingRequired > 0 {
		summary.Severity = "error"
	} else if summary.MissingOptional > 0 {
		summary.Severity = "warn"
	}
	summary.Detail = fmt.Sprintf("%d/%d available", summary.Available, summary.Total)
	if missing := summary.MissingRequired + summary.MissingOptional; missing > 0 {
		summary.Detail = fmt.Sprintf("%s (missing: %d required, %d optional)", summary.Detail, summary.MissingRequired, summary.MissingOptional)
	}
	return summary
}
