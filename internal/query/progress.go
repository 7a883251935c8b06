package query

import (
	"regexp"
	"strconv"
	"strings"
)

// Progress is a training progress snapshot recovered from log output.
type Progress struct {
	Epoch   int
	Total   int
	Percent int
	// Losses holds box, class, and DFL losses as printed, when present.
	Losses []string
}

// ProgressExtractor recovers the most recent progress snapshot from the tail
// of a training log.
type ProgressExtractor interface {
	Extract(tail string) (Progress, bool)
}

var (
	fractionPattern        = regexp.MustCompile(`\d+/\d+`)
	fractionPercentPattern = regexp.MustCompile(`\d+/\d+.*\d+%`)
	progressPattern        = regexp.MustCompile(`(\d+)/(\d+).*?(\d+)%`)
	lossPattern            = regexp.MustCompile(`(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)`)
)

// EpochProgress understands progress-bar style lines such as
//
//	12/100  1.7G  2.989  5.435  4.506  8  448: 78% ...
//
// Carriage returns are treated as line breaks so redrawn bars split cleanly.
type EpochProgress struct{}

// Extract scans backward for the last line with an N/M fraction next to a
// percentage, an epoch label, or a box_loss column.
func (EpochProgress) Extract(tail string) (Progress, bool) {
	lines := strings.Split(strings.ReplaceAll(tail, "\r", "\n"), "\n")

	var candidate string
	for i := len(lines) - 1; i >= 0; i-- {
		line := lines[i]
		if isProgressLine(line) {
			candidate = strings.TrimSpace(line)
			break
		}
	}
	if candidate == "" {
		return Progress{}, false
	}

	match := progressPattern.FindStringSubmatch(candidate)
	if match == nil {
		return Progress{}, false
	}
	epoch, err1 := strconv.Atoi(match[1])
	total, err2 := strconv.Atoi(match[2])
	percent, err3 := strconv.Atoi(match[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return Progress{}, false
	}

	progress := Progress{Epoch: epoch, Total: total, Percent: percent}
	if losses := lossPattern.FindStringSubmatch(candidate); losses != nil {
		progress.Losses = losses[1:4]
	}
	return progress, true
}

func isProgressLine(line string) bool {
	if fractionPattern.MatchString(line) {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "box_loss") || strings.Contains(lower, "epoch") || strings.Contains(line, "%") {
			return true
		}
	}
	return fractionPercentPattern.MatchString(line)
}
