package ntfy

import (
	"strconv"
	"strings"
)

// Priority is the ntfy message priority vocabulary used for publishing.
type Priority string

const (
	PriorityMin     Priority = "min"
	PriorityLow     Priority = "low"
	PriorityDefault Priority = "default"
	PriorityHigh    Priority = "high"
	PriorityMax     Priority = "max"
)

// DefaultLevel is the numeric priority ntfy assigns when none is given.
const DefaultLevel = 3

var priorityLevels = map[Priority]int{
	PriorityMin:     1,
	PriorityLow:     2,
	PriorityDefault: 3,
	PriorityHigh:    4,
	PriorityMax:     5,
}

// ParsePriority maps names, ntfy aliases ("urgent"), and numeric levels to the
// priority vocabulary. The second return value is false for unknown input, in
// which case PriorityDefault is returned.
func ParsePriority(value string) (Priority, bool) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "":
		return PriorityDefault, true
	case "urgent":
		return PriorityMax, true
	}
	if p := Priority(normalized); priorityLevels[p] != 0 {
		return p, true
	}
	if level, err := strconv.Atoi(normalized); err == nil {
		if p, ok := PriorityFromLevel(level); ok {
			return p, true
		}
	}
	return PriorityDefault, false
}

// PriorityFromLevel maps a numeric level (1-5) to its name.
func PriorityFromLevel(level int) (Priority, bool) {
	for p, l := range priorityLevels {
		if l == level {
			return p, true
		}
	}
	return PriorityDefault, false
}

// Level returns the numeric level (1-5) for p, or DefaultLevel when p is unknown.
func (p Priority) Level() int {
	if level, ok := priorityLevels[p]; ok {
		return level
	}
	return DefaultLevel
}
