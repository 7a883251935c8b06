package mailbox

import (
	"fmt"
	"strings"
)

// NoMessages is printed by FormatEntries for an empty slice.
const NoMessages = "No new messages."

var priorityIcons = map[int]string{
	1: "⬇️",
	2: "↓",
	4: "↑",
	5: "⬆️",
}

// PriorityIcon returns the arrow shown next to an entry of the given level.
// Default priority and out-of-range values have no icon.
func PriorityIcon(priority int) string {
	return priorityIcons[priority]
}

// FormatEntries renders entries for the inbox check hook: a count header,
// then one block per message with its timestamp trimmed to seconds.
func FormatEntries(entries []InboxEntry) string {
	if len(entries) == 0 {
		return NoMessages
	}

	lines := make([]string, 0, 1+2*len(entries))
	lines = append(lines, fmt.Sprintf("=== %d new message(s) ===\n", len(entries)))
	for _, entry := range entries {
		stamp := entry.Timestamp
		if len(stamp) > 19 {
			stamp = stamp[:19]
		}
		icon := PriorityIcon(entry.Priority)
		if entry.Title != "" {
			lines = append(lines, fmt.Sprintf("[%s] %s %s", stamp, icon, entry.Title))
			lines = append(lines, fmt.Sprintf("  %s\n", entry.Message))
			continue
		}
		lines = append(lines, fmt.Sprintf("[%s] %s %s\n", stamp, icon, entry.Message))
	}
	return strings.Join(lines, "\n")
}
