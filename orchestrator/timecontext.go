package orchestrator

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ghiac/chatforge/providers"
)

var timeContextBlockRegex = regexp.MustCompile(`<Time Context>[\s\S]*?</Time Context>`)
var extraBlankLinesRegex = regexp.MustCompile(`\n{3,}`)

// applyTimeContext strips any stale <Time Context> block from the system
// message and appends a freshly generated one, computed in loc (falling
// back to UTC for an unknown or empty zone). Grounded on
// time_utils.py's clean_and_update_time_context.
func applyTimeContext(messages []providers.Message, timezone string) []providers.Message {
	idx := systemMessageIndex(messages)
	if idx == -1 {
		messages = append([]providers.Message{{Role: "system", Content: ""}}, messages...)
		idx = 0
	}

	content := messages[idx].Content
	if strings.Contains(content, "<Time Context>") {
		content = timeContextBlockRegex.ReplaceAllString(content, "")
		content = extraBlankLinesRegex.ReplaceAllString(content, "\n\n")
		content = strings.TrimSpace(content)
	}

	messages[idx].Content = strings.TrimSpace(content) + "\n\n<Time Context>\n" + generateTimeContext(timezone) + "\n</Time Context>"
	return messages
}

// generateTimeContext builds the human-readable time context string:
// date, 12-hour time, timezone, hemisphere season, and at most one
// holiday. Grounded on time_utils.py's generate_time_context.
func generateTimeContext(timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil || timezone == "" {
		loc = time.UTC
	}
	now := time.Now().In(loc)

	formattedDate := now.Format("Monday, January 2, 2006")
	formattedTime := formatHour12(now)

	var sb strings.Builder
	sb.WriteString("Current date and time: " + formattedDate + ", " + formattedTime + " " + loc.String() + ". ")
	sb.WriteString("Please use this information when responding to time-sensitive queries, while acknowledging that your training data has a cutoff date.")
	sb.WriteString(" It is currently " + season(now.Month(), now.Day()) + " in the northern hemisphere.")

	if h := holiday(now.Month(), now.Day()); h != "" {
		sb.WriteString(" Notable current holidays: " + h + ".")
	}
	return sb.String()
}

// formatHour12 renders a 12-hour clock without a leading zero, e.g. "3:05 PM".
func formatHour12(t time.Time) string {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	ampm := "AM"
	if t.Hour() >= 12 {
		ampm = "PM"
	}
	return strconv.Itoa(hour) + t.Format(":04 ") + ampm
}

func season(month time.Month, day int) string {
	switch {
	case (month == time.December && day >= 21) || month <= time.February || (month == time.March && day < 20):
		return "winter"
	case (month == time.March && day >= 20) || (month >= time.April && month <= time.May) || (month == time.June && day < 21):
		return "spring"
	case (month == time.June && day >= 21) || (month >= time.July && month <= time.August) || (month == time.September && day < 22):
		return "summer"
	default:
		return "autumn"
	}
}

// holiday returns at most one holiday name, in priority order
// Christmas -> New Year's Day -> Independence Day (US).
func holiday(month time.Month, day int) string {
	switch {
	case month == time.December && day >= 24 && day <= 26:
		return "Christmas"
	case month == time.January && day == 1:
		return "New Year's Day"
	case month == time.July && day == 4:
		return "Independence Day (US)"
	default:
		return ""
	}
}
