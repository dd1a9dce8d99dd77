package scenes

import (
	"fmt"
	"strings"
	"time"

	"github.com/volunteerhub/eventbot/internal/model"
)

const eventTimeLayout = "Mon, 02 Jan 2006 15:04"

func formatEvent(ev model.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", ev.Title)
	fmt.Fprintf(&b, "When: %s\n", ev.DateTime.Format(eventTimeLayout))
	fmt.Fprintf(&b, "Where: %s\n", ev.Location)
	fmt.Fprintf(&b, "Capacity: %d\n", ev.Capacity)
	if ev.Description.Valid && ev.Description.String != "" {
		fmt.Fprintf(&b, "Details: %s\n", ev.Description.String)
	}
	if ev.OrganiserName.Valid && ev.OrganiserName.String != "" {
		fmt.Fprintf(&b, "Organiser: %s\n", ev.OrganiserName.String)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatEventList(events []model.Event) string {
	var b strings.Builder
	for i, ev := range events {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, ev.Title,
			ev.DateTime.Format("02 Jan 2006 15:04"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func combineDateTime(date time.Time, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.Local)
}

func isSkip(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "/skip")
}
