package alert

import (
	"fmt"
	"strings"
	"time"

	"backend-spothitch/internal/positionlog"
	"backend-spothitch/internal/session"
)

// Message composers are pure: they read the session and produce the
// human-readable multi-line text handed to Dispatch.

func ComposeAlert(s session.TripSession, now time.Time) string {
	var b strings.Builder
	b.WriteString("SAFETY ALERT\n")
	fmt.Fprintf(&b, "%s has missed a safety check-in.\n", travelerLabel)
	fmt.Fprintf(&b, "Trip in progress for %s.\n", formatDuration(now.Sub(s.TripStartAt)))
	if s.Destination != "" {
		fmt.Fprintf(&b, "Planned destination: %s.\n", s.Destination)
	}
	appendPositionLine(&b, s)
	b.WriteString("Please try to reach them.")
	return b.String()
}

func ComposeDeparture(s session.TripSession) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s just started a monitored trip", travelerLabel)
	if s.Destination != "" {
		fmt.Fprintf(&b, " to %s", s.Destination)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "They will check in every %d minutes.\n", s.CheckInIntervalMinutes)
	appendPositionLine(&b, s)
	b.WriteString("You will be alerted if a check-in is missed.")
	return b.String()
}

func ComposeArrival(s session.TripSession, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s arrived safely", travelerLabel)
	if s.Destination != "" {
		fmt.Fprintf(&b, " at %s", s.Destination)
	}
	b.WriteString(".\n")
	fmt.Fprintf(&b, "Trip duration: %s with %d check-ins.\n", formatDuration(now.Sub(s.TripStartAt)), s.CheckInsCount)
	appendPositionLine(&b, s)
	b.WriteString("No further alerts for this trip.")
	return b.String()
}

func ComposeBattery(s session.TripSession, level float64) string {
	var b strings.Builder
	b.WriteString("LOW BATTERY WARNING\n")
	fmt.Fprintf(&b, "The phone of %s is at %d%% battery and may go dark soon.\n", travelerLabel, int(level*100))
	appendPositionLine(&b, s)
	b.WriteString("This is their last known position.")
	return b.String()
}

// MapLink renders a lat,lng link for the alert body.
func MapLink(fix positionlog.Fix) string {
	return fmt.Sprintf("https://maps.google.com/?q=%.5f,%.5f", fix.Lat, fix.Lng)
}

func appendPositionLine(b *strings.Builder, s session.TripSession) {
	if last, ok := s.Positions.Last(); ok {
		fmt.Fprintf(b, "Last known position: %s\n", MapLink(last))
	}
}

// the guardian knows who set them up; profile names are out of scope
const travelerLabel = "Your traveler"

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dmin", m)
	}
	return fmt.Sprintf("%dh%02dmin", h, m)
}
