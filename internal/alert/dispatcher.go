package alert

import (
	"encoding/json"
	"log"
	"time"

	"backend-spothitch/internal/contact"
	"backend-spothitch/internal/positionlog"
	"backend-spothitch/internal/session"

	"github.com/google/uuid"
)

// Vibration patterns in milliseconds, on/off alternating.
var (
	GentleVibration = []int{200, 100, 200}
	StrongVibration = []int{400, 150, 400, 150, 400}
)

type NotifyOptions struct {
	Tag                string
	RequireInteraction bool
	Vibrate            []int
}

// Notifier is the notification sink collaborator. Delivery is fire and
// forget; implementations must not block or fail the caller.
type Notifier interface {
	Show(title, body string, opts NotifyOptions)
	Vibrate(pattern []int)
}

// Publisher receives the serialized in-app event for every dispatch.
// stream.Hub satisfies it.
type Publisher interface {
	Broadcast(payload []byte)
}

// Event is the transient in-app record of a dispatched alert. Never
// persisted.
type Event struct {
	ID           string            `json:"id"`
	Message      string            `json:"message"`
	Recipients   []contact.Contact `json:"recipients"`
	LastPosition *positionlog.Fix  `json:"last_position,omitempty"`
	SentAt       time.Time         `json:"sent_at"`
}

type Dispatcher struct {
	notifier  Notifier
	publisher Publisher
	now       func() time.Time
}

func NewDispatcher(notifier Notifier, publisher Publisher) *Dispatcher {
	return &Dispatcher{notifier: notifier, publisher: publisher, now: time.Now}
}

// Dispatch fans a composed message out to the session's recipients: one
// notification plus one in-app event. Returns the recipient count; zero
// recipients means no I/O at all.
func (d *Dispatcher) Dispatch(message string, s session.TripSession) int {
	recipients := s.Recipients()
	if len(recipients) == 0 {
		return 0
	}

	if d.notifier != nil {
		d.notifier.Show("Spothitch safety alert", message, NotifyOptions{
			Tag:                "safety-alert",
			RequireInteraction: true,
		})
	}

	event := Event{
		ID:         uuid.NewString(),
		Message:    message,
		Recipients: recipients,
		SentAt:     d.now(),
	}
	if last, ok := s.Positions.Last(); ok {
		event.LastPosition = &last
	}

	if d.publisher != nil {
		payload, err := json.Marshal(event)
		if err == nil {
			d.publisher.Broadcast(payload)
		}
	}
	return len(recipients)
}

// LogSink is the production notification adapter. The actual push/SMS
// gateway is an external collaborator; this process only records that a
// notification left the building.
type LogSink struct{}

func (LogSink) Show(title, body string, opts NotifyOptions) {
	log.Printf("notification [%s] %s: %s", opts.Tag, title, body)
}

func (LogSink) Vibrate(pattern []int) {
	log.Printf("vibration %v", pattern)
}
