package session

import (
	"encoding/json"
	"time"

	"backend-spothitch/internal/contact"
	"backend-spothitch/internal/positionlog"
)

// AllowedIntervals lists the accepted check-in intervals, in minutes.
var AllowedIntervals = []int{15, 30, 45, 60}

// DefaultIntervalMinutes is used when the caller asks for an unsupported
// interval.
const DefaultIntervalMinutes = 30

// TripSession is the single mutable aggregate of a monitored trip. An
// inactive session holds only default values.
type TripSession struct {
	Active                 bool              `json:"active"`
	Guardian               contact.Contact   `json:"guardian"`
	TrustedContacts        []contact.Contact `json:"trusted_contacts"`
	CheckInIntervalMinutes int               `json:"check_in_interval_minutes"`
	LastCheckInAt          time.Time         `json:"last_check_in_at"`
	TripStartAt            time.Time         `json:"trip_start_at"`
	Positions              positionlog.Log   `json:"positions"`
	AlertSent              bool              `json:"alert_sent"`
	Destination            string            `json:"destination,omitempty"`
	NotifyOnDeparture      bool              `json:"notify_on_departure"`
	NotifyOnArrival        bool              `json:"notify_on_arrival"`
	CheckInsCount          int               `json:"check_ins_count"`
}

// Default returns the inactive session shape.
func Default() TripSession {
	return TripSession{}
}

// ClampInterval maps any requested interval onto the allowed set.
func ClampInterval(minutes int) int {
	for _, allowed := range AllowedIntervals {
		if minutes == allowed {
			return minutes
		}
	}
	return DefaultIntervalMinutes
}

// Recipients returns the guardian plus trusted contacts that have a phone
// number configured.
func (s TripSession) Recipients() []contact.Contact {
	var out []contact.Contact
	if s.Guardian.Phone != "" {
		out = append(out, s.Guardian)
	}
	for _, c := range s.TrustedContacts {
		if c.Phone != "" {
			out = append(out, c)
		}
	}
	return out
}

// Encode serializes the session for the durable store.
func Encode(s TripSession) ([]byte, error) {
	return json.Marshal(s)
}

// Decode restores a persisted session. Unknown fields are ignored and
// missing fields keep their defaults; malformed payloads decode to the
// inactive default rather than failing the caller.
func Decode(data []byte) TripSession {
	var s TripSession
	if len(data) == 0 {
		return Default()
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Default()
	}
	if !s.Active {
		// inactive implies all defaults
		return Default()
	}
	s.CheckInIntervalMinutes = ClampInterval(s.CheckInIntervalMinutes)
	if len(s.TrustedContacts) > contact.MaxTrusted {
		s.TrustedContacts = s.TrustedContacts[:contact.MaxTrusted]
	}
	return s
}
