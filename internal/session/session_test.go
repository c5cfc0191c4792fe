package session

import (
	"testing"
	"time"

	"backend-spothitch/internal/contact"
)

func TestClampInterval(t *testing.T) {
	for _, m := range AllowedIntervals {
		if got := ClampInterval(m); got != m {
			t.Fatalf("allowed interval %d clamped to %d", m, got)
		}
	}
	for _, m := range []int{0, -5, 10, 20, 90, 1000} {
		if got := ClampInterval(m); got != DefaultIntervalMinutes {
			t.Fatalf("interval %d should default to %d, got %d", m, DefaultIntervalMinutes, got)
		}
	}
}

func TestRecipients(t *testing.T) {
	s := TripSession{
		Guardian: contact.Contact{Name: "Mom", Phone: "+33600000000"},
		TrustedContacts: []contact.Contact{
			{Name: "A", Phone: "+33611111111"},
			{Name: "no phone"},
			{Name: "B", Phone: "+33622222222"},
		},
	}
	recipients := s.Recipients()
	if len(recipients) != 3 {
		t.Fatalf("expected 3 recipients, got %d", len(recipients))
	}
	if recipients[0].Phone != "+33600000000" {
		t.Fatalf("guardian must come first")
	}

	if got := (TripSession{}).Recipients(); len(got) != 0 {
		t.Fatalf("expected no recipients on empty session")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	s := TripSession{
		Active:                 true,
		Guardian:               contact.Contact{Name: "Mom", Phone: "+33600000000"},
		CheckInIntervalMinutes: 45,
		LastCheckInAt:          now,
		TripStartAt:            now,
		Destination:            "Lyon",
		NotifyOnArrival:        true,
		CheckInsCount:          3,
	}

	data, err := Encode(s)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	restored := Decode(data)
	if !restored.Active || restored.CheckInIntervalMinutes != 45 ||
		restored.CheckInsCount != 3 || restored.Destination != "Lyon" {
		t.Fatalf("unexpected restored session: %+v", restored)
	}
	if !restored.LastCheckInAt.Equal(now) {
		t.Fatalf("last check-in not preserved")
	}
}

func TestDecodeForwardCompatible(t *testing.T) {
	payload := []byte(`{"active":true,"guardian":{"name":"Mom","phone":"+33600000000"},"check_in_interval_minutes":12,"future_field":{"x":1}}`)
	s := Decode(payload)
	if !s.Active {
		t.Fatalf("expected active session")
	}
	if s.CheckInIntervalMinutes != DefaultIntervalMinutes {
		t.Fatalf("unsupported interval should clamp, got %d", s.CheckInIntervalMinutes)
	}
}

func TestDecodeGarbageAndInactive(t *testing.T) {
	if s := Decode([]byte("{not json")); s.Active {
		t.Fatalf("garbage must decode to inactive default")
	}
	if s := Decode(nil); s.Active {
		t.Fatalf("empty payload must decode to inactive default")
	}

	// inactive payload with leftover fields resets to the default shape
	s := Decode([]byte(`{"active":false,"check_ins_count":9,"destination":"x"}`))
	if s.CheckInsCount != 0 || s.Destination != "" {
		t.Fatalf("inactive session must be all defaults: %+v", s)
	}
}
