package battery

import (
	"testing"

	"backend-spothitch/internal/alert"
)

type stubSink struct {
	shows int
}

func (s *stubSink) Show(title, body string, opts alert.NotifyOptions) { s.shows++ }
func (s *stubSink) Vibrate(pattern []int)                             {}

func TestGuardFiresOncePerSession(t *testing.T) {
	provider := NewReportProvider()
	sink := &stubSink{}
	var escalations []float64

	guard := NewGuard(provider, sink, func(level float64) {
		escalations = append(escalations, level)
	})
	guard.Start()

	provider.Report(0.5)
	if len(escalations) != 0 {
		t.Fatalf("must not fire above threshold")
	}

	provider.Report(0.15)
	provider.Report(0.10)
	provider.Report(0.05)
	if len(escalations) != 1 {
		t.Fatalf("expected exactly one escalation, got %d", len(escalations))
	}
	if escalations[0] != 0.15 {
		t.Fatalf("expected first low reading, got %v", escalations[0])
	}
	if sink.shows != 1 {
		t.Fatalf("expected one notification, got %d", sink.shows)
	}

	// next session re-arms the latch
	guard.Stop()
	guard.Start()
	provider.Report(0.10)
	if len(escalations) != 2 {
		t.Fatalf("expected new session to fire again, got %d", len(escalations))
	}
}

func TestGuardImmediateCheckOnStart(t *testing.T) {
	provider := NewReportProvider()
	provider.Report(0.08)

	fired := 0
	guard := NewGuard(provider, nil, func(float64) { fired++ })
	guard.Start()

	if fired != 1 {
		t.Fatalf("expected immediate check on start, fired=%d", fired)
	}
}

func TestGuardNoProviderNoOp(t *testing.T) {
	guard := NewGuard(nil, nil, func(float64) {
		t.Fatalf("must not escalate without a provider")
	})
	guard.Start()
	guard.Stop()
}

func TestGuardStopCancelsSubscription(t *testing.T) {
	provider := NewReportProvider()
	fired := 0
	guard := NewGuard(provider, nil, func(float64) { fired++ })
	guard.Start()
	guard.Stop()

	provider.Report(0.05)
	if fired != 0 {
		t.Fatalf("expected no escalation after stop, fired=%d", fired)
	}
}
