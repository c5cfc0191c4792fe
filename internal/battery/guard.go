package battery

import (
	"sync"

	"backend-spothitch/internal/alert"
)

// LowThreshold is the charge fraction at or below which the guard fires.
const LowThreshold = 0.15

// Provider is the optional battery collaborator. Subscribe reports the
// current level immediately when known, then on every change, and returns
// a cancel func. Levels are in [0,1].
type Provider interface {
	Subscribe(onLevel func(level float64)) (cancel func())
}

// Guard watches battery level while a trip is active and escalates at most
// once per session. Without a provider it is a no-op and never errors.
type Guard struct {
	provider Provider
	notifier alert.Notifier
	escalate func(level float64)

	mu     sync.Mutex
	fired  bool
	cancel func()
}

func NewGuard(provider Provider, notifier alert.Notifier, escalate func(level float64)) *Guard {
	return &Guard{provider: provider, notifier: notifier, escalate: escalate}
}

// Start arms the guard for a new session, replacing any previous
// subscription.
func (g *Guard) Start() {
	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.fired = false
	g.mu.Unlock()

	if g.provider == nil {
		return
	}
	cancel := g.provider.Subscribe(g.handle)

	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
}

func (g *Guard) Stop() {
	g.mu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.fired = false
	g.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (g *Guard) handle(level float64) {
	if level > LowThreshold {
		return
	}

	g.mu.Lock()
	if g.fired {
		g.mu.Unlock()
		return
	}
	g.fired = true
	g.mu.Unlock()

	if g.notifier != nil {
		g.notifier.Show("Battery low", "Battery critical during an active trip. Your contacts are being warned.", alert.NotifyOptions{
			Tag:     "battery-low",
			Vibrate: alert.GentleVibration,
		})
	}
	if g.escalate != nil {
		g.escalate(level)
	}
}

// ReportProvider is the production Provider: client devices push their
// battery level over HTTP and the latest reading feeds subscribers.
type ReportProvider struct {
	mu        sync.Mutex
	last      float64
	haveLevel bool
	onLevel   func(level float64)
}

func NewReportProvider() *ReportProvider {
	return &ReportProvider{}
}

func (p *ReportProvider) Subscribe(onLevel func(level float64)) (cancel func()) {
	p.mu.Lock()
	p.onLevel = onLevel
	level, known := p.last, p.haveLevel
	p.mu.Unlock()

	if known {
		onLevel(level)
	}
	return func() {
		p.mu.Lock()
		if p.onLevel != nil {
			p.onLevel = nil
		}
		p.mu.Unlock()
	}
}

// Report records a client-reported level and forwards it to the
// subscriber. Out-of-range values are clamped.
func (p *ReportProvider) Report(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	p.mu.Lock()
	p.last = level
	p.haveLevel = true
	onLevel := p.onLevel
	p.mu.Unlock()

	if onLevel != nil {
		onLevel(level)
	}
}
