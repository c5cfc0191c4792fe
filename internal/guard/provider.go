package guard

import (
	"context"
	"errors"
	"sync"
	"time"

	"backend-spothitch/internal/positionlog"
)

var errNoRecentFix = errors.New("no recent position fix")

// ReportedProvider is the production PositionProvider: client devices push
// fixes over HTTP and a best-effort sample returns the latest one while it
// is still fresh. There is no server-side GPS to poll.
type ReportedProvider struct {
	mu      sync.Mutex
	last    positionlog.Fix
	haveFix bool

	maxAge time.Duration
	clock  func() time.Time
}

func NewReportedProvider(maxAge time.Duration) *ReportedProvider {
	return &ReportedProvider{maxAge: maxAge, clock: time.Now}
}

func (p *ReportedProvider) Report(lat, lng float64) {
	p.mu.Lock()
	p.last = positionlog.Fix{Lat: lat, Lng: lng, TimestampMs: p.clock().UnixMilli()}
	p.haveFix = true
	p.mu.Unlock()
}

func (p *ReportedProvider) CurrentPosition(_ context.Context, _ bool) (positionlog.Fix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.haveFix {
		return positionlog.Fix{}, errNoRecentFix
	}
	if p.maxAge > 0 {
		age := p.clock().Sub(time.UnixMilli(p.last.TimestampMs))
		if age > p.maxAge {
			return positionlog.Fix{}, errNoRecentFix
		}
	}
	return p.last, nil
}
