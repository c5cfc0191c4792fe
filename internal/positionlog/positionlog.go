package positionlog

import (
	"encoding/json"

	"backend-spothitch/internal/shared/geo"
)

// Capacity bounds the breadcrumb trail; the oldest fix is evicted first.
const Capacity = 50

type Fix struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// Log is a bounded, append-only sequence of position fixes.
type Log struct {
	fixes []Fix
}

func (l *Log) Add(f Fix) {
	l.fixes = append(l.fixes, f)
	if len(l.fixes) > Capacity {
		l.fixes = l.fixes[len(l.fixes)-Capacity:]
	}
}

func (l *Log) Len() int {
	return len(l.fixes)
}

// Fixes returns a copy of the retained trail, oldest first.
func (l *Log) Fixes() []Fix {
	out := make([]Fix, len(l.fixes))
	copy(out, l.fixes)
	return out
}

func (l *Log) Last() (Fix, bool) {
	if len(l.fixes) == 0 {
		return Fix{}, false
	}
	return l.fixes[len(l.fixes)-1], true
}

func (l *Log) Reset() {
	l.fixes = nil
}

// FromFixes rebuilds a log from a persisted trail, re-applying the cap.
func FromFixes(fixes []Fix) Log {
	var l Log
	for _, f := range fixes {
		l.Add(f)
	}
	return l
}

func (l Log) MarshalJSON() ([]byte, error) {
	if l.fixes == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.fixes)
}

func (l *Log) UnmarshalJSON(data []byte) error {
	var fixes []Fix
	if err := json.Unmarshal(data, &fixes); err != nil {
		return err
	}
	*l = FromFixes(fixes)
	return nil
}

type Destination struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type ETAInfo struct {
	SpeedKmh    *float64 `json:"speed_kmh"`
	RemainingKm *float64 `json:"remaining_km"`
	ETASeconds  *int64   `json:"eta_seconds"`
	LastFix     *Fix     `json:"last_fix"`
	SampleCount int      `json:"sample_count"`
}

// Estimate derives average speed over the retained trail and, given a
// destination, the remaining straight-line distance and an ETA. Not
// route-aware. Speed is nil with fewer than two samples or zero elapsed
// time.
func Estimate(fixes []Fix, dest *Destination) ETAInfo {
	info := ETAInfo{SampleCount: len(fixes)}
	if len(fixes) > 0 {
		last := fixes[len(fixes)-1]
		info.LastFix = &last
	}

	if len(fixes) >= 2 {
		totalKm := 0.0
		for i := 1; i < len(fixes); i++ {
			totalKm += geo.HaversineKm(fixes[i-1].Lat, fixes[i-1].Lng, fixes[i].Lat, fixes[i].Lng)
		}
		elapsedMs := fixes[len(fixes)-1].TimestampMs - fixes[0].TimestampMs
		if elapsedMs > 0 {
			speed := totalKm / (float64(elapsedMs) / 1000 / 3600)
			info.SpeedKmh = &speed
		}
	}

	if dest != nil && info.LastFix != nil {
		remaining := geo.HaversineKm(info.LastFix.Lat, info.LastFix.Lng, dest.Lat, dest.Lng)
		info.RemainingKm = &remaining
		if info.SpeedKmh != nil && *info.SpeedKmh > 0 {
			eta := int64(remaining / *info.SpeedKmh * 3600)
			info.ETASeconds = &eta
		}
	}
	return info
}
