package geo

import "testing"

func TestHaversineKm(t *testing.T) {
	// Paris (48.8566, 2.3522) to Lyon (45.7640, 4.8357) ~ 390-400 km
	d := HaversineKm(48.8566, 2.3522, 45.7640, 4.8357)
	if d < 380 || d > 410 {
		t.Fatalf("unexpected distance: %v", d)
	}
}

func TestHaversineZero(t *testing.T) {
	if d := HaversineKm(48.85, 2.35, 48.85, 2.35); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
}
