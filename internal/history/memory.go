package history

import (
	"context"
	"sync"
)

// MemoryArchive keeps the archive in process memory. Used when no Postgres
// is configured; the safety engine must keep working without its disk.
type MemoryArchive struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

func (a *MemoryArchive) RecordTrip(_ context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = RecordID(rec.StartTime)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append([]Record{rec}, a.records...)
	if len(a.records) > MaxRecords {
		a.records = a.records[:MaxRecords]
	}
	return nil
}

func (a *MemoryArchive) List(_ context.Context) ([]Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out, nil
}

func (a *MemoryArchive) Clear(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = nil
	return nil
}
