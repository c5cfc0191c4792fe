package history

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"backend-spothitch/internal/contact"
	"backend-spothitch/internal/db"
	"backend-spothitch/internal/positionlog"
)

// MaxRecords caps the archive; the oldest completed trip is dropped first.
const MaxRecords = 20

// Record is an immutable snapshot of a completed trip.
type Record struct {
	ID              string            `json:"id"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	Guardian        contact.Contact   `json:"guardian"`
	TrustedContacts []contact.Contact `json:"trusted_contacts"`
	Positions       []positionlog.Fix `json:"positions"`
	CheckInsCount   int               `json:"check_ins_count"`
	Destination     string            `json:"destination,omitempty"`
}

// RecordID derives the archive id from the trip start, as the client did.
func RecordID(startTime time.Time) string {
	return strconv.FormatInt(startTime.UnixMilli(), 10)
}

// Archiver is the seam the trip manager records through.
type Archiver interface {
	RecordTrip(ctx context.Context, rec Record) error
	List(ctx context.Context) ([]Record, error)
	Clear(ctx context.Context) error
}

// Archive stores completed trips in Postgres.
type Archive struct {
	db db.Querier
}

func NewArchive(querier db.Querier) *Archive {
	return &Archive{db: querier}
}

func (a *Archive) RecordTrip(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		rec.ID = RecordID(rec.StartTime)
	}

	guardian, err := json.Marshal(rec.Guardian)
	if err != nil {
		return err
	}
	trusted, err := json.Marshal(rec.TrustedContacts)
	if err != nil {
		return err
	}
	positions, err := json.Marshal(rec.Positions)
	if err != nil {
		return err
	}

	_, err = a.db.Exec(ctx, `
		INSERT INTO trip_history (id, start_time, end_time, guardian, trusted_contacts, positions, check_ins_count, destination)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.StartTime, rec.EndTime, guardian, trusted, positions, rec.CheckInsCount, rec.Destination)
	if err != nil {
		return err
	}

	_, err = a.db.Exec(ctx, `
		DELETE FROM trip_history
		WHERE id NOT IN (
			SELECT id FROM trip_history ORDER BY start_time DESC LIMIT $1
		)
	`, MaxRecords)
	return err
}

func (a *Archive) List(ctx context.Context) ([]Record, error) {
	rows, err := a.db.Query(ctx, `
		SELECT id, start_time, end_time, guardian, trusted_contacts, positions, check_ins_count, destination
		FROM trip_history
		ORDER BY start_time DESC
		LIMIT $1
	`, MaxRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var guardian, trusted, positions []byte
		if err := rows.Scan(&rec.ID, &rec.StartTime, &rec.EndTime, &guardian, &trusted, &positions, &rec.CheckInsCount, &rec.Destination); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(guardian, &rec.Guardian)
		_ = json.Unmarshal(trusted, &rec.TrustedContacts)
		_ = json.Unmarshal(positions, &rec.Positions)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (a *Archive) Clear(ctx context.Context) error {
	_, err := a.db.Exec(ctx, `DELETE FROM trip_history`)
	return err
}
