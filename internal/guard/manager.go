package guard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"backend-spothitch/internal/alert"
	"backend-spothitch/internal/battery"
	"backend-spothitch/internal/contact"
	"backend-spothitch/internal/history"
	"backend-spothitch/internal/positionlog"
	"backend-spothitch/internal/session"
	"backend-spothitch/internal/store"
)

// Scheduler states, derived from the session rather than stored.
const (
	StateInactive       = "INACTIVE"
	StateActiveWaiting  = "ACTIVE_WAITING"
	StateOverdueUnacked = "ACTIVE_OVERDUE_UNACKED"
	StateOverdueAlerted = "ACTIVE_OVERDUE_ALERTED"
)

const (
	// SessionKey is where the active session lives in the durable store.
	SessionKey = "spothitch:trip:session"

	// reminder fires once per cycle when this close to the deadline
	reminderWindowSeconds = 120

	positionTimeout = 10 * time.Second
)

var (
	ErrTripActive    = errors.New("trip already active")
	ErrGuardianPhone = errors.New("guardian phone required")
)

// PositionProvider is the geolocation collaborator: one best-effort sample
// per call, no streaming.
type PositionProvider interface {
	CurrentPosition(ctx context.Context, highAccuracy bool) (positionlog.Fix, error)
}

// Options configures a new trip.
type Options struct {
	TrustedContacts   []contact.Contact `json:"trusted_contacts"`
	Destination       string            `json:"destination"`
	NotifyOnDeparture bool              `json:"notify_on_departure"`
	NotifyOnArrival   bool              `json:"notify_on_arrival"`
}

// StopOptions: the zero value sends the arrival notification when the trip
// asked for one.
type StopOptions struct {
	SkipArrivalNotification bool `json:"skip_arrival_notification"`
}

// Snapshot is the read-only view handed to callers and overdue hooks.
type Snapshot struct {
	State            string              `json:"state"`
	Session          session.TripSession `json:"session"`
	RemainingSeconds float64             `json:"remaining_seconds"`
	Overdue          bool                `json:"overdue"`
}

// Config wires the manager's collaborators. TickEvery <= 0 disables the
// runtime ticker so tests drive Tick with an explicit clock.
type Config struct {
	Dispatcher     *alert.Dispatcher
	Notifier       alert.Notifier
	Positions      PositionProvider
	Store          store.DurableStore
	Archive        history.Archiver
	Battery        *battery.Guard
	TickEvery      time.Duration
	DepartureDelay time.Duration
	Clock          func() time.Time
}

// Manager owns the single active TripSession per installation and runs the
// check-in countdown and escalation policy. All mutation goes through its
// mutex so timer ticks, position callbacks and user actions never
// interleave mid-update.
type Manager struct {
	mu              sync.Mutex
	session         session.TripSession
	reminderSent    bool
	overdueNotified bool
	overdueHooks    []func(Snapshot)
	stopTick        chan struct{}

	dispatcher *alert.Dispatcher
	notifier   alert.Notifier
	positions  PositionProvider
	store      store.DurableStore
	archive    history.Archiver
	battery    *battery.Guard

	clock          func() time.Time
	tickEvery      time.Duration
	departureDelay time.Duration
}

func NewManager(cfg Config) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Manager{
		session:        session.Default(),
		dispatcher:     cfg.Dispatcher,
		notifier:       cfg.Notifier,
		positions:      cfg.Positions,
		store:          cfg.Store,
		archive:        cfg.Archive,
		battery:        cfg.Battery,
		clock:          clock,
		tickEvery:      cfg.TickEvery,
		departureDelay: cfg.DepartureDelay,
	}
}

// Start begins a monitored trip. It rejects an empty guardian phone and a
// duplicate start while a trip is active; everything else is clamped, not
// rejected.
func (m *Manager) Start(ctx context.Context, guardian contact.Contact, intervalMinutes int, opts Options) error {
	guardian = guardian.Clean()
	if guardian.Phone == "" {
		return ErrGuardianPhone
	}

	m.mu.Lock()
	if m.session.Active {
		m.mu.Unlock()
		return ErrTripActive
	}
	now := m.clock()
	s := session.Default()
	s.Active = true
	s.Guardian = guardian
	s.TrustedContacts = contact.SanitizeTrusted(opts.TrustedContacts)
	s.CheckInIntervalMinutes = session.ClampInterval(intervalMinutes)
	s.LastCheckInAt = now
	s.TripStartAt = now
	s.Destination = opts.Destination
	s.NotifyOnDeparture = opts.NotifyOnDeparture
	s.NotifyOnArrival = opts.NotifyOnArrival
	m.session = s
	m.reminderSent = false
	m.overdueNotified = false
	m.armTickLocked()
	m.mu.Unlock()

	m.persist(ctx)
	m.samplePosition()
	if m.battery != nil {
		m.battery.Start()
	}
	if s.NotifyOnDeparture {
		if m.departureDelay <= 0 {
			m.dispatchDeparture()
		} else {
			time.AfterFunc(m.departureDelay, m.dispatchDeparture)
		}
	}
	return nil
}

// CheckIn resets the countdown to the full interval, clears any overdue
// state and requests a fresh position sample. No-op while inactive.
func (m *Manager) CheckIn(ctx context.Context) bool {
	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return false
	}
	m.session.LastCheckInAt = m.clock()
	m.session.AlertSent = false
	m.session.CheckInsCount++
	m.reminderSent = false
	m.overdueNotified = false
	m.mu.Unlock()

	m.persist(ctx)
	m.samplePosition()
	return true
}

// Stop ends the trip from any state: optional arrival notice, archive
// snapshot, then reset to the inactive defaults.
func (m *Manager) Stop(ctx context.Context, opts StopOptions) {
	m.mu.Lock()
	s := m.session
	now := m.clock()
	m.session = session.Default()
	m.reminderSent = false
	m.overdueNotified = false
	m.cancelTickLocked()
	m.mu.Unlock()

	if m.battery != nil {
		m.battery.Stop()
	}
	if !s.Active {
		return
	}

	if s.NotifyOnArrival && !opts.SkipArrivalNotification && m.dispatcher != nil {
		m.dispatcher.Dispatch(alert.ComposeArrival(s, now), s)
	}

	if m.archive != nil {
		rec := history.Record{
			ID:              history.RecordID(s.TripStartAt),
			StartTime:       s.TripStartAt,
			EndTime:         now,
			Guardian:        s.Guardian,
			TrustedContacts: s.TrustedContacts,
			Positions:       s.Positions.Fixes(),
			CheckInsCount:   s.CheckInsCount,
			Destination:     s.Destination,
		}
		if err := m.archive.RecordTrip(ctx, rec); err != nil {
			log.Printf("trip archive skipped: %v", err)
		}
	}

	m.persist(ctx)
}

// Tick advances the countdown against the given wall-clock time. The
// runtime wrapper calls it on a fixed cadence; tests call it directly.
func (m *Manager) Tick(now time.Time) {
	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return
	}
	remaining := m.remainingLocked(now)
	alerted := m.session.AlertSent

	var reminder, overdueNotice, vibrate bool
	var hooks []func(Snapshot)
	switch {
	case remaining > reminderWindowSeconds:
		m.reminderSent = false
		m.overdueNotified = false
	case remaining > 0:
		if !m.reminderSent {
			m.reminderSent = true
			reminder = true
		}
	default:
		if !m.overdueNotified {
			m.overdueNotified = true
			overdueNotice = true
			hooks = append(hooks, m.overdueHooks...)
		}
		vibrate = !alerted && !overdueNotice
	}
	interval := m.session.CheckInIntervalMinutes
	snap := m.snapshotLocked(now)
	m.mu.Unlock()

	if m.notifier != nil {
		if reminder {
			m.notifier.Show("Check-in reminder",
				fmt.Sprintf("Your %d-minute check-in is due in less than 2 minutes.", interval),
				alert.NotifyOptions{Tag: "checkin-reminder", Vibrate: alert.GentleVibration})
		}
		if overdueNotice {
			m.notifier.Show("Check-in overdue",
				"You missed your safety check-in. Check in now or your contacts can be alerted.",
				alert.NotifyOptions{Tag: "checkin-overdue", RequireInteraction: true, Vibrate: alert.StrongVibration})
		}
		if vibrate {
			m.notifier.Vibrate(alert.StrongVibration)
		}
	}
	for _, hook := range hooks {
		hook(snap)
	}
}

// SendAlert escalates to the guardian and trusted contacts with the last
// known position. Returns the recipient count; ok is false while inactive
// or when no recipient has a phone configured. The session is marked
// alerted only after at least one recipient was reached.
func (m *Manager) SendAlert(ctx context.Context) (int, bool) {
	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return 0, false
	}
	now := m.clock()
	s := m.session
	m.mu.Unlock()

	count := 0
	if m.dispatcher != nil {
		count = m.dispatcher.Dispatch(alert.ComposeAlert(s, now), s)
	}
	if count == 0 {
		return 0, false
	}

	m.mu.Lock()
	if m.session.Active {
		m.session.AlertSent = true
	}
	m.mu.Unlock()
	m.persist(ctx)
	return count, true
}

// Restore rehydrates a persisted active session at boot and resumes the
// countdown from the persisted last check-in; time while the process was
// down still counts against the interval.
func (m *Manager) Restore(ctx context.Context) {
	if m.store == nil {
		return
	}
	data, err := m.store.Get(ctx, SessionKey)
	if err != nil {
		log.Printf("session restore skipped: %v", err)
		return
	}
	s := session.Decode(data)
	if !s.Active {
		return
	}

	m.mu.Lock()
	m.session = s
	m.reminderSent = false
	m.overdueNotified = false
	m.armTickLocked()
	m.mu.Unlock()

	if m.battery != nil {
		m.battery.Start()
	}
}

// AddPosition appends a breadcrumb fix to the active trip.
func (m *Manager) AddPosition(lat, lng float64) {
	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return
	}
	m.session.Positions.Add(positionlog.Fix{Lat: lat, Lng: lng, TimestampMs: m.clock().UnixMilli()})
	m.mu.Unlock()

	m.persist(context.Background())
}

// ETAInfo estimates speed and, with a destination, remaining distance and
// arrival time from the retained trail.
func (m *Manager) ETAInfo(dest *positionlog.Destination) positionlog.ETAInfo {
	m.mu.Lock()
	fixes := m.session.Positions.Fixes()
	m.mu.Unlock()
	return positionlog.Estimate(fixes, dest)
}

// ReportBattery feeds an escalation for a critically low battery; wired as
// the battery guard's escalate callback.
func (m *Manager) ReportBattery(level float64) {
	m.mu.Lock()
	active := m.session.Active
	s := m.session
	m.mu.Unlock()

	if !active || m.dispatcher == nil {
		return
	}
	m.dispatcher.Dispatch(alert.ComposeBattery(s, level), s)
}

// OnOverdue registers a hook fired once per overdue episode. Escalation to
// contacts stays caller-driven: crossing overdue never dispatches by
// itself.
func (m *Manager) OnOverdue(fn func(Snapshot)) {
	m.mu.Lock()
	m.overdueHooks = append(m.overdueHooks, fn)
	m.mu.Unlock()
}

// State returns a read-only snapshot.
func (m *Manager) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(m.clock())
}

// TimeUntilNextCheckIn returns signed seconds until the countdown expires;
// negative once overdue, zero while inactive.
func (m *Manager) TimeUntilNextCheckIn() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Active {
		return 0
	}
	return m.remainingLocked(m.clock())
}

func (m *Manager) IsOverdue() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Active && m.remainingLocked(m.clock()) <= 0
}

func (m *Manager) snapshotLocked(now time.Time) Snapshot {
	snap := Snapshot{
		State:   StateInactive,
		Session: m.session,
	}
	if !m.session.Active {
		return snap
	}
	snap.RemainingSeconds = m.remainingLocked(now)
	switch {
	case snap.RemainingSeconds > 0:
		snap.State = StateActiveWaiting
	case m.session.AlertSent:
		snap.State = StateOverdueAlerted
		snap.Overdue = true
	default:
		snap.State = StateOverdueUnacked
		snap.Overdue = true
	}
	return snap
}

func (m *Manager) remainingLocked(now time.Time) float64 {
	interval := time.Duration(m.session.CheckInIntervalMinutes) * time.Minute
	return interval.Seconds() - now.Sub(m.session.LastCheckInAt).Seconds()
}

// persist writes the session best-effort: a failed write is logged and
// skipped, in-memory state stays authoritative.
func (m *Manager) persist(ctx context.Context) {
	if m.store == nil {
		return
	}
	m.mu.Lock()
	data, err := session.Encode(m.session)
	m.mu.Unlock()
	if err != nil {
		return
	}
	if err := m.store.Set(ctx, SessionKey, data); err != nil {
		log.Printf("session persist skipped: %v", err)
	}
}

// samplePosition requests one best-effort fix; failures are swallowed.
func (m *Manager) samplePosition() {
	if m.positions == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), positionTimeout)
		defer cancel()
		fix, err := m.positions.CurrentPosition(ctx, true)
		if err != nil {
			return
		}
		m.recordSample(fix)
	}()
}

// recordSample appends a sampled fix unless the tail of the log already
// holds the same coordinates; a client-reported fix followed by a
// check-in would otherwise land twice and skew the speed estimate.
func (m *Manager) recordSample(fix positionlog.Fix) {
	m.mu.Lock()
	if !m.session.Active {
		m.mu.Unlock()
		return
	}
	if last, ok := m.session.Positions.Last(); ok && last.Lat == fix.Lat && last.Lng == fix.Lng {
		m.mu.Unlock()
		return
	}
	m.session.Positions.Add(positionlog.Fix{Lat: fix.Lat, Lng: fix.Lng, TimestampMs: m.clock().UnixMilli()})
	m.mu.Unlock()

	m.persist(context.Background())
}

func (m *Manager) dispatchDeparture() {
	m.mu.Lock()
	s := m.session
	m.mu.Unlock()

	if !s.Active || !s.NotifyOnDeparture || m.dispatcher == nil {
		return
	}
	m.dispatcher.Dispatch(alert.ComposeDeparture(s), s)
}

// armTickLocked replaces any previously armed ticker before starting a new
// one, so two schedulers never run at once.
func (m *Manager) armTickLocked() {
	if m.tickEvery <= 0 {
		return
	}
	m.cancelTickLocked()
	stop := make(chan struct{})
	m.stopTick = stop

	go func() {
		ticker := time.NewTicker(m.tickEvery)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				m.Tick(m.clock())
			}
		}
	}()
}

func (m *Manager) cancelTickLocked() {
	if m.stopTick != nil {
		close(m.stopTick)
		m.stopTick = nil
	}
}
