// Package target implements the position estimator:
// it fuses delayed, irregular position reports from heterogeneous sources
// (SBS-1 aircraft records, SGP4-propagated satellite ephemerides) into a
// current-time astrometric prediction. It performs no filtering — the most
// recent report is authoritative, and the estimate is a straight-line
// extrapolation in the topocentric East-North-Up frame.
package target

import (
	"math"
	"time"

	"github.com/unklstewy/nexplane/pkg/coordinates"
)

// DefaultSilenceTimeout is the default interval after which a
// target with no update is marked stale.
const DefaultSilenceTimeout = 60 * time.Second

// Report is a single position observation for a target, as produced by an
// SBS-1 ingest task or the satellite ephemeris source).
type Report struct {
	ID string
	Position coordinates.Geographic
	Velocity ENUVelocity // east/north/up, meters/second
	Timestamp time.Time
	IsSpace bool
}

// ENUVelocity is a velocity vector in the topocentric East-North-Up frame.
type ENUVelocity struct {
	East, North, Up float64
}

// Target is the stored state for one tracked entity: last-known position and velocity in a linearizable frame, and
// the timestamp of that report.
type Target struct {
	ID string
	IsSpace bool
	p0 coordinates.ENU
	v0 ENUVelocity
	t0 time.Time
	lastSeen time.Time
}

// IsStale reports whether the target has not been updated within timeout,
// as of 'now'. A stale target is rendered grey but remains eligible for
// tracking until evicted.
func (tg *Target) IsStale(now time.Time, timeout time.Duration) bool {
	return now.Sub(tg.lastSeen) > timeout
}

// Predict returns the point estimate (az, el) of the target's direction
// from the observer at time t, by propagating the stored ENU position
// forward at constant velocity.
func (tg *Target) Predict(t time.Time) coordinates.HorizontalCoordinates {
	dt := t.Sub(tg.t0).Seconds()
	disp := coordinates.ENU{East: tg.v0.East, North: tg.v0.North, Up: tg.v0.Up}.Scale(dt)
	pos := tg.p0.Add(disp)
	return pos.ToHorizontal()
}

// LastUpdate returns the timestamp of the most recently accepted report.
func (tg *Target) LastUpdate() time.Time { return tg.t0 }

// Map is the fusion task's owned store of targets. It is not safe for concurrent access
// from multiple goroutines — the fusion task is its sole owner, and all
// access from elsewhere goes through request/response channels.
type Map struct {
	targets map[string]*Target
	timeout time.Duration
}

// NewMap creates an empty target map with the given silence timeout.
func NewMap(silenceTimeout time.Duration) *Map {
	if silenceTimeout <= 0 {
 silenceTimeout = DefaultSilenceTimeout
	}
	return &Map{targets: make(map[string]*Target), timeout: silenceTimeout}
}

// Apply ingests a report for observer's location, enforcing the
// invariant that a target is never updated backward in time: out-of-order
// reports and reports with non-finite coordinates are dropped. Returns
// true if the report was accepted.
func (m *Map) Apply(r Report, observer coordinates.Observer) bool {
	if !finite(r.Position.Latitude) || !finite(r.Position.Longitude) || !finite(r.Position.Altitude) ||
 !finite(r.Velocity.East) || !finite(r.Velocity.North) || !finite(r.Velocity.Up) {
 return false
	}

	existing, ok := m.targets[r.ID]
	if ok && !r.Timestamp.After(existing.t0) {
 return false // out-of-order: drop
	}

	enu := coordinates.GeographicToENU(r.Position, observer)
	t := &Target{
 ID: r.ID,
 IsSpace: r.IsSpace,
 p0: enu,
 v0: r.Velocity,
 t0: r.Timestamp,
 lastSeen: r.Timestamp,
	}
	m.targets[r.ID] = t
	return true
}

// Get returns the target by ID, or nil if absent or evicted.
func (m *Map) Get(id string) *Target {
	return m.targets[id]
}

// EvictStale removes targets whose last update is older than the silence
// timeout as of now. Eviction is silent.
func (m *Map) EvictStale(now time.Time) {
	for id, t := range m.targets {
 if now.Sub(t.lastSeen) > m.timeout {
 delete(m.targets, id)
 }
	}
}

// All returns a snapshot slice of currently stored targets, for display
// consumption.
func (m *Map) All() []*Target {
	out := make([]*Target, 0, len(m.targets))
	for _, t := range m.targets {
 out = append(out, t)
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
