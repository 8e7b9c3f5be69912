// Package hootl implements the hardware-out-of-the-loop mount simulator:
// an in-memory mount conforming to the pkg/mount.Mount
// interface that integrates the last rate command forward in time,
// quantized to match a real device's precision. It backs end-to-end tests
// without hardware and the bridge's hootl mode. No UDP (Sky-Watcher Wi-Fi)
// simulator is built on it; the Sky-Watcher UDP code here is a client only.
package hootl

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/unklstewy/nexplane/pkg/mount"
)

// QuantizationDeg is the angular step size synthetic readings are rounded
// to, approximating a real encoder's finite resolution.
const QuantizationDeg = 1.0 / 3600.0 // 1 arcsecond, typical of modest encoders

// Config configures a simulated mount.
type Config struct {
	Frame mount.FrameKind
	MaxRateDeg float64 // degrees/second
	TickPeriod time.Duration
	StartAxis1 float64
	StartAxis2 float64
}

// DefaultConfig returns a HOOTL configuration suitable for an alt-az mount
// driven at 20Hz with a generous 10 deg/s max rate.
func DefaultConfig() Config {
	return Config{
		Frame: mount.FrameAltAz,
		MaxRateDeg: 10.0,
		TickPeriod: 50 * time.Millisecond,
	}
}

// Simulator is an in-memory mount that integrates rate commands forward in
// time on its own goroutine: a mutex-guarded attitude plus a background
// ticker that advances position by rate*dt each tick.
type Simulator struct {
	mu sync.Mutex

	cfg Config

	axis1, axis2 float64
	rate1, rate2 float64
	trackingMode mount.TrackingMode

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates and starts a Simulator. Callers must Close it when done.
func New(cfg Config) *Simulator {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = 50 * time.Millisecond
	}
	s := &Simulator{
		cfg: cfg,
		axis1: cfg.StartAxis1,
		axis2: cfg.StartAxis2,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Simulator) run() {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.cfg.TickPeriod)
	defer ticker.Stop()
	dt := s.cfg.TickPeriod.Seconds()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.axis1 = quantize(wrapAxis1(s.axis1+s.rate1*dt, s.cfg.Frame))
			s.axis2 = quantize(clampAxis2(s.axis2+s.rate2*dt, s.cfg.Frame))
			s.mu.Unlock()
		}
	}
}

// ReadAttitude returns the current simulated attitude.
func (s *Simulator) ReadAttitude(ctx context.Context) (mount.Attitude, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return mount.Attitude{Axis1: s.axis1, Axis2: s.axis2}, nil
}

// SlewRate sets the continuous rate on the given axis, clamped to the
// configured maximum magnitude.
func (s *Simulator) SlewRate(ctx context.Context, axis mount.Axis, degPerSec float64) error {
	clamped := clampRate(degPerSec, s.cfg.MaxRateDeg)
	s.mu.Lock()
	defer s.mu.Unlock()
	if axis == mount.Axis1 {
		s.rate1 = clamped
	} else {
		s.rate2 = clamped
	}
	return nil
}

// SlewTo drives the simulator toward theta by commanding a rate at maximum
// magnitude in the appropriate direction; a real absolute slew would ramp
// down on approach, but for HOOTL purposes a constant-rate approach with
// the controller's PID taking over near the target is sufficient.
func (s *Simulator) SlewTo(ctx context.Context, axis mount.Axis, thetaDeg float64) error {
	s.mu.Lock()
	current := s.axis1
	if axis == mount.Axis2 {
		current = s.axis2
	}
	s.mu.Unlock()

	delta := thetaDeg - current
	if axis == mount.Axis1 {
		delta = wrapDelta(delta)
	}
	dir := 1.0
	if delta < 0 {
		dir = -1.0
	}
	return s.SlewRate(ctx, axis, dir*s.cfg.MaxRateDeg)
}

// SetTrackingMode records the tracking mode; the simulator does not alter
// its own rate for sidereal/lunar/solar tracking beyond what the
// controller explicitly commands, since the controller (not the mount) is
// authoritative for target-following rates in this system.
func (s *Simulator) SetTrackingMode(ctx context.Context, mode mount.TrackingMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trackingMode = mode
	return nil
}

// Cancel halts all motion immediately.
func (s *Simulator) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate1, s.rate2 = 0, 0
	return nil
}

// FrameKind reports the configured frame.
func (s *Simulator) FrameKind() mount.FrameKind { return s.cfg.Frame }

// MaxRateDegPerSec reports the configured maximum rate.
func (s *Simulator) MaxRateDegPerSec() float64 { return s.cfg.MaxRateDeg }

// IsAligned reports true: the simulator's attitude is defined to be
// world-frame-aligned, so no landmark alignment is required against it
// (useful for HOOTL tests that want to skip the alignment step).
func (s *Simulator) IsAligned() bool { return true }

// Close stops the simulator's background goroutine and waits for it to
// exit.
func (s *Simulator) Close() error {
	close(s.stopCh)
	<-s.doneCh
	return nil
}

func clampRate(rate, maxMag float64) float64 {
	if rate > maxMag {
		return maxMag
	}
	if rate < -maxMag {
		return -maxMag
	}
	return rate
}

func quantize(deg float64) float64 {
	return math.Round(deg/QuantizationDeg) * QuantizationDeg
}

func wrapAxis1(deg float64, frame mount.FrameKind) float64 {
	if frame == mount.FrameEquatorial {
		// Axis1 is right ascension, wrapped to [0, 360).
		deg = math.Mod(deg, 360.0)
		if deg < 0 {
			deg += 360.0
		}
		return deg
	}
	deg = math.Mod(deg, 360.0)
	if deg < 0 {
		deg += 360.0
	}
	return deg
}

func clampAxis2(deg float64, frame mount.FrameKind) float64 {
	if deg > 90 {
		return 90
	}
	if deg < -90 {
		return -90
	}
	return deg
}

func wrapDelta(delta float64) float64 {
	delta = math.Mod(delta, 360.0)
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return delta
}
