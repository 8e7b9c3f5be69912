package controller

import (
	"context"
	"time"

	"github.com/unklstewy/nexplane/pkg/align"
	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/mount"
	"github.com/unklstewy/nexplane/pkg/target"
	"github.com/unklstewy/nexplane/pkg/tracking"
)

// State is the controller's current tracking state.
type State int

const (
	StateIdle State = iota
	StateSlewing
	StateTracking
	StateSunLockout
)

func (s State) String() string {
	switch s {
	case StateSlewing:
 return "slewing"
	case StateTracking:
 return "tracking"
	case StateSunLockout:
 return "sun_lockout"
	default:
 return "idle"
	}
}

// Config parameterizes the controller.
type Config struct {
	Gains Gains

	// IntegratorLimit bounds each axis's accumulated error (anti-windup).
	IntegratorLimit float64

	// SlewToTrackThresholdDeg is the per-axis error below which the
	// controller transitions from Slewing to Tracking.
	SlewToTrackThresholdDeg float64

	// SunLockoutRadiusDeg is the minimum angular separation from the Sun a
	// predicted target position must maintain; closer and the controller
	// enters SunLockout and emits no slew commands.
	SunLockoutRadiusDeg float64

	// AttitudeStaleAfter is how long without a fresh attitude reading
	// before the controller drops to Idle.
	AttitudeStaleAfter time.Duration

	TrackingLimits tracking.TrackingLimits
}

// DefaultConfig returns conservative defaults suitable for most
// telescope/target combinations.
func DefaultConfig() Config {
	return Config{
 Gains: Gains{Kp: 0.8, Ki: 0.05, Kd: 0.1},
 IntegratorLimit: 10.0,
 SlewToTrackThresholdDeg: 0.5,
 SunLockoutRadiusDeg: 10.0,
 AttitudeStaleAfter: time.Second,
 TrackingLimits: tracking.DefaultTrackingLimits(),
	}
}

// Controller is the closed-loop pointing controller. One Controller
// drives one mount; it is not safe for concurrent Tick calls, matching
// the single controller task that owns it.
type Controller struct {
	cfg Config
	m mount.Mount
	observer coordinates.Observer

	axis1 *pid
	axis2 *pid

	state State
	currentTarget string
	lastAttitudeAt time.Time

	biasRA, biasDec float64 // latched equatorial manual offset

	alignment align.Offset // zero value is identity: no alignment performed
}

// New builds a Controller for mount m observing from observer.
func New(cfg Config, m mount.Mount, observer coordinates.Observer) *Controller {
	return &Controller{
 cfg: cfg,
 m: m,
 observer: observer,
 axis1: newPID(cfg.Gains, cfg.IntegratorLimit),
 axis2: newPID(cfg.Gains, cfg.IntegratorLimit),
 state: StateIdle,
	}
}

// State reports the controller's current state.
func (c *Controller) State() State { return c.state }

// SetGains updates both axes' PID gains, resetting integrator/derivative
// memory on each.
func (c *Controller) SetGains(g Gains) {
	c.cfg.Gains = g
	c.axis1.setGains(g)
	c.axis2.setGains(g)
}

// SetManualBias latches a one-shot az/el pointing offset, rotated into
// the equatorial frame at the moment of the call. The bias is added to the
// target only when the mount's frame is equatorial (see targetAxes); on an
// alt-az mount it has no effect.
func (c *Controller) SetManualBias(biasAzDeg, biasElDeg, hourAngleHours, decDeg float64) {
	ra, dec := coordinates.RotateAzElBiasToRaDec(biasAzDeg, biasElDeg, hourAngleHours, decDeg, c.observer.Location.Latitude)
	c.biasRA, c.biasDec = ra, dec
}

// ClearManualBias removes any latched offset.
func (c *Controller) ClearManualBias() { c.biasRA, c.biasDec = 0, 0 }

// SetAlignment stores the landmark alignment offset, applied to every
// subsequent mount attitude read and inverse-applied to every absolute
// slew target.
func (c *Controller) SetAlignment(off align.Offset) { c.alignment = off }

// Tick advances the controller by one control cycle. attitude/attitudeErr is the mount I/O task's most
// recent poll result; trg is the fusion task's current best estimate for
// the tracked target, or nil if none is selected.
func (c *Controller) Tick(ctx context.Context, now time.Time, trg *target.Target, attitude mount.Attitude, attitudeErr error) error {
	if attitudeErr != nil {
 if now.Sub(c.lastAttitudeAt) > c.cfg.AttitudeStaleAfter {
 c.toIdle(ctx)
 }
 return attitudeErr
	}
	c.lastAttitudeAt = now
	corrected := c.alignment.Apply(attitude)

	if trg == nil || trg.IsStale(now, target.DefaultSilenceTimeout) {
 c.toIdle(ctx)
 return nil
	}

	if trg.ID != c.currentTarget {
 c.currentTarget = trg.ID
 c.axis1.reset()
 c.axis2.reset()
 c.state = StateSlewing
	}

	predicted := trg.Predict(now)
	boresight := c.attitudeToHorizontal(corrected, now)

	sun := coordinates.CalculateSunPosition(c.observer, now)
	if sun.IsSunAboveHorizon() &&
 (sun.AngularSeparation(predicted.Altitude, predicted.Azimuth) < c.cfg.SunLockoutRadiusDeg ||
 sun.AngularSeparation(boresight.Altitude, boresight.Azimuth) < c.cfg.SunLockoutRadiusDeg) {
 c.state = StateSunLockout
 return c.m.Cancel(ctx)
	}

	if tracking.ShouldAbortTracking(predicted, c.cfg.TrackingLimits) {
 c.toIdle(ctx)
 return nil
	}

	target1, target2 := c.targetAxes(predicted, now)

	err1 := coordinates.AzimuthError(target1, corrected.Axis1)
	err2 := clampSigned(target2-corrected.Axis2, -180, 180)

	rate1 := c.axis1.step(err1, now)
	rate2 := c.axis2.step(err2, now)

	maxRate := c.m.MaxRateDegPerSec()
	rate1 = clampSigned(rate1, -maxRate, maxRate)
	rate2 = clampSigned(rate2, -maxRate, maxRate)

	if absDeg(err1) < c.cfg.SlewToTrackThresholdDeg && absDeg(err2) < c.cfg.SlewToTrackThresholdDeg {
 c.state = StateTracking
	} else {
 c.state = StateSlewing
	}

	if err := c.m.SlewRate(ctx, mount.Axis1, rate1); err != nil {
 return err
	}
	return c.m.SlewRate(ctx, mount.Axis2, rate2)
}

// targetAxes converts the predicted horizontal position into the mount's
// native frame, applying any latched manual bias in equatorial mode.
func (c *Controller) targetAxes(predicted coordinates.HorizontalCoordinates, now time.Time) (axis1, axis2 float64) {
	if c.m.FrameKind() == mount.FrameAltAz {
 return predicted.Azimuth, predicted.Altitude
	}
	eq := coordinates.HorizontalToEquatorial(predicted, c.observer, now)
	return eq.RightAscension*15.0 + c.biasRA, eq.Declination + c.biasDec
}

// attitudeToHorizontal converts an alignment-corrected mount attitude into
// world-frame az/el, the same frame the Sun-lockout check and predicted
// target positions are expressed in.
func (c *Controller) attitudeToHorizontal(att mount.Attitude, now time.Time) coordinates.HorizontalCoordinates {
	if c.m.FrameKind() == mount.FrameAltAz {
 return coordinates.HorizontalCoordinates{Azimuth: att.Axis1, Altitude: att.Axis2}
	}
	eq := coordinates.EquatorialCoordinates{RightAscension: att.Axis1 / 15.0, Declination: att.Axis2}
	return coordinates.EquatorialToHorizontal(eq, c.observer, now)
}

func (c *Controller) toIdle(ctx context.Context) {
	if c.state != StateIdle {
 c.m.Cancel(ctx)
	}
	c.state = StateIdle
	c.currentTarget = ""
	c.axis1.reset()
	c.axis2.reset()
}

func clampSigned(v, lo, hi float64) float64 {
	if v < lo {
 return lo
	}
	if v > hi {
 return hi
	}
	return v
}

func absDeg(v float64) float64 {
	if v < 0 {
 return -v
	}
	return v
}
