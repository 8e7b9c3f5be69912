// Package nexstar implements the NexStar hand-control serial protocol:
// ASCII commands framed by single-byte opcodes, 9600
// 8N1. Attitude reads return hex-encoded 32-bit fixed-point fractions of a
// revolution; variable rates use the two-byte PMC-8-style rate encoding.
// This adapter self-reports an aligned world-frame attitude.
package nexstar

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"time"

	"go.bug.st/serial"

	"github.com/unklstewy/nexplane/pkg/mount"
)

// MaxRateArcsecPerSec is the adapter's rate bound, reported as its
// MaxRateDegPerSec. In the PMC-8-style encoding's 16-bit field of quarter
// arcseconds/sec it is 43200, below the field's 65535 ceiling.
const MaxRateArcsecPerSec = 3.0 * 3600.0 // 3 deg/s, a generous NexStar hand-control limit

// Opcodes from representative NexStar command set.
const (
	opGetRADec = 'E'
	opGetRADecPrec = 'e'
	opGetAzAlt = 'Z'
	opGetAzAltPrec = 'z'
	opPassThrough = 'P'
)

// Pass-through sub-codes for variable-rate slew commands, by axis and
// direction.
const (
	subAzPositive = 6
	subAzNegative = 7
	subAltPositive = 16
	subAltNegative = 17
)

// Adapter drives a NexStar mount over a serial port.
type Adapter struct {
	port serial.Port
	reader *bufio.Reader
}

// Open opens portName at 9600 8N1 and returns a ready NexStar adapter.
func Open(portName string) (*Adapter, error) {
	mode := &serial.Mode{
 BaudRate: 9600,
 DataBits: 8,
 Parity: serial.NoParity,
 StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
 return nil, fmt.Errorf("nexstar: open %s: %w", portName, err)
	}
	port.SetReadTimeout(500 * time.Millisecond)
	return &Adapter{port: port, reader: bufio.NewReader(port)}, nil
}

// ReadAttitude issues the precise get-az/alt command and decodes the two
// hex-encoded 32-bit fixed-point fractions of a revolution into degrees.
func (a *Adapter) ReadAttitude(ctx context.Context) (mount.Attitude, error) {
	reply, err := a.command(string(opGetAzAltPrec))
	if err != nil {
 return mount.Attitude{}, err
	}
	axis1hex, axis2hex, err := splitReply(reply)
	if err != nil {
 return mount.Attitude{}, &mount.DeviceError{Message: err.Error()}
	}
	a1, err := hexFractionToDegrees(axis1hex)
	if err != nil {
 return mount.Attitude{}, &mount.DeviceError{Message: err.Error()}
	}
	a2, err := hexFractionToDegrees(axis2hex)
	if err != nil {
 return mount.Attitude{}, &mount.DeviceError{Message: err.Error()}
	}
	return mount.Attitude{Axis1: a1, Axis2: a2}, nil
}

// SlewRate sends a variable-rate pass-through command using the PMC-8
// style two-byte rate encoding (sign byte plus magnitude in
// arcseconds/sec), translating degPerSec to the nearest representable
// rate.
func (a *Adapter) SlewRate(ctx context.Context, axis mount.Axis, degPerSec float64) error {
	arcsecPerSec := degPerSec * 3600.0
	if arcsecPerSec > MaxRateArcsecPerSec {
 arcsecPerSec = MaxRateArcsecPerSec
	} else if arcsecPerSec < -MaxRateArcsecPerSec {
 arcsecPerSec = -MaxRateArcsecPerSec
	}

	var sub byte
	if axis == mount.Axis1 {
 if arcsecPerSec >= 0 {
 sub = subAzPositive
 } else {
 sub = subAzNegative
 }
	} else {
 if arcsecPerSec >= 0 {
 sub = subAltPositive
 } else {
 sub = subAltNegative
 }
	}

	magnitude := uint16(absFloat(arcsecPerSec) * 4) // PMC-8 rate unit is 1/4 arcsec/sec
	cmd := fmt.Sprintf("%c%c%c%c%c%c%c%c", opPassThrough, byte(4), byte(axisID(axis)), sub,
 byte(magnitude>>8), byte(magnitude&0xff), byte(0), byte(0))
	_, err := a.command(cmd)
	return err
}

// SlewTo is unsupported by the variable-rate command path here; the
// controller's Slewing state drives absolute approach via repeated
// SlewRate calls rather than relying on a NexStar goto, which would
// conflict with rate-loop tracking once engaged.
func (a *Adapter) SlewTo(ctx context.Context, axis mount.Axis, thetaDeg float64) error {
	return mount.ErrUnsupported
}

// SetTrackingMode is a no-op: the controller is authoritative for rates in
// this system, so NexStar's own tracking modes are left disengaged and
// rate commands alone drive the mount.
func (a *Adapter) SetTrackingMode(ctx context.Context, mode mount.TrackingMode) error {
	return nil
}

// Cancel sends a zero-rate command on both axes.
func (a *Adapter) Cancel(ctx context.Context) error {
	if err := a.SlewRate(ctx, mount.Axis1, 0); err != nil {
 return err
	}
	return a.SlewRate(ctx, mount.Axis2, 0)
}

// FrameKind reports alt-az: the NexStar adapter self-aligns in the
// ground-based az/el frame.
func (a *Adapter) FrameKind() mount.FrameKind { return mount.FrameAltAz }

// MaxRateDegPerSec reports MaxRateArcsecPerSec in degrees/second.
func (a *Adapter) MaxRateDegPerSec() float64 { return MaxRateArcsecPerSec / 3600.0 }

// IsAligned reports true: NexStar self-reports an aligned coordinate
// frame, so landmark alignment is optional for it.
func (a *Adapter) IsAligned() bool { return true }

// Close releases the serial port.
func (a *Adapter) Close() error { return a.port.Close() }

func (a *Adapter) command(cmd string) (string, error) {
	if _, err := a.port.Write([]byte(cmd)); err != nil {
 return "", mount.ErrTransportLost
	}
	reply, err := a.reader.ReadString('#')
	if err != nil {
 return "", mount.ErrTransportLost
	}
	return reply[:len(reply)-1], nil
}

func splitReply(reply string) (axis1hex, axis2hex string, err error) {
	if len(reply) < 17 || reply[8] != ',' {
 return "", "", fmt.Errorf("malformed NexStar reply %q", reply)
	}
	return reply[0:8], reply[9:17], nil
}

func hexFractionToDegrees(hex string) (float64, error) {
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
 return 0, fmt.Errorf("bad hex fraction %q: %w", hex, err)
	}
	return (float64(v) / 4294967296.0) * 360.0, nil
}

func axisID(axis mount.Axis) int {
	if axis == mount.Axis1 {
 return 0
	}
	return 1
}

func absFloat(f float64) float64 {
	if f < 0 {
 return -f
	}
	return f
}
