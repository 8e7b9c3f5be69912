package skywatcher

import (
	"bufio"
	"context"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/unklstewy/nexplane/pkg/mount"
)

// SerialAdapter drives a Sky-Watcher mount over USB serial (EQMOD-style),
// caching each axis's last-issued motion mode so the controller's steady
// rate-loop calls don't reissue a mode-set command unless direction or
// mode actually changes.
type SerialAdapter struct {
	port   serial.Port
	reader *bufio.Reader
	mu     sync.Mutex

	maxRateDeg float64
	frame      mount.FrameKind

	modeSet  [2]bool
	lastSign [2]int // -1, 0, or +1, the direction of the last issued motion mode
}

// OpenSerial opens portName at 9600 8N1, the standard EQMOD baud rate.
// frame is the mount's reported frame kind: this protocol carries no
// frame-identification command, so the caller (normally from mount_mode
// config) must supply it.
func OpenSerial(portName string, maxRateDeg float64, frame mount.FrameKind) (*SerialAdapter, error) {
	mode := &serial.Mode{
		BaudRate: 9600,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("skywatcher: open %s: %w", portName, err)
	}
	port.SetReadTimeout(500 * time.Millisecond)
	return &SerialAdapter{
		port:       port,
		reader:     bufio.NewReader(port),
		maxRateDeg: maxRateDeg,
		frame:      frame,
	}, nil
}

func (a *SerialAdapter) send(cmd string) (string, error) {
	if _, err := a.port.Write([]byte(cmd)); err != nil {
		return "", mount.ErrTransportLost
	}
	reply, err := a.reader.ReadString('\r')
	if err != nil {
		return "", mount.ErrTransportLost
	}
	return reply, nil
}

// ReadAttitude polls both axes' raw encoder positions and converts to
// degrees.
func (a *SerialAdapter) ReadAttitude(ctx context.Context) (mount.Attitude, error) {
	a1, err := a.readAxisDegrees(0)
	if err != nil {
		return mount.Attitude{}, err
	}
	a2, err := a.readAxisDegrees(1)
	if err != nil {
		return mount.Attitude{}, err
	}
	return mount.Attitude{Axis1: a1, Axis2: a2}, nil
}

func (a *SerialAdapter) readAxisDegrees(axisIdx int) (float64, error) {
	reply, err := a.send(buildCommand(cmdGetPosition, axisIdx, ""))
	if err != nil {
		return 0, err
	}
	payload, ok, err := parseHexReply(reply)
	if err != nil {
		return 0, &mount.DeviceError{Message: err.Error()}
	}
	if !ok {
		return 0, &mount.DeviceError{Message: "get-position rejected"}
	}
	counts, err := decodeCounts(payload)
	if err != nil {
		return 0, &mount.DeviceError{Message: err.Error()}
	}
	return countsToDegrees(counts), nil
}

// SlewRate issues a step-period command, reissuing the motion-mode command
// only when the commanded direction or mode has changed since the last
// call.
func (a *SerialAdapter) SlewRate(ctx context.Context, axis mount.Axis, degPerSec float64) error {
	axisIdx := int(axis)
	sign := 0
	if degPerSec > 0 {
		sign = 1
	} else if degPerSec < 0 {
		sign = -1
	}

	a.mu.Lock()
	needModeSet := !a.modeSet[axisIdx] || a.lastSign[axisIdx] != sign
	a.mu.Unlock()

	if needModeSet {
		modeByte := "0" // the mode byte carries direction: "0" forward, "1" reverse
		if sign < 0 {
			modeByte = "1"
		}
		if _, err := a.send(buildCommand(cmdSetMotionMode, axisIdx, modeByte)); err != nil {
			return err
		}
		a.mu.Lock()
		a.modeSet[axisIdx] = true
		a.lastSign[axisIdx] = sign
		a.mu.Unlock()
	}

	if sign == 0 {
		_, err := a.send(buildCommand(cmdStopMotion, axisIdx, ""))
		return err
	}

	period := ratePeriodCounts(degPerSec, a.maxRateDeg)
	if _, err := a.send(buildCommand(cmdSetStepPeriod, axisIdx, fmt.Sprintf("%06X", period))); err != nil {
		return err
	}
	_, err := a.send(buildCommand(cmdStartMotion, axisIdx, ""))
	return err
}

// SlewTo commands an absolute goto via the set-position-then-start
// sequence.
func (a *SerialAdapter) SlewTo(ctx context.Context, axis mount.Axis, thetaDeg float64) error {
	axisIdx := int(axis)
	counts := degreesToCounts(thetaDeg)
	if _, err := a.send(buildCommand(cmdSetPosition, axisIdx, encodeCounts(counts))); err != nil {
		return err
	}
	_, err := a.send(buildCommand(cmdStartMotion, axisIdx, ""))
	return err
}

// SetTrackingMode is unsupported: this adapter exposes only raw rate and
// goto primitives, leaving tracking-rate selection to the controller.
func (a *SerialAdapter) SetTrackingMode(ctx context.Context, mode mount.TrackingMode) error {
	return mount.ErrUnsupported
}

// Cancel stops both axes.
func (a *SerialAdapter) Cancel(ctx context.Context) error {
	if _, err := a.send(buildCommand(cmdStopMotion, 0, "")); err != nil {
		return err
	}
	_, err := a.send(buildCommand(cmdStopMotion, 1, ""))
	a.mu.Lock()
	a.modeSet[0], a.modeSet[1] = false, false
	a.mu.Unlock()
	return err
}

// FrameKind reports the frame given to OpenSerial: this protocol carries
// no frame-identification command, so the caller must supply it.
func (a *SerialAdapter) FrameKind() mount.FrameKind { return a.frame }

// MaxRateDegPerSec reports the configured maximum rate.
func (a *SerialAdapter) MaxRateDegPerSec() float64 { return a.maxRateDeg }

// Close releases the serial port. Note SerialAdapter intentionally does
// not implement mount.SelfAligning: it reports raw encoder counts only,
// so landmark alignment is mandatory.
func (a *SerialAdapter) Close() error { return a.port.Close() }
