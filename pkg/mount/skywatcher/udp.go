package skywatcher

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unklstewy/nexplane/pkg/mount"
)

// DefaultUDPPort is the SynScan Wi-Fi adapter's fixed listening port.
const DefaultUDPPort = 11880

// retransmitTimeout is how long the Wi-Fi transport waits for a reply
// before retransmitting once. A second timeout without reply reports ErrTransportLost.
const retransmitTimeout = 200 * time.Millisecond

// UDPAdapter speaks the same Sky-Watcher command set as SerialAdapter but
// frames each command with a one-byte sequence tag and carries it over
// UDP to a SynScan Wi-Fi adapter, retransmitting once on timeout.
type UDPAdapter struct {
	conn *net.UDPConn

	maxRateDeg float64
	frame      mount.FrameKind
	seq        uint32

	mu       sync.Mutex
	modeSet  [2]bool
	lastSign [2]int
}

// DialUDP connects to a SynScan Wi-Fi adapter at addr (host:port, or just
// host to use DefaultUDPPort). frame is the mount's reported frame kind:
// this protocol carries no frame-identification command, so the caller
// (normally from mount_mode config) must supply it.
func DialUDP(addr string, maxRateDeg float64, frame mount.FrameKind) (*UDPAdapter, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		host, port = addr, fmt.Sprintf("%d", DefaultUDPPort)
	}
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, fmt.Errorf("skywatcher: resolve %s: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("skywatcher: dial %s: %w", addr, err)
	}
	return &UDPAdapter{conn: conn, maxRateDeg: maxRateDeg, frame: frame}, nil
}

// nextSeq returns the next sequence tag, wrapping within a printable ASCII
// range so it can be embedded directly in the command frame.
func (a *UDPAdapter) nextSeq() byte {
	n := atomic.AddUint32(&a.seq, 1)
	return byte('A' + (n % 26))
}

// sendRequest frames cmd with a sequence tag, transmits it, and waits for
// a matching reply, retransmitting exactly once on timeout.
func (a *UDPAdapter) sendRequest(ctx context.Context, cmd string) (string, error) {
	tag := a.nextSeq()
	framed := fmt.Sprintf("%c%s", tag, cmd)

	reply, err := a.roundTrip(framed, tag)
	if err == nil {
		return reply, nil
	}

	reply, err = a.roundTrip(framed, tag)
	if err != nil {
		return "", mount.ErrTransportLost
	}
	return reply, nil
}

func (a *UDPAdapter) roundTrip(framed string, tag byte) (string, error) {
	if _, err := a.conn.Write([]byte(framed)); err != nil {
		return "", err
	}
	a.conn.SetReadDeadline(time.Now().Add(retransmitTimeout))
	buf := make([]byte, 256)
	n, err := a.conn.Read(buf)
	if err != nil {
		return "", err
	}
	resp := string(buf[:n])
	if len(resp) < 1 || resp[0] != tag {
		return "", fmt.Errorf("skywatcher: sequence tag mismatch")
	}
	return resp[1:], nil
}

func (a *UDPAdapter) ReadAttitude(ctx context.Context) (mount.Attitude, error) {
	a1, err := a.readAxisDegrees(ctx, 0)
	if err != nil {
		return mount.Attitude{}, err
	}
	a2, err := a.readAxisDegrees(ctx, 1)
	if err != nil {
		return mount.Attitude{}, err
	}
	return mount.Attitude{Axis1: a1, Axis2: a2}, nil
}

func (a *UDPAdapter) readAxisDegrees(ctx context.Context, axisIdx int) (float64, error) {
	reply, err := a.sendRequest(ctx, buildCommand(cmdGetPosition, axisIdx, ""))
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

func (a *UDPAdapter) SlewRate(ctx context.Context, axis mount.Axis, degPerSec float64) error {
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
		modeByte := "0"
		if sign < 0 {
			modeByte = "1"
		}
		if _, err := a.sendRequest(ctx, buildCommand(cmdSetMotionMode, axisIdx, modeByte)); err != nil {
			return err
		}
		a.mu.Lock()
		a.modeSet[axisIdx] = true
		a.lastSign[axisIdx] = sign
		a.mu.Unlock()
	}

	if sign == 0 {
		_, err := a.sendRequest(ctx, buildCommand(cmdStopMotion, axisIdx, ""))
		return err
	}

	period := ratePeriodCounts(degPerSec, a.maxRateDeg)
	if _, err := a.sendRequest(ctx, buildCommand(cmdSetStepPeriod, axisIdx, fmt.Sprintf("%06X", period))); err != nil {
		return err
	}
	_, err := a.sendRequest(ctx, buildCommand(cmdStartMotion, axisIdx, ""))
	return err
}

func (a *UDPAdapter) SlewTo(ctx context.Context, axis mount.Axis, thetaDeg float64) error {
	axisIdx := int(axis)
	counts := degreesToCounts(thetaDeg)
	if _, err := a.sendRequest(ctx, buildCommand(cmdSetPosition, axisIdx, encodeCounts(counts))); err != nil {
		return err
	}
	_, err := a.sendRequest(ctx, buildCommand(cmdStartMotion, axisIdx, ""))
	return err
}

func (a *UDPAdapter) SetTrackingMode(ctx context.Context, mode mount.TrackingMode) error {
	return mount.ErrUnsupported
}

func (a *UDPAdapter) Cancel(ctx context.Context) error {
	if _, err := a.sendRequest(ctx, buildCommand(cmdStopMotion, 0, "")); err != nil {
		return err
	}
	_, err := a.sendRequest(ctx, buildCommand(cmdStopMotion, 1, ""))
	a.mu.Lock()
	a.modeSet[0], a.modeSet[1] = false, false
	a.mu.Unlock()
	return err
}

// FrameKind reports the frame given to DialUDP, matching the serial variant.
func (a *UDPAdapter) FrameKind() mount.FrameKind { return a.frame }

func (a *UDPAdapter) MaxRateDegPerSec() float64 { return a.maxRateDeg }

// Close releases the UDP socket. Like SerialAdapter, UDPAdapter does not
// implement mount.SelfAligning.
func (a *UDPAdapter) Close() error { return a.conn.Close() }
