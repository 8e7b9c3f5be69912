// Package skywatcher implements the Sky-Watcher binary motor-controller
// protocol used by EQMOD-compatible mounts, in two
// transports: a USB serial variant speaking the protocol directly, and a
// Wi-Fi variant that wraps the same commands in an ASCII frame and carries
// them over UDP to port 11880 (SynScan Wi-Fi adapters). Both report raw
// encoder counts only; neither implements mount.SelfAligning, so landmark
// alignment is mandatory before tracking.
package skywatcher

import (
	"fmt"
	"strconv"
)

// Motor addresses the protocol uses to select an axis, per the EQMOD
// command reference.
const (
	motorAz = '1'
	motorAlt = '2'
)

// Command codes from the Sky-Watcher motor-controller command set.
const (
	cmdSetMotionMode = 'G'
	cmdSetStepPeriod = 'I'
	cmdStartMotion = 'J'
	cmdStopMotion = 'K'
	cmdGetPosition = 'j'
	cmdSetPosition = 'E'
	cmdInquireStatus = 'f'
)

// countsPerRevolution is the encoder resolution assumed for step-period
// rate encoding, a representative value for Sky-Watcher EQ-class mounts.
const countsPerRevolution = 9024000.0

// motorAddress returns the protocol's single-character motor address for
// an axis.
func motorAddress(axisIdx int) byte {
	if axisIdx == 0 {
 return motorAz
	}
	return motorAlt
}

// buildCommand frames a command per the Sky-Watcher ASCII-over-binary
// convention: ':' + command + address + data, terminated by CR. The same
// framing is reused verbatim by the UDP transport's payload.
func buildCommand(cmd byte, axisIdx int, data string) string {
	return fmt.Sprintf(":%c%c%s\r", cmd, motorAddress(axisIdx), data)
}

// parseHexReply strips the leading '=' or '!' and trailing CR from a
// reply, returning the hex payload and whether the command succeeded.
func parseHexReply(reply string) (payload string, ok bool, err error) {
	if len(reply) < 1 {
 return "", false, fmt.Errorf("skywatcher: empty reply")
	}
	status := reply[0]
	body := reply[1:]
	for len(body) > 0 && (body[len(body)-1] == '\r' || body[len(body)-1] == '\n') {
 body = body[:len(body)-1]
	}
	switch status {
	case '=':
 return body, true, nil
	case '!':
 return body, false, nil
	default:
 return "", false, fmt.Errorf("skywatcher: malformed reply %q", reply)
	}
}

// encodeCounts formats a 24-bit unsigned count in the protocol's reversed
// little-endian hex byte order ("XXYYZZ" for byte order ZZ,YY,XX).
func encodeCounts(counts uint32) string {
	b0 := counts & 0xff
	b1 := (counts >> 8) & 0xff
	b2 := (counts >> 16) & 0xff
	return fmt.Sprintf("%02X%02X%02X", b0, b1, b2)
}

// decodeCounts parses the reversed little-endian hex byte order back into
// an unsigned count.
func decodeCounts(hex string) (uint32, error) {
	if len(hex) != 6 {
 return 0, fmt.Errorf("skywatcher: bad count field %q", hex)
	}
	b0, err := strconv.ParseUint(hex[0:2], 16, 8)
	if err != nil {
 return 0, err
	}
	b1, err := strconv.ParseUint(hex[2:4], 16, 8)
	if err != nil {
 return 0, err
	}
	b2, err := strconv.ParseUint(hex[4:6], 16, 8)
	if err != nil {
 return 0, err
	}
	return uint32(b0) | uint32(b1)<<8 | uint32(b2)<<16, nil
}

// countsToDegrees converts a raw encoder count to degrees, centered on the
// mount's zero position at countsPerRevolution/2.
func countsToDegrees(counts uint32) float64 {
	signed := int64(counts) - int64(countsPerRevolution)/2
	return float64(signed) / countsPerRevolution * 360.0
}

// degreesToCounts is the inverse of countsToDegrees.
func degreesToCounts(deg float64) uint32 {
	signed := int64(deg/360.0*countsPerRevolution) + int64(countsPerRevolution)/2
	if signed < 0 {
 signed = 0
	}
	return uint32(signed)
}

// ratePeriodCounts converts a rate in degrees/second to the motor
// controller's step-period units (timer ticks per step), per the
// protocol's inverse relationship between period and speed. A faster rate
// means a shorter period; period saturates at a protocol-defined minimum.
const minStepPeriod = 6 // fastest representable step rate

func ratePeriodCounts(degPerSec, maxRateDeg float64) uint32 {
	if degPerSec == 0 {
 return 0
	}
	mag := degPerSec
	if mag < 0 {
 mag = -mag
	}
	if mag > maxRateDeg {
 mag = maxRateDeg
	}
	// Larger magnitude => smaller period; scaled so maxRateDeg maps near
	// minStepPeriod and vanishing rate maps to a very large period.
	period := uint32((maxRateDeg / mag) * minStepPeriod)
	if period < minStepPeriod {
 period = minStepPeriod
	}
	return period
}
