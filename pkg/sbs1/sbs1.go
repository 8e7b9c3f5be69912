// Package sbs1 implements the SBS-1/BaseStation ASCII CSV wire format:
// MSG type 3 (airborne position) and MSG type 4 (airborne
// velocity) records, CRLF-terminated. The ephemeris server emits
// satellite positions in this same schema, and the tracker's ingest
// task decodes it from any configured SBS-1 source, aircraft or
// satellite alike.
package sbs1

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// MsgType identifies which SBS-1 MSG record a line carries.
type MsgType int

const (
	MsgUnknown MsgType = 0
	MsgAirbornePosition MsgType = 3
	MsgAirborneVelocity MsgType = 4
)

// Position is a decoded MSG,3 airborne-position record.
type Position struct {
	HexIdent string
	Callsign string
	AltitudeF float64
	Latitude float64
	Longitude float64
	Timestamp time.Time
}

// Velocity is a decoded MSG,4 airborne-velocity record.
type Velocity struct {
	HexIdent string
	GroundSpeed float64
	Track float64
	VerticalRate float64
	Timestamp time.Time
}

// fieldCount is the number of comma-separated fields in a well-formed
// BaseStation MSG line (the standard 22-field BaseStation.sqb schema).
const fieldCount = 22

// Field indices within a MSG line (0-based), per the de-facto BaseStation
// schema: MsgType,Transmission,SessionID,AircraftID,HexIdent,FlightID,
// DateGen,TimeGen,DateLog,TimeLog,Callsign,Altitude,GroundSpeed,Track,
// Latitude,Longitude,VerticalRate,Squawk,Alert,Emergency,SPI,IsOnGround.
const (
	fieldMsgType = 0
	fieldHexIdent = 4
	fieldDateLog = 8
	fieldTimeLog = 9
	fieldCallsign = 10
	fieldAltitude = 11
	fieldGroundSpd = 12
	fieldTrack = 13
	fieldLatitude = 14
	fieldLongitude = 15
	fieldVertRate = 16
)

// DecodeLine parses one CRLF-stripped SBS-1 MSG line. It returns the MsgType
// and one of *Position or *Velocity depending on the type; callers type-
// switch on the returned value. Malformed or truncated lines return an
// error; callers should drop and count rather than propagate.
func DecodeLine(line string) (MsgType, interface{}, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
 return MsgUnknown, nil, fmt.Errorf("sbs1: empty line")
	}
	fields := strings.Split(line, ",")
	if len(fields) < fieldCount {
 return MsgUnknown, nil, fmt.Errorf("sbs1: truncated line: got %d fields, want %d", len(fields), fieldCount)
	}
	if fields[fieldMsgType] != "MSG" {
 return MsgUnknown, nil, fmt.Errorf("sbs1: not a MSG line")
	}

	msgSubtype, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
 return MsgUnknown, nil, fmt.Errorf("sbs1: bad message type field: %w", err)
	}

	ts := parseTimestamp(fields[fieldDateLog], fields[fieldTimeLog])
	hexIdent := strings.TrimSpace(fields[fieldHexIdent])

	switch MsgType(msgSubtype) {
	case MsgAirbornePosition:
 alt, _ := strconv.ParseFloat(strings.TrimSpace(fields[fieldAltitude]), 64)
 lat, latErr := strconv.ParseFloat(strings.TrimSpace(fields[fieldLatitude]), 64)
 lon, lonErr := strconv.ParseFloat(strings.TrimSpace(fields[fieldLongitude]), 64)
 if latErr != nil || lonErr != nil {
 return MsgUnknown, nil, fmt.Errorf("sbs1: bad position fields")
 }
 return MsgAirbornePosition, &Position{
 HexIdent: hexIdent,
 Callsign: strings.TrimSpace(fields[fieldCallsign]),
 AltitudeF: alt,
 Latitude: lat,
 Longitude: lon,
 Timestamp: ts,
 }, nil
	case MsgAirborneVelocity:
 gs, _ := strconv.ParseFloat(strings.TrimSpace(fields[fieldGroundSpd]), 64)
 track, _ := strconv.ParseFloat(strings.TrimSpace(fields[fieldTrack]), 64)
 vr, _ := strconv.ParseFloat(strings.TrimSpace(fields[fieldVertRate]), 64)
 return MsgAirborneVelocity, &Velocity{
 HexIdent: hexIdent,
 GroundSpeed: gs,
 Track: track,
 VerticalRate: vr,
 Timestamp: ts,
 }, nil
	default:
 return MsgUnknown, nil, nil
	}
}

// EncodePosition renders a Position as a MSG,3 line, CRLF-terminated. Used
// by the ephemeris server to synthesize satellite position records.
func EncodePosition(p Position) string {
	dateStr, timeStr := formatTimestamp(p.Timestamp)
	fields := make([]string, fieldCount)
	fields[fieldMsgType] = "MSG"
	fields[1] = "3"
	fields[2] = "111"
	fields[3] = "11111"
	fields[fieldHexIdent] = p.HexIdent
	fields[5] = "111111"
	fields[6] = dateStr
	fields[7] = timeStr
	fields[fieldDateLog] = dateStr
	fields[fieldTimeLog] = timeStr
	fields[fieldCallsign] = p.Callsign
	fields[fieldAltitude] = strconv.FormatFloat(p.AltitudeF, 'f', 0, 64)
	fields[fieldGroundSpd] = ""
	fields[fieldTrack] = ""
	fields[fieldLatitude] = strconv.FormatFloat(p.Latitude, 'f', 5, 64)
	fields[fieldLongitude] = strconv.FormatFloat(p.Longitude, 'f', 5, 64)
	fields[fieldVertRate] = ""
	fields[17] = ""
	fields[18] = "0"
	fields[19] = "0"
	fields[20] = "0"
	fields[21] = "0"
	return strings.Join(fields, ",") + "\r\n"
}

// EncodeVelocity renders a Velocity as a MSG,4 line, CRLF-terminated.
func EncodeVelocity(v Velocity) string {
	dateStr, timeStr := formatTimestamp(v.Timestamp)
	fields := make([]string, fieldCount)
	fields[fieldMsgType] = "MSG"
	fields[1] = "4"
	fields[2] = "111"
	fields[3] = "11111"
	fields[fieldHexIdent] = v.HexIdent
	fields[5] = "111111"
	fields[6] = dateStr
	fields[7] = timeStr
	fields[fieldDateLog] = dateStr
	fields[fieldTimeLog] = timeStr
	fields[fieldCallsign] = ""
	fields[fieldAltitude] = ""
	fields[fieldGroundSpd] = strconv.FormatFloat(v.GroundSpeed, 'f', 1, 64)
	fields[fieldTrack] = strconv.FormatFloat(v.Track, 'f', 1, 64)
	fields[fieldLatitude] = ""
	fields[fieldLongitude] = ""
	fields[fieldVertRate] = strconv.FormatFloat(v.VerticalRate, 'f', 0, 64)
	fields[17] = ""
	fields[18] = "0"
	fields[19] = "0"
	fields[20] = "0"
	fields[21] = "0"
	return strings.Join(fields, ",") + "\r\n"
}

func parseTimestamp(dateField, timeField string) time.Time {
	layout := "2006/01/02 15:04:05.000"
	t, err := time.Parse(layout, strings.TrimSpace(dateField)+" "+strings.TrimSpace(timeField))
	if err != nil {
 return time.Time{}
	}
	return t.UTC()
}

func formatTimestamp(t time.Time) (dateStr, timeStr string) {
	u := t.UTC()
	return u.Format("2006/01/02"), u.Format("15:04:05.000")
}

// Scanner reads successive SBS-1 lines from a stream, as used by the
// tracker's per-source ingest task. It wraps bufio.Scanner with
// CRLF-aware splitting.
type Scanner struct {
	sc *bufio.Scanner
}

// NewScanner returns a Scanner reading lines from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{sc: bufio.NewScanner(r)}
}

// Scan advances to the next line. It returns false at EOF or on error;
// callers should check Err to distinguish the two.
func (s *Scanner) Scan() bool { return s.sc.Scan() }

// Text returns the most recently scanned line.
func (s *Scanner) Text() string { return s.sc.Text() }

// Err returns the first non-EOF error encountered by Scan.
func (s *Scanner) Err() error { return s.sc.Err() }
