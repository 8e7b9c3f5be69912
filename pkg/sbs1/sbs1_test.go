package sbs1

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestDecodePositionLine(t *testing.T) {
	line := "MSG,3,111,11111,A12345,111111,2024/01/15,12:00:00.000,2024/01/15,12:00:00.000,UAL123,35000,,,40.71280,-74.00600,,,0,0,0,0\r\n"
	typ, rec, err := DecodeLine(line)
	if err != nil {
 t.Fatalf("unexpected error: %v", err)
	}
	if typ != MsgAirbornePosition {
 t.Fatalf("expected MsgAirbornePosition, got %v", typ)
	}
	pos := rec.(*Position)
	if pos.HexIdent != "A12345" {
 t.Errorf("hex ident = %q", pos.HexIdent)
	}
	if math.Abs(pos.Latitude-40.7128) > 1e-4 {
 t.Errorf("latitude = %v", pos.Latitude)
	}
	if math.Abs(pos.Longitude+74.006) > 1e-4 {
 t.Errorf("longitude = %v", pos.Longitude)
	}
}

func TestDecodeVelocityLine(t *testing.T) {
	line := "MSG,4,111,11111,A12345,111111,2024/01/15,12:00:00.000,2024/01/15,12:00:00.000,,,450.5,270.0,,,-500,,0,0,0,0\r\n"
	typ, rec, err := DecodeLine(line)
	if err != nil {
 t.Fatalf("unexpected error: %v", err)
	}
	if typ != MsgAirborneVelocity {
 t.Fatalf("expected MsgAirborneVelocity, got %v", typ)
	}
	v := rec.(*Velocity)
	if v.GroundSpeed != 450.5 {
 t.Errorf("ground speed = %v", v.GroundSpeed)
	}
	if v.VerticalRate != -500 {
 t.Errorf("vertical rate = %v", v.VerticalRate)
	}
}

func TestDecodeTruncatedLineDropped(t *testing.T) {
	_, _, err := DecodeLine("MSG,3,garbage")
	if err == nil {
 t.Fatal("expected error for truncated line")
	}
}

func TestDecodeEmptyLineDropped(t *testing.T) {
	_, _, err := DecodeLine("")
	if err == nil {
 t.Fatal("expected error for empty line")
	}
}

// TestPositionRoundTrip verifies that SBS-1 encode-then-decode for
// satellite emission is the identity on the fields used.
func TestPositionRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 4, 10, 30, 15, 0, time.UTC)
	p := Position{
 HexIdent: "FFAB12",
 Callsign: "ISS",
 AltitudeF: 1312000,
 Latitude: 51.6416,
 Longitude: -12.3456,
 Timestamp: ts,
	}
	encoded := EncodePosition(p)
	typ, rec, err := DecodeLine(encoded)
	if err != nil {
 t.Fatalf("decode error: %v", err)
	}
	if typ != MsgAirbornePosition {
 t.Fatalf("expected MsgAirbornePosition, got %v", typ)
	}
	got := rec.(*Position)
	if got.HexIdent != p.HexIdent {
 t.Errorf("hex ident round trip: got %q want %q", got.HexIdent, p.HexIdent)
	}
	if got.Callsign != p.Callsign {
 t.Errorf("callsign round trip: got %q want %q", got.Callsign, p.Callsign)
	}
	if math.Abs(got.Latitude-p.Latitude) > 1e-4 {
 t.Errorf("latitude round trip: got %v want %v", got.Latitude, p.Latitude)
	}
	if math.Abs(got.Longitude-p.Longitude) > 1e-4 {
 t.Errorf("longitude round trip: got %v want %v", got.Longitude, p.Longitude)
	}
	if math.Abs(got.AltitudeF-p.AltitudeF) > 1 {
 t.Errorf("altitude round trip: got %v want %v", got.AltitudeF, p.AltitudeF)
	}
	if !got.Timestamp.Equal(ts) {
 t.Errorf("timestamp round trip: got %v want %v", got.Timestamp, ts)
	}
}

func TestVelocityRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 4, 10, 30, 15, 0, time.UTC)
	v := Velocity{
 HexIdent: "FFAB12",
 GroundSpeed: 7660.2,
 Track: 123.4,
 VerticalRate: 0,
 Timestamp: ts,
	}
	encoded := EncodeVelocity(v)
	typ, rec, err := DecodeLine(encoded)
	if err != nil {
 t.Fatalf("decode error: %v", err)
	}
	if typ != MsgAirborneVelocity {
 t.Fatalf("expected MsgAirborneVelocity, got %v", typ)
	}
	got := rec.(*Velocity)
	if got.HexIdent != v.HexIdent {
 t.Errorf("hex ident round trip: got %q want %q", got.HexIdent, v.HexIdent)
	}
	if math.Abs(got.GroundSpeed-v.GroundSpeed) > 0.1 {
 t.Errorf("ground speed round trip: got %v want %v", got.GroundSpeed, v.GroundSpeed)
	}
	if math.Abs(got.Track-v.Track) > 0.1 {
 t.Errorf("track round trip: got %v want %v", got.Track, v.Track)
	}
}

func TestScannerReadsMultipleLines(t *testing.T) {
	data := "MSG,3,111,11111,A1,111111,2024/01/15,12:00:00.000,2024/01/15,12:00:00.000,C1,100,,,40.0,-74.0,,,0,0,0,0\r\n" +
 "MSG,4,111,11111,A2,111111,2024/01/15,12:00:01.000,2024/01/15,12:00:01.000,,,200,90,,,0,,0,0,0,0\r\n"
	sc := NewScanner(strings.NewReader(data))
	count := 0
	for sc.Scan() {
 count++
	}
	if err := sc.Err(); err != nil {
 t.Fatalf("scanner error: %v", err)
	}
	if count != 2 {
 t.Fatalf("expected 2 lines, got %d", count)
	}
}
