package skywatcher

import (
	"math"
	"math/rand"
	"testing"
)

func TestBuildCommandFraming(t *testing.T) {
	cmd := buildCommand(cmdGetPosition, 0, "")
	want := ":j1\r"
	if cmd != want {
 t.Errorf("got %q want %q", cmd, want)
	}
}

func TestParseHexReplySuccess(t *testing.T) {
	payload, ok, err := parseHexReply("=0102A3\r")
	if err != nil {
 t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
 t.Error("expected ok=true")
	}
	if payload != "0102A3" {
 t.Errorf("payload = %q", payload)
	}
}

func TestParseHexReplyFailureStatus(t *testing.T) {
	_, ok, err := parseHexReply("!\r")
	if err != nil {
 t.Fatalf("unexpected error: %v", err)
	}
	if ok {
 t.Error("expected ok=false for ! status")
	}
}

func TestParseHexReplyMalformed(t *testing.T) {
	if _, _, err := parseHexReply(""); err == nil {
 t.Fatal("expected error for empty reply")
	}
	if _, _, err := parseHexReply("?garbage\r"); err == nil {
 t.Fatal("expected error for unknown status byte")
	}
}

func TestCountsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
 want := uint32(rng.Intn(1 << 24))
 hex := encodeCounts(want)
 got, err := decodeCounts(hex)
 if err != nil {
 t.Fatalf("decode error: %v", err)
 }
 if got != want {
 t.Fatalf("round trip mismatch: got %d want %d (hex %q)", got, want, hex)
 }
	}
}

func TestDegreesCountsRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
 deg := rng.Float64()*350 - 175
 counts := degreesToCounts(deg)
 got := countsToDegrees(counts)
 if math.Abs(got-deg) > 1e-3 {
 t.Fatalf("round trip mismatch: got %v want %v", got, deg)
 }
	}
}

func TestRatePeriodCountsMonotonicWithRate(t *testing.T) {
	slow := ratePeriodCounts(0.1, 5.0)
	fast := ratePeriodCounts(4.0, 5.0)
	if fast >= slow {
 t.Errorf("expected faster rate to yield shorter period: slow=%d fast=%d", slow, fast)
	}
}

func TestRatePeriodCountsZeroRate(t *testing.T) {
	if p := ratePeriodCounts(0, 5.0); p != 0 {
 t.Errorf("expected 0 period for 0 rate, got %d", p)
	}
}

func TestMotorAddressDistinctPerAxis(t *testing.T) {
	if motorAddress(0) == motorAddress(1) {
 t.Fatal("motor addresses must differ per axis")
	}
}
