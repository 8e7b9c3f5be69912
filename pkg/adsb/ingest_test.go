package adsb

import (
	"context"
	"math"
	"net"
	"testing"
	"time"

	"github.com/unklstewy/nexplane/pkg/sbs1"
	"github.com/unklstewy/nexplane/pkg/target"
)

// startFeed listens on an ephemeral port and writes lines (already CRLF
// terminated) to the first connection it accepts, then closes.
func startFeed(t *testing.T, lines []string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for _, l := range lines {
			conn.Write([]byte(l))
		}
		time.Sleep(50 * time.Millisecond)
	}()
	t.Cleanup(func() { ln.Close() })
	return ln.Addr().String()
}

func TestIngestJoinsPositionAndVelocity(t *testing.T) {
	lines := []string{
		"MSG,3,111,11111,A12345,111111,2024/01/15,12:00:00.000,2024/01/15,12:00:00.000,UAL123,35000,,,40.71280,-74.00600,,,0,0,0,0\r\n",
		"MSG,4,111,11111,A12345,111111,2024/01/15,12:00:00.000,2024/01/15,12:00:00.000,,,450.5,90.0,,,-500,,0,0,0,0\r\n",
	}
	addr := startFeed(t, lines)

	out := make(chan target.Report, 4)
	ig := NewIngest(addr, out, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ig.Run(ctx) }()

	select {
	case rep := <-out:
		if rep.ID != "A12345" {
			t.Errorf("expected hex ident A12345, got %q", rep.ID)
		}
		if math.Abs(rep.Position.Latitude-40.7128) > 1e-3 {
			t.Errorf("latitude = %v", rep.Position.Latitude)
		}
		// Track 90 degrees (due east): East component should be positive,
		// North should be ~zero.
		if rep.Velocity.East <= 0 {
			t.Errorf("expected positive east velocity for due-east track, got %v", rep.Velocity.East)
		}
		if math.Abs(rep.Velocity.North) > 1.0 {
			t.Errorf("expected near-zero north velocity for due-east track, got %v", rep.Velocity.North)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for joined report")
	}
	cancel()
	<-done
}

// TestIngestFlushesPositionAloneAfterTTL verifies a position record with no
// matching velocity is still reported once pendingTTL has elapsed, rather
// than held indefinitely. Exercises absorb/flushReady directly to avoid
// depending on wall-clock timing through a live connection.
func TestIngestFlushesPositionAloneAfterTTL(t *testing.T) {
	out := make(chan target.Report, 1)
	ig := NewIngest("unused:0", out, nil)

	_, rec, err := sbs1.DecodeLine("MSG,3,111,11111,B99999,111111,2024/01/15,12:00:00.000,2024/01/15,12:00:00.000,DAL456,10000,,,38.0,-77.0,,,0,0,0,0\r\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ig.absorb(sbs1.MsgAirbornePosition, rec)
	ig.joined["B99999"].seenAt = time.Now().Add(-2 * pendingTTL)

	ig.flushReady()

	select {
	case rep := <-out:
		if rep.ID != "B99999" {
			t.Errorf("expected hex ident B99999, got %q", rep.ID)
		}
		if rep.Velocity != (target.ENUVelocity{}) {
			t.Errorf("expected zero velocity for position-only report, got %+v", rep.Velocity)
		}
	default:
		t.Fatal("expected a flushed report, got none")
	}
}

func TestIngestHoldsPositionAloneBeforeTTL(t *testing.T) {
	out := make(chan target.Report, 1)
	ig := NewIngest("unused:0", out, nil)

	_, rec, err := sbs1.DecodeLine("MSG,3,111,11111,C00000,111111,2024/01/15,12:00:00.000,2024/01/15,12:00:00.000,DAL456,10000,,,38.0,-77.0,,,0,0,0,0\r\n")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	ig.absorb(sbs1.MsgAirbornePosition, rec)

	ig.flushReady()

	select {
	case rep := <-out:
		t.Fatalf("expected no flush before pendingTTL, got %+v", rep)
	default:
	}
}
