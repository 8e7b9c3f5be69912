package hootl

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/unklstewy/nexplane/pkg/mount"
)

func TestSlewRateIntegratesOverTime(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickPeriod = 10 * time.Millisecond
	sim := New(cfg)
	defer sim.Close()

	ctx := context.Background()
	if err := sim.SlewRate(ctx, mount.Axis2, 5.0); err != nil {
		t.Fatalf("slew rate error: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	att, err := sim.ReadAttitude(ctx)
	if err != nil {
		t.Fatalf("read attitude error: %v", err)
	}
	if att.Axis2 <= 0 {
		t.Errorf("expected axis2 to have advanced, got %v", att.Axis2)
	}
}

func TestRateClampedToMax(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRateDeg = 2.0
	sim := New(cfg)
	defer sim.Close()

	if err := sim.SlewRate(context.Background(), mount.Axis1, 999.0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim.mu.Lock()
	rate := sim.rate1
	sim.mu.Unlock()
	if math.Abs(rate-2.0) > 1e-9 {
		t.Errorf("expected rate clamped to 2.0, got %v", rate)
	}
}

func TestCancelStopsMotion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TickPeriod = 10 * time.Millisecond
	sim := New(cfg)
	defer sim.Close()

	ctx := context.Background()
	sim.SlewRate(ctx, mount.Axis1, 5.0)
	time.Sleep(50 * time.Millisecond)
	sim.Cancel(ctx)
	att1, _ := sim.ReadAttitude(ctx)
	time.Sleep(100 * time.Millisecond)
	att2, _ := sim.ReadAttitude(ctx)
	if math.Abs(att1.Axis1-att2.Axis1) > 1e-6 {
		t.Errorf("expected motion to stop after cancel: %v -> %v", att1.Axis1, att2.Axis1)
	}
}
