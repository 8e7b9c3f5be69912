package coordinates

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

// TestAzimuthErrorWrap verifies that the azimuth error always lies in
// (−180°, +180°] with magnitude ≤ 180°.
func TestAzimuthErrorWrap(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
 target := rng.Float64() * 360.0
 mount := rng.Float64() * 360.0
 e := AzimuthError(target, mount)
 if e <= -180.0 || e > 180.0 {
 t.Fatalf("AzimuthError(%.3f, %.3f) = %.6f out of (-180,180]", target, mount, e)
 }
 if math.Abs(e) > 180.0 {
 t.Fatalf("AzimuthError(%.3f, %.3f) magnitude %.6f exceeds 180", target, mount, e)
 }
	}
}

func TestAzimuthErrorShortPath(t *testing.T) {
	// target 10, mount 350 -> should wrap to +20, not -340
	got := AzimuthError(10, 350)
	if math.Abs(got-20.0) > 1e-9 {
 t.Errorf("AzimuthError(10, 350) = %v, want 20", got)
	}
	got = AzimuthError(350, 10)
	if math.Abs(got+20.0) > 1e-9 {
 t.Errorf("AzimuthError(350, 10) = %v, want -20", got)
	}
}

// TestFrameEquivalence verifies that converting alt-az to equatorial and
// back recovers the original within 1 arcsecond,
// for targets well clear of the pole and zenith singularities.
func TestFrameEquivalence(t *testing.T) {
	observer := Observer{Location: Geographic{Latitude: 38.879084, Longitude: -77.036531, Altitude: 18}}
	testTime := time.Date(2026, 6, 21, 4, 0, 0, 0, time.UTC)

	rng := rand.New(rand.NewSource(42))
	const arcsecond = 1.0 / 3600.0
	for i := 0; i < 500; i++ {
 alt := 10.0 + rng.Float64()*70.0 // avoid zenith/horizon singularities
 az := rng.Float64() * 360.0
 h := HorizontalCoordinates{Altitude: alt, Azimuth: az}

 eq := HorizontalToEquatorial(h, observer, testTime)
 back := EquatorialToHorizontal(eq, observer, testTime)

 if math.Abs(back.Altitude-h.Altitude) > arcsecond {
 t.Fatalf("altitude round trip: got %.8f want %.8f (az=%.3f alt=%.3f)", back.Altitude, h.Altitude, az, alt)
 }
 azDiff := math.Abs(back.Azimuth - h.Azimuth)
 if azDiff > 180 {
 azDiff = 360 - azDiff
 }
 if azDiff > arcsecond {
 t.Fatalf("azimuth round trip: got %.8f want %.8f (az=%.3f alt=%.3f)", back.Azimuth, h.Azimuth, az, alt)
 }
	}
}

func TestGeographicToENUDirectlyAbove(t *testing.T) {
	observer := Observer{Location: Geographic{Latitude: 40, Longitude: -74, Altitude: 100}}
	target := Geographic{Latitude: 40, Longitude: -74, Altitude: 10100}
	enu := GeographicToENU(target, observer)
	if math.Abs(enu.East) > 1e-6 || math.Abs(enu.North) > 1e-6 {
 t.Errorf("expected zero horizontal offset directly overhead, got %+v", enu)
	}
	if math.Abs(enu.Up-10000) > 1e-6 {
 t.Errorf("expected 10000m up offset, got %v", enu.Up)
	}
	h := enu.ToHorizontal()
	if math.Abs(h.Altitude-90) > 1e-6 {
 t.Errorf("expected 90 degree altitude directly overhead, got %v", h.Altitude)
	}
}

func TestRotateAzElBiasAtZenithIsPureElevation(t *testing.T) {
	// Near zenith (hour angle ~0, dec ~= latitude) an "up" press should
	// decompose mostly into +Dec with negligible RA component.
	lat := 38.879084
	dec := lat - 0.5
	ra, decBias := RotateAzElBiasToRaDec(0, 1.0, 0.0, dec, lat)
	if decBias <= 0.9 {
 t.Errorf("expected dec bias close to 1.0 near zenith, got %v", decBias)
	}
	if math.Abs(ra) > 0.2 {
 t.Errorf("expected small RA component near zenith, got %v", ra)
	}
}
