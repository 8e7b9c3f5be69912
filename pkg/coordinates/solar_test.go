package coordinates

import (
	"math"
	"testing"
)

func TestAngularSeparationZero(t *testing.T) {
	sp := SunPosition{Altitude: 30, Azimuth: 180}
	sep := sp.AngularSeparation(30, 180)
	if math.Abs(sep) > 1e-9 {
 t.Errorf("separation from self should be 0, got %v", sep)
	}
}

func TestAngularSeparationKnownCase(t *testing.T) {
	// Sun at az 180 el 30, target at az 181 el 30.
	sp := SunPosition{Altitude: 30, Azimuth: 180}
	sep := sp.AngularSeparation(30, 181)
	if sep <= 0 || sep > 2 {
 t.Errorf("expected small nonzero separation, got %v", sep)
	}
}

func TestGetSafetyZoneBands(t *testing.T) {
	cases := []struct {
 sep float64
 want SolarSafetyZone
	}{
 {1.0, SafeZoneCritical},
 {3.0, SafeZoneDanger},
 {7.0, SafeZoneWarning},
 {15.0, SafeZoneCaution},
 {25.0, SafeZoneClear},
	}
	for _, c := range cases {
 got := GetSafetyZone(c.sep)
 if got != c.want {
 t.Errorf("GetSafetyZone(%v) = %v, want %v", c.sep, got, c.want)
 }
	}
}
