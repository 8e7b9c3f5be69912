// Package satellite wraps SGP4 propagation of two-line element sets,
// providing the ephemeris.propagate(tle, t) -> (lat, lon, alt, velocity)
// interface named in design notes. It is the external dependency
// that backs the ephemeris server.
package satellite

import (
	"fmt"
	"math"
	"strings"
	"time"

	sgp4 "github.com/joshuaferrara/go-satellite"

	"github.com/unklstewy/nexplane/pkg/coordinates"
)

// TLE is a parsed two-line element set plus its catalog name.
type TLE struct {
	Name string
	Line1 string
	Line2 string
}

// ParseTLE validates and wraps a raw three-line TLE block (name + 2 lines).
func ParseTLE(name, line1, line2 string) (TLE, error) {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)
	if len(line1) < 69 || !strings.HasPrefix(line1, "1 ") {
 return TLE{}, fmt.Errorf("satellite: invalid TLE line 1 for %q", name)
	}
	if len(line2) < 69 || !strings.HasPrefix(line2, "2 ") {
 return TLE{}, fmt.Errorf("satellite: invalid TLE line 2 for %q", name)
	}
	return TLE{Name: strings.TrimSpace(name), Line1: line1, Line2: line2}, nil
}

// State is a satellite's geographic position and velocity at a given time,
// as returned by propagation.
type State struct {
	Time time.Time
	Position coordinates.Geographic // lat/lon degrees, altitude meters
	VelocityKmS float64
}

// Propagate runs SGP4 for tle at time t and returns its geographic
// position and scalar velocity magnitude, via the standard
// TLEToSat/Propagate/JDay/ThetaG_JD/ECIToLLA call sequence.
func Propagate(tle TLE, t time.Time) (State, error) {
	sat := sgp4.TLEToSat(tle.Line1, tle.Line2, sgp4.GravityWGS72)

	year, month, day := t.UTC().Date()
	hour, min, sec := t.UTC().Clock()

	position, velocity := sgp4.Propagate(sat, year, int(month), day, hour, min, sec)
	if sat.Error != 0 {
 return State{}, fmt.Errorf("satellite: SGP4 propagation error %d for %q", sat.Error, tle.Name)
	}

	jday := sgp4.JDay(year, int(month), day, hour, min, sec)
	gmst := sgp4.ThetaG_JD(jday)

	altitudeM, _, latLong := sgp4.ECIToLLA(position, gmst)

	velMag := math.Sqrt(velocity.X*velocity.X + velocity.Y*velocity.Y + velocity.Z*velocity.Z)

	return State{
 Time: t,
 Position: coordinates.Geographic{
 Latitude: latLong.Latitude * sgp4.RAD2DEG,
 Longitude: latLong.Longitude * sgp4.RAD2DEG,
 Altitude: altitudeM * 1000.0, // go-satellite's ECIToLLA altitude is in km; convert to meters
 },
 VelocityKmS: velMag,
	}, nil
}

// LookAngles is the observer-relative view of a propagated satellite.
type LookAngles struct {
	Azimuth float64
	Elevation float64
	RangeKm float64
}

// ObservedFrom computes look angles from observer to the satellite's
// propagated position at time t. The ephemeris server does not call it:
// it emits every loaded satellite regardless of visibility.
func ObservedFrom(tle TLE, observer coordinates.Observer, t time.Time) (LookAngles, error) {
	sat := sgp4.TLEToSat(tle.Line1, tle.Line2, sgp4.GravityWGS72)

	year, month, day := t.UTC().Date()
	hour, min, sec := t.UTC().Clock()
	position, _ := sgp4.Propagate(sat, year, int(month), day, hour, min, sec)
	if sat.Error != 0 {
 return LookAngles{}, fmt.Errorf("satellite: SGP4 propagation error %d for %q", sat.Error, tle.Name)
	}

	jday := sgp4.JDay(year, int(month), day, hour, min, sec)
	obsLatLong := sgp4.LatLong{
 Latitude: observer.Location.Latitude * sgp4.DEG2RAD,
 Longitude: observer.Location.Longitude * sgp4.DEG2RAD,
	}
	obsAltKm := observer.Location.Altitude / 1000.0

	look := sgp4.ECIToLookAngles(position, obsLatLong, obsAltKm, jday)

	obsECI := sgp4.LLAToECI(obsLatLong, obsAltKm, jday)
	dx := position.X - obsECI.X
	dy := position.Y - obsECI.Y
	dz := position.Z - obsECI.Z
	rangeKm := math.Sqrt(dx*dx + dy*dy + dz*dz)

	return LookAngles{
 Azimuth: look.Az * sgp4.RAD2DEG,
 Elevation: look.El * sgp4.RAD2DEG,
 RangeKm: rangeKm,
	}, nil
}
