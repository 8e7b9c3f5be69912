package coordinates

import "math"

// ENU is a point in the observer-centered East-North-Up frame, in meters.
// It is the linearizable frame used by the target estimator:
// a position and velocity expressed in ENU can be propagated forward in
// time with simple linear extrapolation, then converted back to az/el.
type ENU struct {
	East float64
	North float64
	Up float64
}

// GeographicToENU converts a geographic position to the observer-centered
// ENU frame using a local tangent-plane (flat-Earth) approximation. This is
// adequate for the short baselines (tens to hundreds of km) involved in
// aircraft and near-Earth satellite tracking; it is the same approximation
// family as the ECEF-to-topocentric rotation used for satellite look angles.
func GeographicToENU(target Geographic, observer Observer) ENU {
	obsLatRad, obsLonRad, obsAlt := observer.Location.ToRadians()
	tgtLatRad, tgtLonRad, tgtAlt := target.ToRadians()

	dLat := tgtLatRad - obsLatRad
	dLon := tgtLonRad - obsLonRad

	// Local radius of curvature approximations are unnecessary at this
	// precision; treat the Earth as a sphere of EarthRadiusKm.
	metersPerRadLat := EarthRadiusKm * 1000.0
	metersPerRadLon := EarthRadiusKm * 1000.0 * math.Cos(obsLatRad)

	return ENU{
 East: dLon * metersPerRadLon,
 North: dLat * metersPerRadLat,
 Up: tgtAlt - obsAlt,
	}
}

// ToHorizontal converts an ENU offset into horizontal (az/el) coordinates
// as seen from the observer at the ENU frame's origin.
func (e ENU) ToHorizontal() HorizontalCoordinates {
	rangeHoriz := math.Hypot(e.East, e.North)
	az := math.Atan2(e.East, e.North) * RadiansToDegrees
	el := math.Atan2(e.Up, rangeHoriz) * RadiansToDegrees
	return HorizontalCoordinates{
 Altitude: el,
 Azimuth: NormalizeAzimuth(az),
	}
}

// Add returns the ENU sum of e and o, used to apply a velocity*duration
// displacement to a stored position.
func (e ENU) Add(o ENU) ENU {
	return ENU{East: e.East + o.East, North: e.North + o.North, Up: e.Up + o.Up}
}

// Scale returns e scaled by k, used to turn a velocity vector into a
// displacement over an elapsed duration.
func (e ENU) Scale(k float64) ENU {
	return ENU{East: e.East * k, North: e.North * k, Up: e.Up * k}
}

// AzimuthError returns the signed shortest-path error from mount azimuth
// (β) to target azimuth (α), wrapped to (−180°, +180°]. A positive result
// means the target lies clockwise (eastward) of the mount's current
// azimuth.
func AzimuthError(targetAz, mountAz float64) float64 {
	diff := math.Mod(targetAz-mountAz, 360.0)
	if diff <= -180.0 {
 diff += 360.0
	} else if diff > 180.0 {
 diff -= 360.0
	}
	return diff
}

// ParallacticAngle returns the parallactic angle (degrees) of a point at
// the given hour angle and declination, as seen from a given latitude. It
// is the angle between the great circle to the zenith and the great circle
// to the celestial pole, and is used to rotate an operator's "up" keypress
// from the display's az/el sense into the mount's RA/Dec sense on
// equatorial mounts.
func ParallacticAngle(hourAngleHours, decDeg, latDeg float64) float64 {
	haRad := hourAngleHours * 15.0 * DegreesToRadians
	decRad := decDeg * DegreesToRadians
	latRad := latDeg * DegreesToRadians

	y := math.Sin(haRad)
	x := math.Tan(latRad)*math.Cos(decRad) - math.Sin(decRad)*math.Cos(haRad)
	return math.Atan2(y, x) * RadiansToDegrees
}

// RotateAzElBiasToRaDec rotates a small az/el bias (as applied by operator
// keypresses on the display) into an RA/Dec bias using the parallactic
// angle, so that "up" on the alt-az-rendered display always corresponds to
// a motion toward the zenith regardless of mount frame. The
// rotation is evaluated once per call and must be re-invoked by the caller
// if it wishes to track a moving target (see DESIGN.md's decision on
// latched-vs-continuous rotation).
func RotateAzElBiasToRaDec(biasAz, biasEl, hourAngleHours, decDeg, latDeg float64) (biasRA, biasDec float64) {
	p := ParallacticAngle(hourAngleHours, decDeg, latDeg) * DegreesToRadians
	// Elevation ("up") maps mostly onto +Dec, azimuth onto −RA (increasing
	// RA is eastward, increasing azimuth is also eastward at the horizon,
	// but the parallactic rotation couples the two near the pole).
	biasDec = biasEl*math.Cos(p) - biasAz*math.Sin(p)
	biasRA = -(biasEl*math.Sin(p) + biasAz*math.Cos(p))
	return biasRA, biasDec
}
