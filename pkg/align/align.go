// Package align implements landmark alignment: a single-point
// correction computed by commanding the mount at a known landmark and
// comparing its reported attitude to the landmark's computed sky
// position. Mounts that cannot self-report an aligned frame (the
// Sky-Watcher adapters) require this before tracking; the NexStar adapter
// and HOOTL simulator do not.
package align

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/mount"
)

// Kind distinguishes the three landmark kinds a user can align against.
type Kind int

const (
	KindTerrestrial Kind = iota
	KindSolarSystemBody
	KindStar
)

// Landmark identifies what the operator pointed the mount at.
type Landmark struct {
	Kind Kind

	// Terrestrial: a WGS-84 location to compute bearing/elevation to.
	Terrestrial coordinates.Geographic

	// SolarSystemBody: currently "sun" is the only body with a built-in
	// low-precision ephemeris (pkg/coordinates.CalculateSunPosition); other
	// bodies are not implemented.
	Body string

	// Star: a catalog name resolved via HTTP lookup, the only alignment
	// path requiring network access.
	StarName string
}

// ErrUnknownBody is returned for an unsupported solar-system body name.
var ErrUnknownBody = errors.New("align: unsupported solar-system body")

// Offset is the single-point small-angle pointing correction computed at
// alignment time: the difference between where the mount reported it was
// pointing and where the landmark actually is, expressed in the mount's
// own axes. It is a constant additive offset applied to every subsequent
// reading or command.
type Offset struct {
	DeltaAxis1 float64
	DeltaAxis2 float64
}

// Apply adds the offset to a raw mount attitude, producing a corrected
// sky-frame attitude.
func (o Offset) Apply(raw mount.Attitude) mount.Attitude {
	return mount.Attitude{Axis1: raw.Axis1 + o.DeltaAxis1, Axis2: raw.Axis2 + o.DeltaAxis2}
}

// Inverse subtracts the offset, converting a desired sky-frame attitude
// into the raw attitude to command the mount toward.
func (o Offset) Inverse(sky mount.Attitude) mount.Attitude {
	return mount.Attitude{Axis1: sky.Axis1 - o.DeltaAxis1, Axis2: sky.Axis2 - o.DeltaAxis2}
}

// StarCatalogClient resolves a star name to an equatorial position over
// HTTP — the only alignment path that touches the network.
type StarCatalogClient struct {
	BaseURL string
	HTTPClient *http.Client
}

// NewStarCatalogClient builds a client against baseURL (e.g. a SIMBAD- or
// Hipparcos-style name resolver).
func NewStarCatalogClient(baseURL string) *StarCatalogClient {
	return &StarCatalogClient{BaseURL: baseURL, HTTPClient: &http.Client{Timeout: 10 * time.Second}}
}

// starLookupResponse is the expected JSON shape of a catalog lookup.
type starLookupResponse struct {
	RightAscensionHours float64 `json:"ra_hours"`
	DeclinationDeg float64 `json:"dec_deg"`
}

// Resolve looks up name and returns its equatorial position.
func (c *StarCatalogClient) Resolve(ctx context.Context, name string) (coordinates.EquatorialCoordinates, error) {
	u := c.BaseURL + "?name=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
 return coordinates.EquatorialCoordinates{}, err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
 return coordinates.EquatorialCoordinates{}, fmt.Errorf("align: star catalog lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
 return coordinates.EquatorialCoordinates{}, fmt.Errorf("align: star catalog returned status %d", resp.StatusCode)
	}
	var body starLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
 return coordinates.EquatorialCoordinates{}, err
	}
	return coordinates.EquatorialCoordinates{RightAscension: body.RightAscensionHours, Declination: body.DeclinationDeg}, nil
}

// LandmarkSkyPosition computes a landmark's current horizontal position,
// resolving it via HTTP for star landmarks.
func LandmarkSkyPosition(ctx context.Context, lm Landmark, observer coordinates.Observer, now time.Time, stars *StarCatalogClient) (coordinates.HorizontalCoordinates, error) {
	switch lm.Kind {
	case KindTerrestrial:
 return coordinates.GeographicToHorizontal(lm.Terrestrial, observer, now), nil

	case KindSolarSystemBody:
 if lm.Body != "sun" {
 return coordinates.HorizontalCoordinates{}, ErrUnknownBody
 }
 sun := coordinates.CalculateSunPosition(observer, now)
 return coordinates.HorizontalCoordinates{Azimuth: sun.Azimuth, Altitude: sun.Altitude}, nil

	case KindStar:
 if stars == nil {
 return coordinates.HorizontalCoordinates{}, fmt.Errorf("align: star alignment requires a catalog client")
 }
 eq, err := stars.Resolve(ctx, lm.StarName)
 if err != nil {
 return coordinates.HorizontalCoordinates{}, err
 }
 return coordinates.EquatorialToHorizontal(eq, observer, now), nil

	default:
 return coordinates.HorizontalCoordinates{}, fmt.Errorf("align: unknown landmark kind %d", lm.Kind)
	}
}

// ComputeOffset derives the single-point Offset from the mount's reported
// attitude at the moment the operator confirms it is centered on lm, and
// the landmark's actual sky position in the mount's native frame.
func ComputeOffset(reported mount.Attitude, actual mount.Attitude) Offset {
	return Offset{
 DeltaAxis1: coordinates.AzimuthError(actual.Axis1, reported.Axis1),
 DeltaAxis2: actual.Axis2 - reported.Axis2,
	}
}

// ToMountAttitude converts a landmark's horizontal sky position into the
// attitude coordinates of a mount with the given frame kind, so
// ComputeOffset can compare like with like regardless of adapter.
func ToMountAttitude(sky coordinates.HorizontalCoordinates, frame mount.FrameKind, observer coordinates.Observer, now time.Time) mount.Attitude {
	if frame == mount.FrameAltAz {
 return mount.Attitude{Axis1: sky.Azimuth, Axis2: sky.Altitude}
	}
	eq := coordinates.HorizontalToEquatorial(sky, observer, now)
	return mount.Attitude{Axis1: eq.RightAscension * 15.0, Axis2: eq.Declination}
}
