// Package adsb implements the SBS-1 ingest task: one task per
// configured feed, each a blocking TCP client that decodes BaseStation
// lines and posts fused target.Report values to the fusion task's report
// channel. SBS-1 delivers position (MSG,3) and velocity (MSG,4) as
// separate records for the same aircraft; this task joins them by
// hex_ident before reporting, since target.Report carries both in one
// value.
package adsb

import (
	"context"
	"math"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/sbs1"
	"github.com/unklstewy/nexplane/pkg/target"
)

// pendingTTL bounds how long a lone MSG,3 position waits for its MSG,4
// counterpart before being reported on its own (with velocity left at
// zero). A lone MSG,4 velocity is never reported by itself: it is held
// until a position for the same hex_ident arrives.
const pendingTTL = 5 * time.Second

// pending tracks the most recent position and/or velocity seen for one
// hex_ident, not yet reported because neither record type arrives with
// both fields in one line.
type pending struct {
	hasPos bool
	pos    sbs1.Position
	hasVel bool
	vel    sbs1.Velocity
	seenAt time.Time
}

// Ingest reads one SBS-1 feed and posts target.Report values to out until
// ctx is cancelled or the connection fails.
type Ingest struct {
	addr string
	out  chan<- target.Report
	log  *logrus.Entry

	joined map[string]*pending
}

// NewIngest builds an Ingest for addr (host:port), posting to out.
func NewIngest(addr string, out chan<- target.Report, log *logrus.Entry) *Ingest {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Ingest{addr: addr, out: out, log: log.WithField("component", "adsb_ingest").WithField("addr", addr), joined: make(map[string]*pending)}
}

// Run connects to the feed and processes lines until ctx is cancelled,
// returning nil on clean shutdown or the connection error otherwise (the
// caller's task-supervision model is responsible for reconnecting).
func (ig *Ingest) Run(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", ig.addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	sc := sbs1.NewScanner(conn)
	for sc.Scan() {
		typ, rec, err := sbs1.DecodeLine(sc.Text())
		if err != nil {
			ig.log.WithError(err).Debug("dropping malformed SBS-1 line")
			continue
		}
		ig.absorb(typ, rec)
		ig.flushReady()
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

func (ig *Ingest) absorb(typ sbs1.MsgType, rec interface{}) {
	switch typ {
	case sbs1.MsgAirbornePosition:
		p := rec.(*sbs1.Position)
		e := ig.joined[p.HexIdent]
		if e == nil {
			e = &pending{}
			ig.joined[p.HexIdent] = e
		}
		e.hasPos, e.pos, e.seenAt = true, *p, time.Now()

	case sbs1.MsgAirborneVelocity:
		v := rec.(*sbs1.Velocity)
		e := ig.joined[v.HexIdent]
		if e == nil {
			e = &pending{}
			ig.joined[v.HexIdent] = e
		}
		e.hasVel, e.vel, e.seenAt = true, *v, time.Now()
	}
}

// flushReady reports and clears any entry that has a position (the
// minimum needed for a target.Report) and either has a velocity or has
// waited past pendingTTL for one.
func (ig *Ingest) flushReady() {
	now := time.Now()
	for id, e := range ig.joined {
		if !e.hasPos {
			continue
		}
		if !e.hasVel && now.Sub(e.seenAt) < pendingTTL {
			continue
		}
		ig.out <- toReport(id, e)
		delete(ig.joined, id)
	}
}

func toReport(hexIdent string, e *pending) target.Report {
	vel := target.ENUVelocity{}
	if e.hasVel {
		vel = groundTrackToENU(e.vel.GroundSpeed, e.vel.Track, e.vel.VerticalRate)
	}
	return target.Report{
		ID: hexIdent,
		Position: coordinates.Geographic{
			Latitude:  e.pos.Latitude,
			Longitude: e.pos.Longitude,
			Altitude:  e.pos.AltitudeF * coordinates.FeetToMeters,
		},
		Velocity:  vel,
		Timestamp: e.pos.Timestamp,
	}
}

// groundTrackToENU converts SBS-1's speed/track/vertical-rate triple
// (knots, degrees, feet/minute) into an East-North-Up velocity vector in
// meters/second, the form target.Report carries.
func groundTrackToENU(groundSpeedKt, trackDeg, verticalRateFpm float64) target.ENUVelocity {
	const knotsToMPS = 0.514444
	const fpmToMPS = 0.00508
	speedMPS := groundSpeedKt * knotsToMPS
	rad := trackDeg * coordinates.DegreesToRadians
	return target.ENUVelocity{
		East:  speedMPS * math.Sin(rad),
		North: speedMPS * math.Cos(rad),
		Up:    verticalRateFpm * fpmToMPS,
	}
}
