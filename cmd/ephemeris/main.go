// Command ephemeris serves SGP4-propagated satellite positions to any
// connected tracker, in the same SBS-1 wire schema used for ADS-B
// aircraft, so the estimator's ingest path treats both sources
// identically.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/unklstewy/nexplane/pkg/config"
	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/satellite"
	"github.com/unklstewy/nexplane/pkg/sbs1"
)

var (
	configPath string
	overrides  []string
	addr       string
	tleFiles   []string
	interval   time.Duration
)

func main() {
	root := &cobra.Command{
		Use:   "ephemeris",
		Short: "Serve SGP4-propagated satellite positions in SBS-1 format",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to the base config file")
	root.Flags().StringArrayVar(&overrides, "override", nil, "additional config layer (repeatable, later wins)")
	root.Flags().StringVar(&addr, "addr", "127.0.0.1:30003", "address to serve SBS-1 lines on")
	root.Flags().StringArrayVar(&tleFiles, "tle-file", nil, "TLE file to load (repeatable; defaults to config tle_files)")
	root.Flags().DurationVar(&interval, "interval", 2*time.Second, "propagation/update interval")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	entry := logrus.NewEntry(log)

	cfg, err := config.Load(configPath, overrides)
	if err != nil {
		return fmt.Errorf("ephemeris: loading config: %w", err)
	}

	files := tleFiles
	if len(files) == 0 {
		files = cfg.TLEFiles
	}
	if len(files) == 0 {
		return fmt.Errorf("ephemeris: no TLE files configured (--tle-file or config tle_files)")
	}

	tles, err := loadTLEFiles(files)
	if err != nil {
		return fmt.Errorf("ephemeris: loading TLE files: %w", err)
	}
	entry.WithField("count", len(tles)).Info("loaded TLEs")

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ephemeris: listening on %s: %w", addr, err)
	}
	defer ln.Close()
	entry.WithField("addr", addr).Info("ephemeris server listening")

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go serveConn(conn, tles, interval, entry)
	}
}

// loadTLEFiles reads every three-line TLE group (name, line 1, line 2)
// from each path, in the conventional CelesTrak file layout.
func loadTLEFiles(paths []string) ([]satellite.TLE, error) {
	var out []satellite.TLE
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		sc := bufio.NewScanner(f)
		var lines []string
		for sc.Scan() {
			line := strings.TrimRight(sc.Text(), "\r\n")
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, line)
		}
		f.Close()
		if err := sc.Err(); err != nil {
			return nil, err
		}
		if len(lines)%3 != 0 {
			return nil, fmt.Errorf("%s: expected groups of 3 lines, got %d", path, len(lines))
		}
		for i := 0; i < len(lines); i += 3 {
			tle, err := satellite.ParseTLE(lines[i], lines[i+1], lines[i+2])
			if err != nil {
				return nil, err
			}
			out = append(out, tle)
		}
	}
	return out, nil
}

// serveConn propagates every loaded TLE on each tick and writes its
// position and velocity as SBS-1 MSG,3/MSG,4 lines to conn, using a hash
// of the satellite's name (see hexIdentFor) as the hex_ident.
func serveConn(conn net.Conn, tles []satellite.TLE, interval time.Duration, log *logrus.Entry) {
	defer conn.Close()
	log = log.WithField("remote", conn.RemoteAddr().String())
	log.Info("tracker connected")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := make([]satellite.State, len(tles))
	havePrev := make([]bool, len(tles))

	for range ticker.C {
		now := time.Now()
		for i, tle := range tles {
			state, err := satellite.Propagate(tle, now)
			if err != nil {
				log.WithError(err).WithField("satellite", tle.Name).Debug("propagation failed")
				continue
			}

			hexIdent := hexIdentFor(tle.Name)
			posLine := sbs1.EncodePosition(sbs1.Position{
				HexIdent:  hexIdent,
				Callsign:  tle.Name,
				AltitudeF: state.Position.Altitude / coordinates.FeetToMeters,
				Latitude:  state.Position.Latitude,
				Longitude: state.Position.Longitude,
				Timestamp: now,
			})
			if _, err := conn.Write([]byte(posLine)); err != nil {
				log.WithError(err).Debug("write failed, closing connection")
				return
			}

			if havePrev[i] {
				groundSpeedKt, track, verticalRateFpm := derive(prev[i], state)
				velLine := sbs1.EncodeVelocity(sbs1.Velocity{
					HexIdent:     hexIdent,
					GroundSpeed:  groundSpeedKt,
					Track:        track,
					VerticalRate: verticalRateFpm,
					Timestamp:    now,
				})
				if _, err := conn.Write([]byte(velLine)); err != nil {
					log.WithError(err).Debug("write failed, closing connection")
					return
				}
			}
			prev[i], havePrev[i] = state, true
		}
	}
}

// derive estimates groundspeed (knots), track (degrees), and vertical
// rate (feet/minute) from two successive propagated states, since SGP4's
// velocity vector is ECI and the SBS-1 schema wants surface-relative
// quantities.
func derive(a, b satellite.State) (groundSpeedKt, track, verticalRateFpm float64) {
	dt := b.Time.Sub(a.Time).Hours()
	if dt <= 0 {
		return 0, 0, 0
	}
	distNM := coordinates.DistanceNauticalMiles(a.Position, b.Position)
	groundSpeedKt = distNM / dt
	track = coordinates.Bearing(a.Position, b.Position)
	dtMin := b.Time.Sub(a.Time).Minutes()
	deltaAltFt := (b.Position.Altitude - a.Position.Altitude) / coordinates.FeetToMeters
	verticalRateFpm = deltaAltFt / dtMin
	return groundSpeedKt, track, verticalRateFpm
}

// hexIdentFor derives a stable SBS-1 hex_ident-shaped token from a
// satellite's catalog name, since TLEs do not carry a Mode-S address.
func hexIdentFor(name string) string {
	h := fnv32(name)
	return fmt.Sprintf("%06X", h&0xFFFFFF)
}

func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h *= prime32
		h ^= uint32(s[i])
	}
	return h
}
