// Command tracker is the operator-facing binary: it runs
// one SBS-1 ingest task per configured feed, the fusion task that owns
// the target map, the controller task that drives the mount toward the
// selected target, and an operator console for selecting targets and
// applying manual pointing bias.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/unklstewy/nexplane/cmd/tracker/console"
	"github.com/unklstewy/nexplane/internal/fusion"
	"github.com/unklstewy/nexplane/pkg/adsb"
	"github.com/unklstewy/nexplane/pkg/align"
	"github.com/unklstewy/nexplane/pkg/config"
	"github.com/unklstewy/nexplane/pkg/controller"
	"github.com/unklstewy/nexplane/pkg/coordinates"
	"github.com/unklstewy/nexplane/pkg/mount"
	"github.com/unklstewy/nexplane/pkg/rpc"
	"github.com/unklstewy/nexplane/pkg/target"
)

// controllerTickInterval is the controller task's fixed update period.
const controllerTickInterval = 50 * time.Millisecond

var (
	configPath string
	overrides  []string
)

func main() {
	root := &cobra.Command{
		Use:   "tracker",
		Short: "Track ADS-B aircraft and satellites with a telescope mount",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to the base config file")
	root.Flags().StringArrayVar(&overrides, "override", nil, "additional config layer (repeatable, later wins)")

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
		return fmt.Errorf("tracker: loading config: %w", err)
	}

	loc := cfg.ActiveLocation()
	observer := coordinates.Observer{Location: coordinates.Geographic{
		Latitude: loc.LatDegrees, Longitude: loc.LonDegrees, Altitude: loc.AltMeters,
	}}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reports := make(chan target.Report, 64)
	queries := make(chan fusion.QueryRequest)
	snapshots := make(chan fusion.SnapshotRequest)
	fusionTask := fusion.New(fusion.Config{
		Reports: reports, Queries: queries, Snapshots: snapshots,
		Observer: observer, Log: entry,
	})
	go fusionTask.Run(ctx)

	for _, addr := range cfg.SBS1Servers {
		go runIngestWithReconnect(ctx, addr, reports, entry)
	}

	m := rpc.Dial(cfg.TelescopeServer, entry)
	defer m.Close()

	sel := newSelection()
	ctl := controller.New(controller.DefaultConfig(), m, observer)

	if cfg.Landmark != "" {
		if _, err := parseLandmark(cfg.Landmark); err != nil {
			return err
		}
		if err := runLandmarkAlignment(ctx, cfg, observer, m, ctl, entry); err != nil {
			entry.WithError(err).Warn("landmark alignment failed, continuing unaligned")
		}
	}

	go controllerLoop(ctx, ctl, m, queries, sel, entry)

	targetsFn := func() []*target.Target {
		reply := make(chan []*target.Target, 1)
		select {
		case snapshots <- fusion.SnapshotRequest{Reply: reply}:
			return <-reply
		case <-ctx.Done():
			return nil
		}
	}
	stateFn := func() controller.State { return ctl.State() }
	selectFn := func(id string) { sel.set(id) }
	biasFn := func(azDeg, elDeg float64) {
		az, el := sel.addBias(azDeg, elDeg)
		haHours, decDeg := 0.0, 0.0
		if id := sel.get(); id != "" {
			reply := make(chan fusion.QueryResponse, 1)
			select {
			case queries <- fusion.QueryRequest{ID: id, Reply: reply}:
				if resp := <-reply; resp.Found {
					now := time.Now()
					eq := coordinates.HorizontalToEquatorial(resp.Target.Predict(now), observer, now)
					haHours = coordinates.CalculateLocalSiderealTime(observer.Location.Longitude, now) - eq.RightAscension
					decDeg = eq.Declination
				}
			case <-ctx.Done():
			}
		}
		ctl.SetManualBias(az, el, haHours, decDeg)
	}

	prog := tea.NewProgram(console.New(observer, targetsFn, stateFn, selectFn, biasFn))
	go func() {
		<-ctx.Done()
		prog.Quit()
	}()
	_, err = prog.Run()
	return err
}

// parseLandmark interprets cfg.Landmark. Accepted forms are
// "sun" (solar-system body), "star:<name>", and "lat,lon,alt" (terrestrial,
// degrees and meters).
func parseLandmark(s string) (align.Landmark, error) {
	if s == "sun" {
		return align.Landmark{Kind: align.KindSolarSystemBody, Body: "sun"}, nil
	}
	if name, ok := strings.CutPrefix(s, "star:"); ok {
		return align.Landmark{Kind: align.KindStar, StarName: name}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return align.Landmark{}, fmt.Errorf("tracker: landmark %q: want \"sun\", \"star:<name>\", or \"lat,lon,alt\"", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return align.Landmark{}, fmt.Errorf("tracker: landmark %q: latitude: %w", s, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return align.Landmark{}, fmt.Errorf("tracker: landmark %q: longitude: %w", s, err)
	}
	alt, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return align.Landmark{}, fmt.Errorf("tracker: landmark %q: altitude: %w", s, err)
	}
	return align.Landmark{
		Kind:        align.KindTerrestrial,
		Terrestrial: coordinates.Geographic{Latitude: lat, Longitude: lon, Altitude: alt},
	}, nil
}

// runLandmarkAlignment resolves cfg.Landmark, reads the mount's current
// attitude as the "pointed at the landmark" reading, and stores the
// resulting offset on ctl so every later Tick corrects for it.
func runLandmarkAlignment(ctx context.Context, cfg *config.Config, observer coordinates.Observer, m mount.Mount, ctl *controller.Controller, log *logrus.Entry) error {
	lm, err := parseLandmark(cfg.Landmark)
	if err != nil {
		return err
	}

	var stars *align.StarCatalogClient
	if lm.Kind == align.KindStar {
		if cfg.StarCatalogURL == "" {
			return fmt.Errorf("tracker: landmark %q requires star_catalog_url", cfg.Landmark)
		}
		stars = align.NewStarCatalogClient(cfg.StarCatalogURL)
	}

	now := time.Now()
	sky, err := align.LandmarkSkyPosition(ctx, lm, observer, now, stars)
	if err != nil {
		return fmt.Errorf("tracker: resolving landmark %q: %w", cfg.Landmark, err)
	}

	reported, err := m.ReadAttitude(ctx)
	if err != nil {
		return fmt.Errorf("tracker: reading mount attitude for alignment: %w", err)
	}

	actual := align.ToMountAttitude(sky, m.FrameKind(), observer, now)
	offset := align.ComputeOffset(reported, actual)
	ctl.SetAlignment(offset)
	log.WithFields(logrus.Fields{"landmark": cfg.Landmark, "delta_axis1": offset.DeltaAxis1, "delta_axis2": offset.DeltaAxis2}).Info("landmark alignment applied")
	return nil
}

// runIngestWithReconnect keeps one SBS-1 feed alive, reconnecting with
// exponential backoff on failure.
func runIngestWithReconnect(ctx context.Context, addr string, out chan<- target.Report, log *logrus.Entry) {
	delay := 100 * time.Millisecond
	const maxDelay = 10 * time.Second
	for {
		if ctx.Err() != nil {
			return
		}
		ig := adsb.NewIngest(addr, out, log)
		if err := ig.Run(ctx); err != nil {
			log.WithError(err).WithField("addr", addr).Warn("ingest connection lost, reconnecting")
		}
		if ctx.Err() != nil {
			return
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// controllerLoop ticks the controller at a fixed rate, reading the
// mount's attitude and the currently selected target on each tick.
func controllerLoop(ctx context.Context, ctl *controller.Controller, m mount.Mount, queries chan<- fusion.QueryRequest, sel *selection, log *logrus.Entry) {
	ticker := time.NewTicker(controllerTickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			attitude, attErr := m.ReadAttitude(ctx)

			var trg *target.Target
			if id := sel.get(); id != "" {
				reply := make(chan fusion.QueryResponse, 1)
				select {
				case queries <- fusion.QueryRequest{ID: id, Reply: reply}:
					if resp := <-reply; resp.Found {
						trg = resp.Target
					}
				case <-ctx.Done():
					return
				}
			}

			if err := ctl.Tick(ctx, now, trg, attitude, attErr); err != nil {
				log.WithError(err).Warn("controller tick failed")
			}
		}
	}
}

// selection tracks the operator's currently selected target ID and
// accumulated manual pointing bias.
type selection struct {
	mu    sync.Mutex
	id    string
	azDeg float64
	elDeg float64
}

func newSelection() *selection { return &selection{} }

func (s *selection) set(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
	s.azDeg, s.elDeg = 0, 0
}

func (s *selection) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *selection) addBias(azDeg, elDeg float64) (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.azDeg += azDeg
	s.elDeg += elDeg
	return s.azDeg, s.elDeg
}
