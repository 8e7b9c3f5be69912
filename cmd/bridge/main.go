// Command bridge runs the RPC server that fronts one physical or
// simulated telescope mount: it loads a mount adapter per
// --protocol (or the HOOTL simulator with --hootl) and serves it over a
// length-prefixed JSON RPC connection for the tracker to dial.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/unklstewy/nexplane/pkg/config"
	"github.com/unklstewy/nexplane/pkg/mount"
	"github.com/unklstewy/nexplane/pkg/mount/hootl"
	"github.com/unklstewy/nexplane/pkg/mount/nexstar"
	"github.com/unklstewy/nexplane/pkg/mount/skywatcher"
	"github.com/unklstewy/nexplane/pkg/rpc"
)

var (
	configPath string
	overrides  []string
	addr       string
	hootlFlag  bool
	protocol   string
	serialPort string
	udpAddr    string
	maxRateDeg float64
)

func main() {
	root := &cobra.Command{
		Use:   "bridge",
		Short: "Serve a telescope mount over the RPC protocol",
		RunE:  run,
	}
	root.Flags().StringVar(&configPath, "config", "", "path to the base config file")
	root.Flags().StringArrayVar(&overrides, "override", nil, "additional config layer (repeatable, later wins)")
	root.Flags().StringVar(&addr, "addr", "", "bind address (defaults to config telescope_server)")
	root.Flags().BoolVar(&hootlFlag, "hootl", false, "run against the in-memory HOOTL simulator instead of real hardware")
	root.Flags().StringVar(&protocol, "protocol", "", "mount protocol: nexstar, skywatcher_serial, skywatcher_udp (defaults to config)")
	root.Flags().StringVar(&serialPort, "serial-port", "", "serial device path (defaults to config)")
	root.Flags().StringVar(&udpAddr, "udp-addr", "", "host:port for skywatcher_udp")
	root.Flags().Float64Var(&maxRateDeg, "max-rate", 4.0, "maximum slew rate in degrees/second, for Sky-Watcher adapters")

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
		return fmt.Errorf("bridge: loading config: %w", err)
	}

	bindAddr := addr
	if bindAddr == "" {
		bindAddr = cfg.TelescopeServer
	}

	useHootl := hootlFlag || cfg.HOOTL
	mountProtocol := protocol
	if mountProtocol == "" {
		mountProtocol = cfg.TelescopeProtocol
	}
	port := serialPort
	if port == "" {
		port = cfg.SerialPort
	}

	m, err := openMount(useHootl, mountProtocol, cfg.MountMode, port, udpAddr, maxRateDeg)
	if err != nil {
		return fmt.Errorf("bridge: opening mount adapter: %w", err)
	}
	defer m.Close()

	srv := rpc.NewServer(bindAddr, m, entry)
	entry.WithField("addr", bindAddr).WithField("protocol", mountProtocol).WithField("hootl", useHootl).Info("bridge listening")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	select {
	case <-ctx.Done():
		entry.Info("shutting down")
		srv.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// openMount selects the mount.Mount implementation per the resolved
// configuration: HOOTL when requested, otherwise the
// adapter named by protocol. mountMode only matters for the Sky-Watcher
// adapters, which cannot query their own frame over the wire; NexStar and
// HOOTL report their frame themselves and ignore it.
func openMount(useHootl bool, protocol, mountMode, serialPort, udp string, maxRate float64) (mount.Mount, error) {
	if useHootl {
		return hootl.New(hootl.DefaultConfig()), nil
	}
	switch protocol {
	case "nexstar":
		return nexstar.Open(serialPort)
	case "skywatcher_serial":
		frame, err := resolveFrame(mountMode)
		if err != nil {
			return nil, err
		}
		return skywatcher.OpenSerial(serialPort, maxRate, frame)
	case "skywatcher_udp":
		frame, err := resolveFrame(mountMode)
		if err != nil {
			return nil, err
		}
		return skywatcher.DialUDP(udp, maxRate, frame)
	default:
		return nil, fmt.Errorf("unknown telescope_protocol %q", protocol)
	}
}

// resolveFrame maps the mount_mode config value to a mount.FrameKind,
// defaulting to equatorial to preserve prior behavior when unset.
func resolveFrame(mode string) (mount.FrameKind, error) {
	switch mode {
	case "", "equatorial":
		return mount.FrameEquatorial, nil
	case "altaz":
		return mount.FrameAltAz, nil
	default:
		return 0, fmt.Errorf("unknown mount_mode %q", mode)
	}
}
