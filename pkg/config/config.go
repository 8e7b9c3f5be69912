// Package config implements layered YAML configuration: a
// built-in default, overlaid by a user file, overlaid by zero or more
// repeatable --override file flags (later wins per key), using viper for
// layered configuration loading.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Location is a named observing site.
type Location struct {
	LatDegrees float64 `mapstructure:"lat_degrees"`
	LonDegrees float64 `mapstructure:"lon_degrees"`
	AltMeters float64 `mapstructure:"alt_meters"`
}

// Gains holds the controller's PID coefficients.
type Gains struct {
	Kp float64 `mapstructure:"kp"`
	Ki float64 `mapstructure:"ki"`
	Kd float64 `mapstructure:"kd"`
}

// Config is the complete, resolved application configuration.
type Config struct {
	// Locations is the set of named observing sites; Location selects the
	// active one.
	Locations map[string]Location `mapstructure:"locations"`
	Location string `mapstructure:"location"`

	// Landmark names the default alignment landmark, resolved by the
	// tracker at startup.
	Landmark string `mapstructure:"landmark"`

	Gains Gains `mapstructure:"gains"`

	// HOOTL runs the bridge against the in-memory simulator instead of a
	// real mount adapter.
	HOOTL bool `mapstructure:"hootl"`

	// TelescopeServer is the bridge's host:port, used by the tracker's RPC
	// client.
	TelescopeServer string `mapstructure:"telescope_server"`

	// TelescopeProtocol selects the bridge's mount adapter: "nexstar",
	// "skywatcher_serial", or "skywatcher_udp".
	TelescopeProtocol string `mapstructure:"telescope_protocol"`

	// MountMode overrides the adapter's native frame when ambiguous
	// ("altaz" or "equatorial"); normally the adapter reports this itself.
	// Only the Sky-Watcher serial and UDP adapters consult it, since
	// NexStar and HOOTL always know their own frame.
	MountMode string `mapstructure:"mount_mode"`

	// StarCatalogURL is the HTTP name-resolver used for star-landmark
	// alignment. Required only when Landmark names a "star:" target.
	StarCatalogURL string `mapstructure:"star_catalog_url"`

	// SBS1Servers lists host:port ADS-B/ephemeris feed addresses the
	// tracker's ingest tasks connect to.
	SBS1Servers []string `mapstructure:"sbs1_servers"`

	// TLEFiles lists two-line-element files the ephemeris binary serves.
	TLEFiles []string `mapstructure:"tle_files"`

	// SerialPort is the device path for serial-transport mount adapters.
	SerialPort string `mapstructure:"serial_port"`
}

// defaults populates v with the built-in default layer.
func defaults(v *viper.Viper) {
	v.SetDefault("location", "home")
	v.SetDefault("locations", map[string]interface{}{
 "home": map[string]interface{}{"lat_degrees": 38.879084, "lon_degrees": -77.036531, "alt_meters": 18.0},
	})
	v.SetDefault("landmark", "")
	v.SetDefault("gains.kp", 0.8)
	v.SetDefault("gains.ki", 0.05)
	v.SetDefault("gains.kd", 0.1)
	v.SetDefault("hootl", false)
	v.SetDefault("telescope_server", "127.0.0.1:45345")
	v.SetDefault("telescope_protocol", "nexstar")
	v.SetDefault("mount_mode", "")
	v.SetDefault("star_catalog_url", "")
	v.SetDefault("sbs1_servers", []string{})
	v.SetDefault("tle_files", []string{})
	v.SetDefault("serial_port", "/dev/ttyUSB0")
}

// Load resolves configuration by layering, in increasing priority: the
// built-in defaults, userFile (if non-empty), then each path in
// overrideFiles in order (later files win per key). Any named file that
// cannot be parsed is a Configuration-class error and aborts immediately;
// a missing userFile is tolerated (falls through to
// defaults), but a missing --override file is not, since the operator
// explicitly named it.
func Load(userFile string, overrideFiles []string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	defaults(v)

	if userFile != "" {
 v.SetConfigFile(userFile)
 if err := v.ReadInConfig(); err != nil {
 if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
 return nil, fmt.Errorf("config: reading %s: %w", userFile, err)
 }
 }
	}

	for _, path := range overrideFiles {
 layer := viper.New()
 layer.SetConfigType("yaml")
 layer.SetConfigFile(path)
 if err := layer.ReadInConfig(); err != nil {
 return nil, fmt.Errorf("config: reading override %s: %w", path, err)
 }
 for _, key := range layer.AllKeys() {
 v.Set(key, layer.Get(key))
 }
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
 return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.validate(); err != nil {
 return nil, err
	}
	return &cfg, nil
}

// validate checks cross-field invariants that a type-correct but
// nonsensical config could still violate.
func (c *Config) validate() error {
	if _, ok := c.Locations[c.Location]; !ok {
 return fmt.Errorf("config: location %q is not defined in locations", c.Location)
	}
	switch c.TelescopeProtocol {
	case "nexstar", "skywatcher_serial", "skywatcher_udp":
	default:
 return fmt.Errorf("config: unknown telescope_protocol %q", c.TelescopeProtocol)
	}
	switch c.MountMode {
	case "", "altaz", "equatorial":
	default:
 return fmt.Errorf("config: unknown mount_mode %q", c.MountMode)
	}
	return nil
}

// ActiveLocation returns the currently selected Location.
func (c *Config) ActiveLocation() Location {
	return c.Locations[c.Location]
}
