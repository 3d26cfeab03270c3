// client/config.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mmp/gcs/fleet"
	"github.com/mmp/gcs/log"
	"github.com/mmp/gcs/util"
)

type Config struct {
	Server          string  `yaml:"server"`
	LogLevel        string  `yaml:"logLevel"`
	LogDir          string  `yaml:"logDir"`
	SimMode         bool    `yaml:"simMode"`
	MultiVehicleSim bool    `yaml:"multiVehicleSim"`
	FlyByFile       bool    `yaml:"flyByFile"`
	Script          string  `yaml:"script"`
	Velocity        float64 `yaml:"velocity"`
	SimType         string  `yaml:"simType"`
	Record          string  `yaml:"record"`
	TrackDB         string  `yaml:"trackDB"`

	Timeouts  TimeoutConfig  `yaml:"timeouts"`
	Intervals IntervalConfig `yaml:"intervals"`
}

type TimeoutConfig struct {
	Comms          time.Duration `yaml:"comms"`
	TrafficGeneral time.Duration `yaml:"trafficGeneral"`
	TrafficSim     time.Duration `yaml:"trafficSim"`
}

type IntervalConfig struct {
	Comms   time.Duration `yaml:"comms"`
	Traffic time.Duration `yaml:"traffic"`
	Relay   time.Duration `yaml:"relay"`
}

func DefaultConfig() Config {
	return Config{
		Server:   "ws://localhost:8082",
		LogLevel: "info",
		Velocity: 1,
		SimType:  "SITL",
		Timeouts: TimeoutConfig{
			Comms:          10 * time.Second,
			TrafficGeneral: 5 * time.Second,
			TrafficSim:     2 * time.Second,
		},
		Intervals: IntervalConfig{
			Comms:   5 * time.Second,
			Traffic: 3 * time.Second,
			Relay:   time.Second,
		},
	}
}

// LoadConfig reads a YAML configuration file; settings that it doesn't
// give keep their default values.
func LoadConfig(path string) (Config, error) {
	c := DefaultConfig()

	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	c.fillDefaults()

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	zero := func(d *time.Duration, v time.Duration) {
		if *d == 0 {
			*d = v
		}
	}
	zero(&c.Timeouts.Comms, def.Timeouts.Comms)
	zero(&c.Timeouts.TrafficGeneral, def.Timeouts.TrafficGeneral)
	zero(&c.Timeouts.TrafficSim, def.Timeouts.TrafficSim)
	zero(&c.Intervals.Comms, def.Intervals.Comms)
	zero(&c.Intervals.Traffic, def.Intervals.Traffic)
	zero(&c.Intervals.Relay, def.Intervals.Relay)
	if c.SimType == "" {
		c.SimType = def.SimType
	}
}

// Validate reports all of the problems with the configuration.
func (c Config) Validate() error {
	var e util.ErrorLogger

	if u, err := url.Parse(c.Server); err != nil {
		e.ErrorString("server: %v", err)
	} else if u.Scheme != "ws" && u.Scheme != "wss" {
		e.ErrorString("server: %q: scheme must be ws or wss", c.Server)
	}
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		e.ErrorString("logLevel: %q: unknown level", c.LogLevel)
	}
	if c.Velocity <= 0 {
		e.ErrorString("velocity: must be positive")
	}
	if c.FlyByFile && c.Script == "" {
		e.ErrorString("flyByFile: requires a script")
	}
	for _, d := range []struct {
		name string
		d    time.Duration
	}{
		{"timeouts.comms", c.Timeouts.Comms},
		{"timeouts.trafficGeneral", c.Timeouts.TrafficGeneral},
		{"timeouts.trafficSim", c.Timeouts.TrafficSim},
		{"intervals.comms", c.Intervals.Comms},
		{"intervals.traffic", c.Intervals.Traffic},
		{"intervals.relay", c.Intervals.Relay},
	} {
		if d.d < 0 {
			e.ErrorString("%s: must not be negative", d.name)
		}
	}

	return e.Err()
}

func (c Config) FleetOptions() fleet.Options {
	return fleet.Options{
		FlyByFile:         c.FlyByFile,
		SimMode:           c.SimMode,
		MultiVehicleSim:   c.MultiVehicleSim,
		CommsTimeout:      c.Timeouts.Comms,
		TrafficTimeout:    c.Timeouts.TrafficGeneral,
		SimTrafficTimeout: c.Timeouts.TrafficSim,
	}
}
