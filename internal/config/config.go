// Package config holds the runtime configuration shared by the CLI
// commands. Values come from the environment first and may be
// overridden by command line flags.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// DeviceConfig holds the connection settings for the device under test.
type DeviceConfig struct {
	// Kind selects the capability adapter ("wsrpc", "mock").
	Kind string `env:"DEVICE_KIND" envDefault:"wsrpc"`

	// Endpoint is the transport address, e.g. ws://192.168.1.1:7547/rpc.
	Endpoint string `env:"DEVICE_ENDPOINT"`

	Username string `env:"DEVICE_USERNAME"`
	Password string `env:"DEVICE_PASSWORD"`

	// Timeout bounds individual device operations.
	Timeout time.Duration `env:"DEVICE_TIMEOUT" envDefault:"30s"`
}

// Config is the full CLI configuration.
type Config struct {
	Device DeviceConfig

	// StorePath is the SQLite database holding saved subsets.
	StorePath string `env:"STORE_PATH" envDefault:"tr181.db"`

	// ReportPath is the CBOR report stream destination; empty disables
	// report capture.
	ReportPath string `env:"REPORT_PATH"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
