// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mcoap

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is the prefix of every coapd environment variable.
const EnvPrefix = "MCOAP_"

// Config holds the coapd configuration.
type Config struct {
	// CoAP listener
	Host         string        `env:"HOST"          envDefault:""`
	Port         int           `env:"PORT"          envDefault:"5683"`
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"10ms"`
	QueueSize    int           `env:"QUEUE_SIZE"    envDefault:"256"`
	BufferSize   int           `env:"BUFFER_SIZE"   envDefault:"1500"`

	// Per-client rate limiting, disabled when capacity is 0
	RateLimitCapacity int64 `env:"RATE_LIMIT_CAPACITY" envDefault:"0"`
	RateLimitRefill   int64 `env:"RATE_LIMIT_REFILL"   envDefault:"10"`
	RateLimitClients  int   `env:"RATE_LIMIT_CLIENTS"  envDefault:"10000"`

	// Observability
	MetricsPort int    `env:"METRICS_PORT" envDefault:"9090"`
	HealthPort  int    `env:"HEALTH_PORT"  envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT"   envDefault:"json"`

	// Service discovery
	MDNSEnabled  bool   `env:"MDNS_ENABLED"  envDefault:"false"`
	MDNSInstance string `env:"MDNS_INSTANCE" envDefault:"coapd"`

	// Resources
	Manifest string `env:"MANIFEST" envDefault:""`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// NewConfig parses the configuration from the environment.
func NewConfig(opts env.Options) (Config, error) {
	c := Config{}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate rejects out of range values.
func (c Config) Validate() error {
	for name, port := range map[string]int{"port": c.Port, "metrics port": c.MetricsPort, "health port": c.HealthPort} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("invalid %s %d", name, port)
		}
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive, got %d", c.QueueSize)
	}
	if c.RateLimitCapacity < 0 || c.RateLimitRefill < 0 {
		return fmt.Errorf("rate limit values must not be negative")
	}
	return nil
}
