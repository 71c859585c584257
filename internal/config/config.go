package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/beerstock/pkg/config"
	"github.com/abgdnv/beerstock/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Store      config.StoreConfig      `koanf:"store"`
	Database   config.DatabaseConfig   `koanf:"database"`
	SQLite     config.SQLiteConfig     `koanf:"sqlite"`
	Redis      config.RedisConfig      `koanf:"redis"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

// Defaults returns the values used when neither the YAML file nor the environment sets a key.
// The in-memory store is the default, so a bare start needs no infrastructure.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                  8080,
		"server.maxHeaderBytes":        1 << 20,
		"server.timeout.read":          "5s",
		"server.timeout.write":         "10s",
		"server.timeout.idle":          "60s",
		"server.timeout.readHeader":    "2s",
		"grpc.port":                    "9090",
		"grpc.reflection":              false,
		"store.driver":                 config.StoreDriverMemory,
		"database.timeout":             "10s",
		"database.migrate":             true,
		"sqlite.dsn":                   "beerstock.db",
		"redis.addr":                   "localhost:6379",
		"redis.timeout":                "5s",
		"nats.enabled":                 false,
		"nats.timeout":                 "5s",
		"nats.stream":                  "BEERS",
		"telemetry.traces.sampleratio": 1.0,
		"log.level":                    "info",
		"log.format":                   config.LogFormatJSON,
		"pprof.enabled":                false,
		"pprof.addr":                   "localhost:6060",
		"shutdown.timeout":             "10s",
	}
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("\n=== beerstock configuration ===\n")
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Store.String())
	switch c.Store.Driver {
	case config.StoreDriverPostgres:
		b.WriteString(c.Database.String())
	case config.StoreDriverSQLite:
		b.WriteString(c.SQLite.String())
	case config.StoreDriverRedis:
		b.WriteString(c.Redis.String())
	}
	b.WriteString(c.NATS.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid.
// Only the section of the selected store driver is validated.
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.GRPC.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.validateStoreBackend(); err != nil {
		return err
	}
	if err := c.NATS.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	return c.Shutdown.Validate()
}

func (c *Config) validateStoreBackend() error {
	var err error
	switch c.Store.Driver {
	case config.StoreDriverPostgres:
		err = c.Database.Validate()
	case config.StoreDriverSQLite:
		err = c.SQLite.Validate()
	case config.StoreDriverRedis:
		err = c.Redis.Validate()
	}
	if err != nil {
		return fmt.Errorf("store driver %s: %w", c.Store.Driver, err)
	}
	return nil
}
