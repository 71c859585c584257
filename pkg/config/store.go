package config

import (
	"fmt"
	"strings"
)

// Supported beer store drivers.
const (
	StoreDriverMemory   = "memory"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverRedis    = "redis"
)

type StoreConfig struct {
	Driver string `koanf:"driver"`
}

// String returns a string representation of the store configuration.
func (c *StoreConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Store ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	return b.String()
}

func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case StoreDriverMemory, StoreDriverPostgres, StoreDriverSQLite, StoreDriverRedis:
		return nil
	case "":
		return fmt.Errorf("store driver is not configured")
	default:
		return fmt.Errorf("unsupported store driver: %s", c.Driver)
	}
}
