package config

import (
	"fmt"
	"strings"
)

type SQLiteConfig struct {
	// DSN is a file path or "file::memory:?cache=shared".
	DSN string `koanf:"dsn"`
}

// String returns a string representation of the sqlite configuration.
func (c *SQLiteConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- SQLite ---\n")
	b.WriteString(fmt.Sprintf("  dsn: %s\n", c.DSN))
	return b.String()
}

func (c *SQLiteConfig) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("sqlite DSN is not configured")
	}
	return nil
}
