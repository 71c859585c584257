package config

import (
	"fmt"
	"strings"
	"time"
)

// GrpcClientConfig configures a client of the beer stock gRPC API.
// Timeout bounds each attempt, so a call can take up to Timeout times the retry attempts.
type GrpcClientConfig struct {
	Addr       string           `koanf:"addr"`
	Timeout    time.Duration    `koanf:"timeout"`
	UserAgent  string           `koanf:"useragent"`
	Resilience ResilienceConfig `koanf:"resilience"`
}

// String returns a string representation of the gRPC client configuration.
func (c *GrpcClientConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- gRPC Client ---\n")
	b.WriteString(fmt.Sprintf("  addr: %s\n", c.Addr))
	b.WriteString(fmt.Sprintf("  timeout: %s per attempt\n", c.Timeout))
	if c.UserAgent != "" {
		b.WriteString(fmt.Sprintf("  useragent: %s\n", c.UserAgent))
	}
	b.WriteString(c.Resilience.String())
	return b.String()
}

func (c *GrpcClientConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("gRPC address is not configured")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("gRPC timeout is not configured")
	}
	if strings.ContainsAny(c.UserAgent, "\r\n") {
		return fmt.Errorf("gRPC user agent must be a single line")
	}
	return c.Resilience.Validate()
}
