package config

import (
	"fmt"
	"strings"
	"time"
)

type TelemetryConfig struct {
	Traces TracesConfig `koanf:"traces"`
}

// TracesConfig controls span export. SampleRatio is the share of root traces kept; child spans follow their parent.
type TracesConfig struct {
	Enabled     bool           `koanf:"enabled"`
	SampleRatio float64        `koanf:"sampleratio"`
	OtlpHttp    OtlpHttpConfig `koanf:"otlphttp"`
}

// OtlpHttpConfig points at the collector. Endpoint is host:port, the exporter adds the scheme.
type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

func (c *TelemetryConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Telemetry ---\n")
	if !c.Traces.Enabled {
		b.WriteString("  traces: disabled\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("  traces.sampleratio: %g\n", c.Traces.SampleRatio))
	b.WriteString(fmt.Sprintf("  traces.otlphttp.endpoint: %s (insecure: %t)\n", c.Traces.OtlpHttp.Endpoint, c.Traces.OtlpHttp.Insecure))
	b.WriteString(fmt.Sprintf("  traces.otlphttp.timeout: %v\n", c.Traces.OtlpHttp.Timeout))
	return b.String()
}

func (c *TelemetryConfig) Validate() error {
	if !c.Traces.Enabled {
		return nil
	}
	endpoint := c.Traces.OtlpHttp.Endpoint
	if endpoint == "" {
		return fmt.Errorf("OTel endpoint is not configured")
	}
	if strings.Contains(endpoint, "://") {
		return fmt.Errorf("OTel endpoint must be host:port without a scheme: %s", endpoint)
	}
	if c.Traces.OtlpHttp.Timeout <= 0 {
		return fmt.Errorf("telemetry timeout must be greater than 0")
	}
	if c.Traces.SampleRatio <= 0 || c.Traces.SampleRatio > 1 {
		return fmt.Errorf("traces sample ratio must be in (0, 1]: %g", c.Traces.SampleRatio)
	}
	return nil
}
