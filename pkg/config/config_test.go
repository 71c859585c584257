package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type validator interface {
	Validate() error
}

func validResilience() ResilienceConfig {
	return ResilienceConfig{
		Retry:          RetryConfig{MaxAttempts: 3, InitialBackoff: 10 * time.Millisecond},
		CircuitBreaker: CircuitBreakerConfig{ConsecutiveFailures: 5, ErrorRatePercent: 50, OpenTimeout: time.Second},
	}
}

func Test_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     validator
		wantErr string
	}{
		{"pprof disabled without address", &PProfConfig{}, ""},
		{"pprof enabled without address", &PProfConfig{Enabled: true}, "pprof is enabled but address is not configured"},
		{"pprof enabled with bad address", &PProfConfig{Enabled: true, Addr: "localhost"}, `invalid pprof address "localhost": address localhost: missing port in address`},
		{"pprof enabled", &PProfConfig{Enabled: true, Addr: "localhost:6060"}, ""},
		{"shutdown missing", &ShutdownConfig{}, "shutdown timeout is not configured"},
		{"shutdown too long", &ShutdownConfig{Timeout: time.Hour}, "shutdown timeout 1h0m0s exceeds 5m0s"},
		{"shutdown", &ShutdownConfig{Timeout: 10 * time.Second}, ""},
		{"store empty driver", &StoreConfig{}, "store driver is not configured"},
		{"store redis", &StoreConfig{Driver: StoreDriverRedis}, ""},
		{"database mysql url", &DatabaseConfig{URL: "mysql://u:p@db/beers", Timeout: time.Second}, "database URL must start with 'postgres://': mysql://****@db/beers"},
		{"redis negative db", &RedisConfig{Addr: "localhost:6379", DB: -1, Timeout: time.Second}, "invalid redis db index: -1"},
		{"nats disabled", &NATSConfig{}, ""},
		{"nats without stream", &NATSConfig{Enabled: true, Url: "nats://localhost:4222", Timeout: time.Second}, "nats stream is not configured"},
		{"telemetry enabled without endpoint", &TelemetryConfig{Traces: TracesConfig{Enabled: true}}, "OTel endpoint is not configured"},
		{"telemetry endpoint with scheme", &TelemetryConfig{Traces: TracesConfig{Enabled: true, SampleRatio: 1, OtlpHttp: OtlpHttpConfig{Endpoint: "http://otel:4318", Timeout: time.Second}}}, "OTel endpoint must be host:port without a scheme: http://otel:4318"},
		{"telemetry sample ratio above one", &TelemetryConfig{Traces: TracesConfig{Enabled: true, SampleRatio: 1.5, OtlpHttp: OtlpHttpConfig{Endpoint: "otel:4318", Timeout: time.Second}}}, "traces sample ratio must be in (0, 1]: 1.5"},
		{"telemetry", &TelemetryConfig{Traces: TracesConfig{Enabled: true, SampleRatio: 0.25, OtlpHttp: OtlpHttpConfig{Endpoint: "otel:4318", Timeout: time.Second}}}, ""},
		{"log level", &LogConfig{Level: "trace"}, "unsupported log level: trace"},
		{"log format", &LogConfig{Level: "info", Format: "logfmt"}, "unsupported log format: logfmt"},
		{"log text", &LogConfig{Level: "debug", Format: LogFormatText}, ""},
		{"grpc client without address", &GrpcClientConfig{Timeout: time.Second, Resilience: validResilience()}, "gRPC address is not configured"},
		{"grpc client multiline user agent", &GrpcClientConfig{Addr: "localhost:9090", Timeout: time.Second, UserAgent: "a\nb", Resilience: validResilience()}, "gRPC user agent must be a single line"},
		{"grpc client", &GrpcClientConfig{Addr: "localhost:9090", Timeout: time.Second, Resilience: validResilience()}, ""},
		{"resilience error rate", &ResilienceConfig{
			Retry:          RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond},
			CircuitBreaker: CircuitBreakerConfig{ConsecutiveFailures: 1, ErrorRatePercent: 101, OpenTimeout: time.Second},
		}, "circuitbreaker.errorratepercent must be between 0 and 100"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// when
			err := tc.cfg.Validate()
			// then
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.wantErr)
			}
		})
	}
}

func Test_MaskURL(t *testing.T) {
	testCases := []struct {
		url  string
		want string
	}{
		{"", "<not configured>"},
		{"postgres://user:secret@db:5432/beers", "postgres://****@db:5432/beers"},
		{"postgres://db:5432/beers", "postgres://db:5432/beers"},
	}
	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.want, MaskURL(tc.url))
		})
	}
}
