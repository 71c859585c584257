// Package interceptors provides the unary client interceptors used to call the beer stock gRPC API:
// per-attempt timeout, retry with exponential backoff and a circuit breaker.
package interceptors

import (
	"context"
	"slices"
	"time"

	"github.com/abgdnv/beerstock/pkg/config"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/retry"
	"github.com/sony/gobreaker/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	defaultBreakerName = "beerstock-cb"
	defaultOpenTimeout = 5 * time.Second
	halfOpenRequests   = 3
)

// RetryableCodes are retried by NewRetryInterceptor.
// Aborted is a lost optimistic lock on the server: nothing was written, so a retry re-reads fresh state.
var RetryableCodes = []codes.Code{codes.Unavailable, codes.ResourceExhausted, codes.Aborted}

// failureCodes count against the circuit breaker. Domain outcomes such as NotFound,
// FailedPrecondition or Aborted say nothing about the health of the server.
var failureCodes = []codes.Code{codes.Unavailable, codes.ResourceExhausted, codes.Internal, codes.DeadlineExceeded}

// NewRetryInterceptor creates a gRPC unary client interceptor with retry logic.
func NewRetryInterceptor(cfg config.RetryConfig) grpc.UnaryClientInterceptor {
	return retry.UnaryClientInterceptor(
		retry.WithCodes(RetryableCodes...),
		retry.WithMax(cfg.MaxAttempts),
		retry.WithBackoff(retry.BackoffExponential(cfg.InitialBackoff)),
	)
}

// UnaryCircuitBreakerInterceptor returns a gRPC unary client interceptor that runs every call through cb.
func UnaryCircuitBreakerInterceptor[T any](cb *gobreaker.CircuitBreaker[T]) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		// the reply is filled by the invoker, only the error matters to the breaker
		var zero T
		_, err := cb.Execute(func() (T, error) {
			return zero, invoker(ctx, method, req, reply, cc, opts...)
		})
		return err
	}
}

// NewCircuitBreaker returns an interceptor guarded by a breaker built from cfg.
// The breaker opens after more than cfg.ConsecutiveFailures consecutive failures,
// or when the failure rate exceeds cfg.ErrorRatePercent once enough calls were seen.
func NewCircuitBreaker(cfg config.CircuitBreakerConfig) grpc.UnaryClientInterceptor {
	name := cfg.Name
	if name == "" {
		name = defaultBreakerName
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:         name,
		MaxRequests:  halfOpenRequests,
		Timeout:      openTimeout,
		ReadyToTrip:  readyToTrip(cfg),
		IsSuccessful: isSuccessful,
	})
	return UnaryCircuitBreakerInterceptor(breaker)
}

func readyToTrip(cfg config.CircuitBreakerConfig) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures > cfg.ConsecutiveFailures {
			return true
		}
		total := counts.TotalSuccesses + counts.TotalFailures
		if total <= cfg.ConsecutiveFailures {
			return false
		}
		return float64(counts.TotalFailures)/float64(total)*100 > float64(cfg.ErrorRatePercent)
	}
}

// isSuccessful reports whether err leaves the breaker's view of the server healthy.
// Errors without a gRPC status are failures.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	return !slices.Contains(failureCodes, st.Code())
}
