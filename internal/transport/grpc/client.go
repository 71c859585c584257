package grpc

import (
	"context"
	"fmt"

	"github.com/abgdnv/beerstock/internal/service"
	"github.com/abgdnv/beerstock/pkg/client/grpc/interceptors"
	"github.com/abgdnv/beerstock/pkg/config"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is a typed client of the beer stock gRPC service.
// Failures are returned as gRPC status errors.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient wraps an existing connection.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// Dial creates a connection to cfg.Addr with timeout, retry and circuit breaker interceptors.
// The caller owns the returned connection.
func Dial(cfg config.GrpcClientConfig, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithChainUnaryInterceptor(
			interceptors.NewRetryInterceptor(cfg.Resilience.Retry),
			interceptors.NewCircuitBreaker(cfg.Resilience.CircuitBreaker),
			interceptors.UnaryClientTimeoutInterceptor(cfg.Timeout),
		),
	}
	if cfg.UserAgent != "" {
		base = append(base, grpc.WithUserAgent(cfg.UserAgent))
	}
	conn, err := grpc.NewClient(cfg.Addr, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client for %s: %w", cfg.Addr, err)
	}
	return conn, nil
}

func (c *Client) Create(ctx context.Context, beer service.BeerCreateDto) (*service.BeerDto, error) {
	req, err := toStruct(beer)
	if err != nil {
		return nil, err
	}
	return c.invokeBeer(ctx, "Create", req)
}

func (c *Client) FindByName(ctx context.Context, name string) (*service.BeerDto, error) {
	return c.invokeBeer(ctx, "FindByName", wrapperspb.String(name))
}

func (c *Client) FindByID(ctx context.Context, id int64) (*service.BeerDto, error) {
	return c.invokeBeer(ctx, "FindByID", wrapperspb.Int64(id))
}

func (c *Client) ListAll(ctx context.Context) ([]service.BeerDto, error) {
	out := new(structpb.ListValue)
	if err := c.conn.Invoke(ctx, fullMethod("ListAll"), &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return listToBeers(out)
}

func (c *Client) DeleteByID(ctx context.Context, id int64) error {
	return c.conn.Invoke(ctx, fullMethod("DeleteByID"), wrapperspb.Int64(id), new(emptypb.Empty))
}

func (c *Client) Increment(ctx context.Context, id int64, amount int) (*service.BeerDto, error) {
	return c.changeStock(ctx, "Increment", id, amount)
}

func (c *Client) Decrement(ctx context.Context, id int64, amount int) (*service.BeerDto, error) {
	return c.changeStock(ctx, "Decrement", id, amount)
}

func (c *Client) changeStock(ctx context.Context, method string, id int64, amount int) (*service.BeerDto, error) {
	req, err := toStruct(stockRequest{ID: id, Quantity: amount})
	if err != nil {
		return nil, err
	}
	return c.invokeBeer(ctx, method, req)
}

func (c *Client) invokeBeer(ctx context.Context, method string, req any) (*service.BeerDto, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, out); err != nil {
		return nil, err
	}
	return decodeBeer(out)
}
