package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/abgdnv/beerstock/internal/config"
	"github.com/abgdnv/beerstock/internal/service"
	"github.com/abgdnv/beerstock/internal/store"
	grpcImpl "github.com/abgdnv/beerstock/internal/transport/grpc"
	pkgconfig "github.com/abgdnv/beerstock/pkg/config"
	"github.com/abgdnv/beerstock/pkg/messaging"
	"github.com/abgdnv/beerstock/pkg/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_SetupStore(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     func(c *config.Config)
		wantErr string
	}{
		{
			name: "memory",
			cfg:  func(c *config.Config) { c.Store.Driver = pkgconfig.StoreDriverMemory },
		},
		{
			name: "sqlite in memory",
			cfg: func(c *config.Config) {
				c.Store.Driver = pkgconfig.StoreDriverSQLite
				c.SQLite.DSN = ":memory:"
			},
		},
		{
			name:    "unsupported driver",
			cfg:     func(c *config.Config) { c.Store.Driver = "mongo" },
			wantErr: "unsupported store driver: mongo",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// given
			var cfg config.Config
			tc.cfg(&cfg)
			// when
			beerStore, closeFn, err := SetupStore(context.Background(), &cfg, discardLogger())
			// then
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			defer closeFn()
			saved, err := beerStore.Save(context.Background(), store.Beer{Name: "Brahma", Brand: "Ambev", Max: 10, Type: store.Lager})
			require.NoError(t, err)
			assert.NotZero(t, saved.ID)
		})
	}
}

func Test_SetupPublisher_Disabled(t *testing.T) {
	// when
	publisher, closeFn, err := SetupPublisher(context.Background(), pkgconfig.NATSConfig{}, discardLogger())
	// then
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, messaging.NoopPublisher{}, publisher)
}

func Test_SetupHttpHandler_Routes(t *testing.T) {
	// given
	metrics, err := telemetry.NewMeterProvider(serviceName)
	require.NoError(t, err)
	t.Cleanup(func() { _ = metrics.Shutdown(context.Background()) })
	deps := SetupDependencies(store.NewInMemoryStore(), messaging.NoopPublisher{}, discardLogger(), metrics.Handler)
	handler := SetupHttpHandler(deps)

	// when
	body := bytes.NewBufferString(`{"name":"Brahma","brand":"Ambev","max":50,"quantity":10,"type":"LAGER"}`)
	created := httptest.NewRecorder()
	handler.ServeHTTP(created, httptest.NewRequest(http.MethodPost, "/api/v1/beers", body))

	found := httptest.NewRecorder()
	handler.ServeHTTP(found, httptest.NewRequest(http.MethodGet, "/api/v1/beers/Brahma", nil))

	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	scrape := httptest.NewRecorder()
	handler.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// then
	assert.Equal(t, http.StatusCreated, created.Code)
	assert.Equal(t, http.StatusOK, found.Code)
	assert.Contains(t, found.Body.String(), `"name":"Brahma"`)
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Equal(t, http.StatusOK, scrape.Code)
	assert.Contains(t, scrape.Body.String(), "beer_stock_operations")
}

func Test_SetupHttpServer(t *testing.T) {
	// given
	cfg := &config.Config{}
	cfg.HTTPServer.Port = 8181
	cfg.HTTPServer.MaxHeaderBytes = 1 << 20
	deps := SetupDependencies(store.NewInMemoryStore(), messaging.NoopPublisher{}, discardLogger(), nil)
	// when
	srv := SetupHttpServer(deps, cfg)
	// then
	assert.Equal(t, ":8181", srv.Addr)
	assert.Equal(t, 1<<20, srv.MaxHeaderBytes)
}

func Test_SetupGrpcServer(t *testing.T) {
	// given
	deps := SetupDependencies(store.NewInMemoryStore(), messaging.NoopPublisher{}, discardLogger(), nil)
	grpcServer, _ := SetupGrpcServer(deps, false)
	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ctx := context.Background()

	// when
	healthResp, healthErr := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: grpcImpl.ServiceName})
	client := grpcImpl.NewClient(conn)
	created, createErr := client.Create(ctx, service.BeerCreateDto{Name: "Brahma", Brand: "Ambev", Max: 50, Quantity: 10, Type: "LAGER"})

	// then
	require.NoError(t, healthErr)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, healthResp.Status)
	require.NoError(t, createErr)
	assert.Equal(t, "Brahma", created.Name)
}
