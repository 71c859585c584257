// Package e2e provides end-to-end tests for the beer stock service.
// The suite starts PostgreSQL and NATS with `testcontainers-go`, wires the application the same way
// cmd/beerstock does and serves its HTTP handler from an `httptest.Server`.
//
// Each test starts from an empty beers table. Stock events are read back from the JetStream stream.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/beerstock/internal/app"
	"github.com/abgdnv/beerstock/internal/config"
	"github.com/abgdnv/beerstock/internal/service"
	pkgconfig "github.com/abgdnv/beerstock/pkg/config"
	"github.com/abgdnv/beerstock/pkg/messaging"
	"github.com/abgdnv/beerstock/pkg/messaging/events"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcnats "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "BEERSTOCK_SKIP_INTEGRATION_TESTS"

// beersURL is the base URL of the beer stock API.
const beersURL = "/api/v1/beers"

type BeerStockE2ESuite struct {
	suite.Suite
	pgContainer   *postgres.PostgresContainer
	natsContainer *tcnats.NATSContainer
	dbPool        *pgxpool.Pool
	stream        jetstream.Stream
	closers       []app.CloseFunc
	server        *httptest.Server
	httpClient    *http.Client
	logger        *slog.Logger
	ctx           context.Context
}

func (s *BeerStockE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	var err error

	// 1. PostgreSQL
	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("beerstock"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	s.Require().NoError(err, "Failed to run PostgreSQL container")
	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	s.Require().NoError(err)

	// 2. NATS with JetStream
	s.natsContainer, err = tcnats.Run(s.ctx, "nats:2.11.6-alpine")
	s.Require().NoError(err, "Failed to run NATS container")
	natsURL, err := s.natsContainer.ConnectionString(s.ctx)
	s.Require().NoError(err)

	// 3. Application, wired like cmd/beerstock
	var cfg config.Config
	cfg.Store.Driver = pkgconfig.StoreDriverPostgres
	cfg.Database = pkgconfig.DatabaseConfig{URL: connStr, Timeout: 30 * time.Second, Migrate: true}
	cfg.NATS = pkgconfig.NATSConfig{Enabled: true, Url: natsURL, Timeout: 5 * time.Second, Stream: "BEERS"}

	beerStore, closeStore, err := app.SetupStore(s.ctx, &cfg, s.logger)
	s.Require().NoError(err, "Failed to set up postgres store")
	s.closers = append(s.closers, closeStore)

	publisher, closePublisher, err := app.SetupPublisher(s.ctx, cfg.NATS, s.logger)
	s.Require().NoError(err, "Failed to set up NATS publisher")
	s.closers = append(s.closers, closePublisher)

	deps := app.SetupDependencies(beerStore, publisher, s.logger, nil)
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
	s.httpClient = s.server.Client()

	// 4. Side connections used by the assertions
	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	s.Require().NoError(err)

	nc, err := nats.Connect(natsURL)
	s.Require().NoError(err)
	s.closers = append(s.closers, nc.Close)
	js, err := jetstream.New(nc)
	s.Require().NoError(err)
	s.stream, err = js.Stream(s.ctx, cfg.NATS.Stream)
	s.Require().NoError(err)
}

func (s *BeerStockE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	if s.natsContainer != nil {
		if err := testcontainers.TerminateContainer(s.natsContainer); err != nil {
			s.logger.Warn("Failed to terminate NATS container", "error", err)
		}
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("Failed to terminate PostgreSQL container", "error", err)
		}
	}
}

func (s *BeerStockE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE beers RESTART IDENTITY")
	s.Require().NoError(err, "Failed to truncate beers table")
}

func TestBeerStockE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping integration tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(BeerStockE2ESuite))
}

// --------------------------------------------------------------------------
// ------------------------------- helpers ----------------------------------
// --------------------------------------------------------------------------

func brahma() service.BeerCreateDto {
	return service.BeerCreateDto{Name: "Brahma", Brand: "Ambev", Max: 50, Quantity: 10, Type: "LAGER"}
}

func (s *BeerStockE2ESuite) doRequest(method, path string, payload any) ([]byte, int) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewBuffer(payloadBytes)
	}
	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err, "HTTP request failed")
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return bodyBytes, resp.StatusCode
}

func (s *BeerStockE2ESuite) doAndDecodeBeer(method, path string, payload any) (service.BeerDto, int) {
	s.T().Helper()
	bodyBytes, statusCode := s.doRequest(method, path, payload)
	var beer service.BeerDto
	if statusCode == http.StatusOK || statusCode == http.StatusCreated {
		s.Require().NoError(json.Unmarshal(bodyBytes, &beer))
	}
	return beer, statusCode
}

func (s *BeerStockE2ESuite) createBeer(payload service.BeerCreateDto) service.BeerDto {
	s.T().Helper()
	beer, statusCode := s.doAndDecodeBeer(http.MethodPost, beersURL, payload)
	s.Require().Equal(http.StatusCreated, statusCode)
	return beer
}

func (s *BeerStockE2ESuite) changeStock(id int64, operation string, quantity int) (service.BeerDto, int) {
	s.T().Helper()
	path := fmt.Sprintf("%s/%d/%s", beersURL, id, operation)
	return s.doAndDecodeBeer(http.MethodPatch, path, service.QuantityDto{Quantity: quantity})
}

// --------------------------------------------------------------------------
// ------------------------------- scenarios --------------------------------
// --------------------------------------------------------------------------

func (s *BeerStockE2ESuite) TestCreate_ThenDuplicateIsRejected() {
	// given
	created := s.createBeer(brahma())

	// when
	body, statusCode := s.doRequest(http.MethodPost, beersURL, brahma())

	// then
	s.Equal(int64(1), created.ID)
	s.Equal(http.StatusBadRequest, statusCode)
	s.JSONEq(`{"error":"Beer with name Brahma already registered in the system."}`, string(body))
}

func (s *BeerStockE2ESuite) TestFindByName_AndByID() {
	// given
	created := s.createBeer(brahma())

	// when
	byName, nameStatus := s.doAndDecodeBeer(http.MethodGet, beersURL+"/Brahma", nil)
	byID, idStatus := s.doAndDecodeBeer(http.MethodGet, fmt.Sprintf("%s/id/%d", beersURL, created.ID), nil)
	missing, missingStatus := s.doRequest(http.MethodGet, beersURL+"/Skol", nil)

	// then
	s.Equal(http.StatusOK, nameStatus)
	s.Equal(created, byName)
	s.Equal(http.StatusOK, idStatus)
	s.Equal(created, byID)
	s.Equal(http.StatusNotFound, missingStatus)
	s.JSONEq(`{"error":"Beer not found with name Skol"}`, string(missing))
}

func (s *BeerStockE2ESuite) TestListAll() {
	// given
	body, statusCode := s.doRequest(http.MethodGet, beersURL, nil)
	s.Equal(http.StatusOK, statusCode)
	s.JSONEq(`[]`, string(body))
	s.createBeer(brahma())
	skol := brahma()
	skol.Name = "Skol"
	s.createBeer(skol)

	// when
	var beers []service.BeerDto
	body, statusCode = s.doRequest(http.MethodGet, beersURL, nil)

	// then
	s.Equal(http.StatusOK, statusCode)
	s.Require().NoError(json.Unmarshal(body, &beers))
	s.Require().Len(beers, 2)
	s.Equal("Brahma", beers[0].Name)
	s.Equal("Skol", beers[1].Name)
}

func (s *BeerStockE2ESuite) TestStockChanges() {
	testCases := []struct {
		name           string
		operation      string
		quantity       int
		expectedCode   int
		expectedStock  int
		expectedStored int
	}{
		{"increment within max", "increment", 10, http.StatusOK, 20, 20},
		{"increment up to max", "increment", 40, http.StatusOK, 50, 50},
		{"increment beyond max", "increment", 41, http.StatusBadRequest, 0, 10},
		{"decrement to zero", "decrement", 10, http.StatusOK, 0, 0},
		{"decrement below zero", "decrement", 11, http.StatusBadRequest, 0, 10},
		{"quantity out of range", "increment", 101, http.StatusBadRequest, 0, 10},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			// given
			created := s.createBeer(brahma())

			// when
			beer, statusCode := s.changeStock(created.ID, tc.operation, tc.quantity)

			// then
			s.Equal(tc.expectedCode, statusCode)
			if statusCode == http.StatusOK {
				s.Equal(tc.expectedStock, beer.Quantity)
			}
			stored, _ := s.doAndDecodeBeer(http.MethodGet, fmt.Sprintf("%s/id/%d", beersURL, created.ID), nil)
			s.Equal(tc.expectedStored, stored.Quantity)
		})
	}
}

func (s *BeerStockE2ESuite) TestDelete() {
	// given
	created := s.createBeer(brahma())
	path := fmt.Sprintf("%s/%d", beersURL, created.ID)

	// when
	_, first := s.doRequest(http.MethodDelete, path, nil)
	body, second := s.doRequest(http.MethodDelete, path, nil)

	// then
	s.Equal(http.StatusNoContent, first)
	s.Equal(http.StatusNotFound, second)
	s.JSONEq(fmt.Sprintf(`{"error":"Beer not found with id %d"}`, created.ID), string(body))
}

func (s *BeerStockE2ESuite) TestStockEventsArePublished() {
	// given
	created := s.createBeer(brahma())

	// when
	_, statusCode := s.changeStock(created.ID, "decrement", 4)

	// then
	s.Require().Equal(http.StatusOK, statusCode)
	msg, err := s.stream.GetLastMsgForSubject(s.ctx, messaging.BeerStockChangedSubject)
	s.Require().NoError(err)
	var event events.StockChangedEvent
	require.NoError(s.T(), json.Unmarshal(msg.Data, &event))
	s.Equal(created.ID, event.BeerID)
	s.Equal(events.OperationDecrement, event.Operation)
	s.Equal(4, event.Delta)
	s.Equal(6, event.Quantity)

	createdMsg, err := s.stream.GetLastMsgForSubject(s.ctx, messaging.BeerCreatedSubject)
	s.Require().NoError(err)
	var createdEvent events.BeerCreatedEvent
	require.NoError(s.T(), json.Unmarshal(createdMsg.Data, &createdEvent))
	s.Equal("Brahma", createdEvent.Name)
}
