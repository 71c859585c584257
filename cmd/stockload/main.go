// Package main hammers a running beer stock service with concurrent decrements over gRPC
// and checks that the stock never goes below zero.
package main

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abgdnv/beerstock/internal/service"
	grpcImpl "github.com/abgdnv/beerstock/internal/transport/grpc"
	"github.com/abgdnv/beerstock/pkg/config"
	"github.com/abgdnv/beerstock/pkg/config/configloader"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "stockload"

type loadConfig struct {
	Client   config.GrpcClientConfig `koanf:"client"`
	Beer     string                  `koanf:"beer"`
	Stock    int                     `koanf:"stock"`
	Requests int                     `koanf:"requests"`
	Workers  int                     `koanf:"workers"`
}

func (c *loadConfig) Validate() error {
	if err := c.Client.Validate(); err != nil {
		return err
	}
	if c.Beer == "" {
		return fmt.Errorf("beer name is not configured")
	}
	if c.Stock < 0 || c.Stock > 100 {
		return fmt.Errorf("stock must be between 0 and 100: %d", c.Stock)
	}
	if c.Requests <= 0 || c.Workers <= 0 {
		return fmt.Errorf("requests and workers must be greater than 0")
	}
	return nil
}

func defaults() map[string]any {
	return map[string]any{
		"client.addr":      "localhost:9090",
		"client.timeout":   "2s",
		"client.useragent": serviceName,

		"client.resilience.retry.maxattempts":                  5,
		"client.resilience.retry.initialbackoff":               "20ms",
		"client.resilience.circuitbreaker.name":                "stockload-cb",
		"client.resilience.circuitbreaker.consecutivefailures": 5,
		"client.resilience.circuitbreaker.errorratepercent":    50,
		"client.resilience.circuitbreaker.opentimeout":         "5s",

		"beer":     "stockload-lager",
		"stock":    20,
		"requests": 50,
		"workers":  10,
	}
}

func main() {
	cfg, err := configloader.Load[*loadConfig](serviceName, defaults())
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	log.Printf("Configuration loaded: %v", cfg.Client.String())

	conn, err := grpcImpl.Dial(cfg.Client)
	if err != nil {
		log.Fatalf("failed to dial beer stock service: %v", err)
	}
	defer conn.Close()
	client := grpcImpl.NewClient(conn)

	ctx := context.Background()
	beer, err := prepareBeer(ctx, client, cfg)
	if err != nil {
		log.Fatalf("failed to prepare beer: %v", err)
	}

	var successCount, belowZeroCount, failCount atomic.Int32
	jobs := make(chan struct{})
	var wg sync.WaitGroup
	start := time.Now()
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				_, err := client.Decrement(ctx, beer.ID, 1)
				switch {
				case err == nil:
					successCount.Add(1)
				case status.Code(err) == codes.FailedPrecondition:
					belowZeroCount.Add(1)
				default:
					failCount.Add(1)
					log.Printf("decrement failed: %v", err)
				}
			}
		}()
	}
	for range cfg.Requests {
		jobs <- struct{}{}
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	final, err := client.FindByID(ctx, beer.ID)
	if err != nil {
		log.Fatalf("failed to read final stock: %v", err)
	}

	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("Requests:       %d in %s\n", cfg.Requests, elapsed)
	fmt.Printf("Decremented:    %d\n", successCount.Load())
	fmt.Printf("Below zero:     %d\n", belowZeroCount.Load())
	fmt.Printf("Other failures: %d\n", failCount.Load())
	fmt.Printf("Initial stock:  %d\n", cfg.Stock)
	fmt.Printf("Final stock:    %d\n", final.Quantity)
	fmt.Println(strings.Repeat("=", 40))

	if final.Quantity < 0 || int(successCount.Load()) != cfg.Stock-final.Quantity {
		log.Fatalf("stock invariant violated: %d decrements succeeded, stock went from %d to %d",
			successCount.Load(), cfg.Stock, final.Quantity)
	}
}

// prepareBeer registers the load test beer, replacing a leftover one from a previous run.
func prepareBeer(ctx context.Context, client *grpcImpl.Client, cfg *loadConfig) (*service.BeerDto, error) {
	existing, err := client.FindByName(ctx, cfg.Beer)
	switch {
	case err == nil:
		if err := client.DeleteByID(ctx, existing.ID); err != nil {
			return nil, fmt.Errorf("failed to delete leftover beer: %w", err)
		}
	case status.Code(err) != codes.NotFound:
		return nil, fmt.Errorf("failed to look up beer %s: %w", cfg.Beer, err)
	}
	return client.Create(ctx, service.BeerCreateDto{
		Name:     cfg.Beer,
		Brand:    serviceName,
		Max:      100,
		Quantity: cfg.Stock,
		Type:     "LAGER",
	})
}
