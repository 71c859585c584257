// Package watcher consumes stock change events from JetStream and reports beers running low on stock.
package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/abgdnv/beerstock/pkg/config"
	"github.com/abgdnv/beerstock/pkg/messaging/events"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// LowStockAlert describes a beer whose quantity dropped to or below the threshold.
type LowStockAlert struct {
	BeerID   int64
	Quantity int
	Max      int
	At       time.Time
}

// Notifier delivers low stock alerts.
type Notifier interface {
	LowStock(ctx context.Context, alert LowStockAlert) error
}

// LogNotifier writes alerts to the log.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) LowStock(ctx context.Context, alert LowStockAlert) error {
	n.Logger.WarnContext(ctx, "Beer stock is running low",
		slog.Int64("beer_id", alert.BeerID),
		slog.Int("quantity", alert.Quantity),
		slog.Int("max", alert.Max))
	return nil
}

// ackableMsg is the part of jetstream.Msg the handler needs.
type ackableMsg interface {
	Data() []byte
	Subject() string
	Ack() error
	Nak() error
}

// Watcher decides which stock changes are worth an alert.
type Watcher struct {
	thresholdPercent int
	notifier         Notifier
	logger           *slog.Logger
	tracer           trace.Tracer
	alerts           metric.Int64Counter
}

// New creates a Watcher alerting when quantity*100 <= max*thresholdPercent.
func New(thresholdPercent int, notifier Notifier, logger *slog.Logger) *Watcher {
	alerts, err := otel.Meter("beerstock/watcher").Int64Counter("beer_low_stock_alerts",
		metric.WithDescription("Total number of low stock alerts raised"))
	if err != nil {
		panic(fmt.Sprintf("failed to create beer_low_stock_alerts counter: %v", err))
	}
	return &Watcher{
		thresholdPercent: thresholdPercent,
		notifier:         notifier,
		logger:           logger,
		tracer:           otel.Tracer("beerstock/watcher"),
		alerts:           alerts,
	}
}

// IsLow reports whether quantity is at or below the threshold share of maxStock.
func (w *Watcher) IsLow(quantity, maxStock int) bool {
	return quantity*100 <= maxStock*w.thresholdPercent
}

// Start creates the durable consumer and runs the workers until ctx is done.
func (w *Watcher) Start(ctx context.Context, js jetstream.JetStream, subscriberCfg config.SubscriberConfig) error {
	cfg := jetstream.ConsumerConfig{
		FilterSubject: subscriberCfg.Subject,
		Durable:       subscriberCfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
	}
	consumer, err := js.CreateOrUpdateConsumer(ctx, subscriberCfg.Stream, cfg)
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", subscriberCfg.Consumer, err)
	}
	g, gCtx := errgroup.WithContext(ctx)
	for range subscriberCfg.Workers {
		g.Go(func() error {
			return w.runWorker(gCtx, consumer, subscriberCfg)
		})
	}
	return g.Wait()
}

func (w *Watcher) runWorker(ctx context.Context, consumer jetstream.Consumer, cfg config.SubscriberConfig) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			batch, err := consumer.Fetch(cfg.Batch, jetstream.FetchMaxWait(cfg.Timeout))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) {
					continue
				}
				w.logger.ErrorContext(ctx, "failed to fetch messages", slog.Any("error", err))
				time.Sleep(cfg.Interval)
				continue
			}
			for msg := range batch.Messages() {
				w.handleMessage(ctx, msg)
			}
		}
	}
}

// handleMessage acks processed events and naks the ones that could not be decoded or delivered.
func (w *Watcher) handleMessage(ctx context.Context, msg ackableMsg) {
	if msg == nil {
		w.logger.ErrorContext(ctx, "received nil message")
		return
	}
	var event events.StockChangedEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		w.logger.ErrorContext(ctx, "failed to unmarshal message", slog.Any("error", err), slog.String("subject", msg.Subject()))
		w.nak(ctx, msg)
		return
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(event.Carrier))
	ctx, span := w.tracer.Start(ctx, "watcher.handleStockChanged",
		trace.WithAttributes(attribute.Int64("beer.id", event.BeerID)))
	defer span.End()

	w.logger.DebugContext(ctx, "received stock changed event",
		slog.Int64("beer_id", event.BeerID),
		slog.String("operation", event.Operation),
		slog.Int("quantity", event.Quantity))

	if event.Operation == events.OperationDecrement && w.IsLow(event.Quantity, event.Max) {
		alert := LowStockAlert{BeerID: event.BeerID, Quantity: event.Quantity, Max: event.Max, At: event.OccurredAt}
		if err := w.notifier.LowStock(ctx, alert); err != nil {
			w.logger.ErrorContext(ctx, "failed to deliver low stock alert", slog.Any("error", err))
			w.nak(ctx, msg)
			return
		}
		w.alerts.Add(ctx, 1)
	}

	if err := msg.Ack(); err != nil {
		w.logger.ErrorContext(ctx, "failed to ack message", slog.Any("error", err))
	}
}

func (w *Watcher) nak(ctx context.Context, msg ackableMsg) {
	if err := msg.Nak(); err != nil {
		w.logger.ErrorContext(ctx, "failed to nack message", slog.Any("error", err))
	}
}
