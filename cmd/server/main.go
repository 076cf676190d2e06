package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autodine/autodine/internal/config"
	"github.com/autodine/autodine/internal/ledger"
	"github.com/autodine/autodine/internal/notify"
	"github.com/autodine/autodine/internal/router"
	"github.com/autodine/autodine/internal/service"
	"github.com/autodine/autodine/internal/ws"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	taxRate, err := service.TaxRateFromPercent(cfg.GSTPercent)
	if err != nil {
		return fmt.Errorf("GST_PERCENT: %w", err)
	}

	hub := ws.NewHub()
	sinks := []service.ChangeSink{hub}
	// Broker and database deliveries run off the request path
	var workers []*service.AsyncSink

	// Kitchen alerts: always logged, published to RabbitMQ when configured
	notifiers := notify.Multi{notify.LogNotifier{}}
	if cfg.AMQPURL != "" {
		amqpNotifier, err := notify.DialAMQP(cfg.AMQPURL)
		if err != nil {
			return fmt.Errorf("connect to rabbitmq: %w", err)
		}
		defer amqpNotifier.Close()
		notifiers = append(notifiers, amqpNotifier)
		log.Println("Kitchen alerts published to RabbitMQ")
	}
	alerts := service.NewAsyncSink("alerts", notify.NewSink(notifiers, 5*time.Second), 256)
	sinks = append(sinks, alerts)
	workers = append(workers, alerts)

	// Settlement ledger
	if cfg.DatabaseURL != "" {
		pool, err := ledger.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer pool.Close()
		l := ledger.New(pool)
		if err := l.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
		archive := service.NewAsyncSink("ledger", l, 256)
		sinks = append(sinks, archive)
		workers = append(workers, archive)
		log.Println("Settlements recorded to PostgreSQL")
	}

	svc, err := service.NewOrderService(service.Options{
		TableIDs:      cfg.TableIDs,
		MaxOrders:     cfg.MaxOrders,
		MaxOrderLines: cfg.MaxOrderItems,
		TaxRate:       taxRate,
	}, sinks...)
	if err != nil {
		return fmt.Errorf("create order service: %w", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router.New(cfg, svc, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(gctx)
	})
	for _, w := range workers {
		w := w
		g.Go(func() error {
			return w.Run(gctx)
		})
	}
	g.Go(func() error {
		log.Printf("Starting server on :%s (tables %v)", cfg.Port, cfg.TableIDs)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
