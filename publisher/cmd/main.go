package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lai/breadcrumbs/config"
	"github.com/lai/breadcrumbs/observability"
	"github.com/lai/breadcrumbs/publisher/service"
	"github.com/lai/breadcrumbs/stream"
	"github.com/lai/breadcrumbs/vehicles"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		slog.Warn("load .env failed", "error", err)
	}
	logger := observability.NewLogger(config.Getenv("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	brokers := config.GetenvList("KAFKA_BROKERS", "localhost:9092")
	topic := config.Getenv("KAFKA_TOPIC", "breadcrumbs.raw")
	addr := config.Getenv("LISTEN_ADDR", ":8080")
	baseURL := config.Getenv("BASE_URL", "https://busdata.cs.pdx.edu/api/getBreadCrumbs?vehicle_id=")
	manifest := config.Getenv("VEHICLES_CSV", "vehicleGroupsIds.csv")
	column := config.Getenv("VEHICLES_COLUMN", vehicles.DefaultColumn)
	interval := config.GetenvDuration("PUBLISH_INTERVAL", 0)
	fetchTimeout := config.GetenvDuration("FETCH_TIMEOUT", 30*time.Second)
	redisAddr := config.Getenv("REDIS_ADDR", "")

	watcher, err := vehicles.NewWatcher(manifest, column)
	if err != nil {
		slog.Error("vehicle manifest load failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// share the reference set with the consumers
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer rdb.Close()
		store := vehicles.NewRedisStore(rdb, config.Getenv("REDIS_VEHICLES_KEY", vehicles.DefaultRedisKey))
		syncSet := func(s *vehicles.Set) {
			if err := store.Save(ctx, s); err != nil {
				slog.Error("vehicle set sync failed", "error", err)
				return
			}
			slog.Info("vehicle set synced to redis", "count", s.Len())
		}
		syncSet(watcher.Current())
		watcher.OnReload(syncSet)
	}
	go func() {
		if err := watcher.Run(ctx); err != nil {
			slog.Error("vehicle manifest watcher stopped", "error", err)
		}
	}()

	producer := stream.NewProducer(stream.ProducerConfig{Brokers: brokers, Topic: topic})
	defer producer.Close()

	publisher := service.NewPublisher(service.NewFetcher(baseURL, fetchTimeout), producer, watcher.Current)
	go runCycles(ctx, publisher, interval)

	mux := http.NewServeMux()
	mux.Handle("/breadcrumbs", service.NewHandler(producer))
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		slog.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		srv.Shutdown(shutdownCtx)
		close(done)
	}()

	slog.Info("publisher service listening", "addr", addr, "topic", topic, "vehicles", watcher.Current().Len())
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("shutdown complete")
}

// runCycles publishes once, then every interval. A zero interval means once.
func runCycles(ctx context.Context, p *service.Publisher, interval time.Duration) {
	cycle := func() {
		if _, err := p.PublishAll(ctx); err != nil && ctx.Err() == nil {
			slog.Error("publish cycle failed", "error", err)
		}
	}
	cycle()
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle()
		}
	}
}
