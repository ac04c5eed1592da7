package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lai/breadcrumbs/config"
	"github.com/lai/breadcrumbs/notification/service"
	"github.com/lai/breadcrumbs/observability"
	"github.com/lai/breadcrumbs/stream"
)

func main() {
	if err := config.LoadDotenv(); err != nil {
		slog.Warn("load .env failed", "error", err)
	}
	slog.SetDefault(observability.NewLogger(config.Getenv("LOG_LEVEL", "info")))

	// Config from env
	kafkaBrokers := config.GetenvList("KAFKA_BROKERS", "kafka.app.svc.cluster.local:9092")
	kafkaTopic := config.Getenv("KAFKA_TOPIC", "breadcrumbs.reports")
	kafkaGroup := config.Getenv("KAFKA_GROUP", "notification-service")
	addr := config.Getenv("LISTEN_ADDR", ":8083")
	batchSize := config.GetenvInt("BATCH_SIZE", 10)
	batchTimeout := config.GetenvDuration("BATCH_TIMEOUT", 5*time.Second)
	recipients := config.GetenvList("REPORT_RECIPIENTS", "")

	// SMTP config
	smtp := service.SMTPConfig{
		Host:     config.Getenv("SMTP_HOST", "smtp.gmail.com"),
		Port:     config.GetenvInt("SMTP_PORT", 587),
		User:     config.Getenv("SMTP_USER", ""),
		Password: config.Getenv("SMTP_PASSWORD", ""),
	}
	if smtp.User == "" || smtp.Password == "" {
		slog.Error("SMTP_USER and SMTP_PASSWORD must be set")
		os.Exit(1)
	}

	notifier := service.NewNotifier(service.MailSender(smtp), recipients)

	kafkaConsumer := stream.NewConsumer(stream.ConsumerConfig{
		Brokers:      kafkaBrokers,
		Topic:        kafkaTopic,
		GroupID:      kafkaGroup,
		BatchSize:    batchSize,
		BatchTimeout: batchTimeout,
	}, notifier.HandleBatch)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumerDone := make(chan struct{})
	go func() {
		kafkaConsumer.Run(ctx)
		close(consumerDone)
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Graceful shutdown
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
		<-consumerDone
		kafkaConsumer.Close()
		close(done)
	}()

	slog.Info("notification service listening", "addr", addr, "recipients", len(recipients))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("shutdown complete")
}
