// Package stream holds the Kafka consumer and producer shared by the
// services.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// OnBatch handles one batch of messages. The batch is committed only when
// it returns nil; otherwise it is handed over again after BatchTimeout.
type OnBatch func(ctx context.Context, msgs []kafka.Message) error

// ConsumerConfig holds configuration for the Kafka consumer
type ConsumerConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	BatchSize    int
	BatchTimeout time.Duration
}

type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads messages from Kafka and hands them over in batches.
// Batches are flushed when full, when BatchTimeout passes and on shutdown.
type Consumer struct {
	reader       reader
	cfg          ConsumerConfig
	onBatch      OnBatch
	batch        []kafka.Message
	failed       bool // batch was handled and failed, stop fetching until it succeeds
	pollInterval time.Duration
}

// NewConsumer creates a consumer for the given config
func NewConsumer(cfg ConsumerConfig, onBatch OnBatch) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})
	return newConsumer(r, cfg, onBatch)
}

func newConsumer(r reader, cfg ConsumerConfig, onBatch OnBatch) *Consumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = time.Second
	}
	return &Consumer{
		reader:       r,
		cfg:          cfg,
		onBatch:      onBatch,
		batch:        make([]kafka.Message, 0, cfg.BatchSize),
		pollInterval: 100 * time.Millisecond,
	}
}

// Run consumes until ctx is cancelled, then flushes what is buffered.
func (c *Consumer) Run(ctx context.Context) {
	slog.Info("starting Kafka consumer",
		"brokers", c.cfg.Brokers,
		"topic", c.cfg.Topic,
		"group_id", c.cfg.GroupID,
	)
	timer := time.NewTimer(c.cfg.BatchTimeout)
	defer timer.Stop()

	for {
		if c.failed {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				c.flush(ctx)
				timer.Reset(c.cfg.BatchTimeout)
			}
			continue
		}

		select {
		case <-ctx.Done():
			// the batch gets a last chance on a fresh context
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			c.flush(shutdownCtx)
			cancel()
			return
		case <-timer.C:
			c.flush(ctx)
			timer.Reset(c.cfg.BatchTimeout)
		default:
			readCtx, cancel := context.WithTimeout(ctx, c.pollInterval)
			msg, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if ctx.Err() != nil {
					continue
				}
				slog.Error("fetch message failed", "error", err, "topic", c.cfg.Topic)
				continue
			}

			c.batch = append(c.batch, msg)
			if len(c.batch) >= c.cfg.BatchSize {
				c.flush(ctx)
				timer.Reset(c.cfg.BatchTimeout)
			}
		}
	}
}

// flush hands the buffered batch to onBatch and commits it on success.
func (c *Consumer) flush(ctx context.Context) {
	if len(c.batch) == 0 {
		return
	}
	if err := c.onBatch(ctx, c.batch); err != nil {
		c.failed = true
		slog.Error("batch handler failed, will retry",
			"error", err,
			"topic", c.cfg.Topic,
			"count", len(c.batch),
		)
		return
	}
	if err := c.reader.CommitMessages(ctx, c.batch...); err != nil {
		slog.Error("commit failed", "error", err, "topic", c.cfg.Topic, "count", len(c.batch))
	}
	c.failed = false
	c.batch = make([]kafka.Message, 0, c.cfg.BatchSize)
}

// Close closes the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
