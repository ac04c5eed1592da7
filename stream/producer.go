package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ProducerConfig holds configuration for the Kafka producer.
type ProducerConfig struct {
	Brokers []string
	Topic   string
	// Async returns from Publish before the broker acknowledges. Write
	// errors are then only logged by the writer.
	Async bool
}

// Producer writes JSON messages to one topic.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg ProducerConfig) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  cfg.Async,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w}
}

// Topic returns the topic the producer writes to.
func (p *Producer) Topic() string { return p.writer.Topic }

// Publish marshals v to JSON and writes it under key.
func (p *Producer) Publish(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.PublishRaw(ctx, key, data)
}

// PublishRaw writes values as they are, all under key, in one call.
func (p *Producer) PublishRaw(ctx context.Context, key string, values ...[]byte) error {
	if len(values) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(values))
	for i, v := range values {
		msgs[i] = kafka.Message{Key: []byte(key), Value: v}
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// Close flushes pending messages and closes the connection.
func (p *Producer) Close() error {
	return p.writer.Close()
}
