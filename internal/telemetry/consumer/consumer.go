// Package consumer reads auth events published by the producer package back from Kafka
// and forwards them to an EventEmitter, e.g. the OTel log emitter of a collector-facing worker.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"authledger/internal/telemetry"
)

const (
	forwardTimeout = 10 * time.Second
	readRetryDelay = time.Second
)

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        time.Second,
		CommitInterval: time.Second,
	})
}

// Consumer forwards every decodable message from reader to sink.
type Consumer struct {
	reader Reader
	sink   telemetry.EventEmitter
	logger *zap.Logger

	// retryDelay is the pause after a failed read.
	retryDelay time.Duration
}

// New returns a Consumer. A nil logger discards output.
func New(reader Reader, sink telemetry.EventEmitter, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: reader, sink: sink, logger: logger, retryDelay: readRetryDelay}
}

// Run consumes until ctx is done. Undecodable messages and sink failures are logged and
// skipped; a failed read is retried after a pause. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Warn("kafka read failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}
		event, err := DecodeMessage(msg)
		if err != nil {
			c.logger.Warn("skipping undecodable event",
				zap.Int("partition", msg.Partition), zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		fwdCtx, cancel := context.WithTimeout(ctx, forwardTimeout)
		if err := c.sink.Emit(fwdCtx, event); err != nil {
			c.logger.Warn("forward event failed", zap.String("event_type", event.Type), zap.Error(err))
		}
		cancel()
	}
}

// DecodeMessage parses a message written by producer.KafkaProducer.
func DecodeMessage(msg kafka.Message) (*telemetry.Event, error) {
	var event telemetry.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" {
		for _, h := range msg.Headers {
			if h.Key == "event_type" {
				event.Type = string(h.Value)
			}
		}
	}
	if event.Type == "" {
		return nil, errors.New("decode event: missing event_type")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = msg.Time
	}
	return &event, nil
}
