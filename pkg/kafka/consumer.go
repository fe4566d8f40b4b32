// Package kafka moves chat traffic over segmentio/kafka-go: messages arrive
// on one topic and generated replies leave on another, both as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/logger"
)

// HeaderMessageID carries the id of the chat message a record belongs to.
const HeaderMessageID = "message-id"

// Delivery is one fetched record.
type Delivery struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Time      time.Time
}

// MessageHandler processes one delivery. Returning an error leaves the
// record uncommitted.
type MessageHandler func(ctx context.Context, d Delivery) error

type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer hands records to its handler one at a time, in partition order.
type Consumer struct {
	reader     fetcher
	handler    MessageHandler
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    1e6,
		StartOffset: kafka.LastOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r fetcher, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:     r,
		handler:    handler,
		logger:     slog.Default().With("component", "kafka-consumer", "topic", topic),
		minBackoff: 100 * time.Millisecond,
		maxBackoff: 5 * time.Second,
	}
}

// Start consumes until ctx is cancelled, then closes the reader. Fetch
// errors are retried with a growing pause.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()

	backoff := c.minBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err, "retry_in", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, c.maxBackoff)
			continue
		}
		backoff = c.minBackoff
		c.dispatch(ctx, msg)
	}
}

func (c *Consumer) dispatch(ctx context.Context, msg kafka.Message) {
	d := Delivery{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   make(map[string]string, len(msg.Headers)),
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Time:      msg.Time,
	}
	for _, h := range msg.Headers {
		d.Headers[h.Key] = string(h.Value)
	}
	if id := d.Headers[HeaderMessageID]; id != "" {
		ctx = logger.WithMessageID(ctx, id)
	}
	log := logger.FromContext(ctx).With("partition", msg.Partition, "offset", msg.Offset)

	if err := c.handler(ctx, d); err != nil {
		log.Error("handler failed, record left uncommitted", "error", err)
		return
	}
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		log.Error("commit failed", "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// DecodeJSON unmarshals a record value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
