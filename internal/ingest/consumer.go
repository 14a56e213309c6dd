// Package ingest consumes access-log records published to RabbitMQ by
// gate controllers and other producers that cannot reach the HTTP API.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Portcullis/server/internal/metrics"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/service"
	"github.com/BrandonDHaskell/Portcullis/server/internal/portcullis/types"
)

// ErrMalformed marks a message that can never be processed.
var ErrMalformed = errors.New("ingest: malformed message")

// Recorder is the slice of AccessLogService the consumer needs.
type Recorder interface {
	Record(ctx context.Context, req types.RecordAccessLogRequest, source string) (types.AccessLog, error)
}

type Config struct {
	URL                string
	Queue              string
	DeadLetterExchange string
	Prefetch           int
}

type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	cfg     Config
	rec     Recorder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Dial connects and declares the durable queue, its dead-letter exchange
// and the queue that collects rejected messages.
func Dial(cfg Config, rec Recorder, m *metrics.Metrics, logger *zap.Logger) (*Consumer, error) {
	if cfg.Queue == "" {
		cfg.Queue = "portcullis.access_logs"
	}
	if cfg.DeadLetterExchange == "" {
		cfg.DeadLetterExchange = "portcullis.dlx"
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 32
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ingest: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ingest: channel: %w", err)
	}

	c := &Consumer{conn: conn, ch: ch, cfg: cfg, rec: rec, metrics: m, logger: logger}
	if err := c.declare(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Consumer) declare() error {
	if err := c.ch.ExchangeDeclare(c.cfg.DeadLetterExchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("ingest: declare dlx: %w", err)
	}
	dead := c.cfg.Queue + ".dead"
	if _, err := c.ch.QueueDeclare(dead, true, false, false, false, nil); err != nil {
		return fmt.Errorf("ingest: declare %s: %w", dead, err)
	}
	if err := c.ch.QueueBind(dead, "", c.cfg.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("ingest: bind %s: %w", dead, err)
	}

	args := amqp.Table{"x-dead-letter-exchange": c.cfg.DeadLetterExchange}
	if _, err := c.ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args); err != nil {
		return fmt.Errorf("ingest: declare %s: %w", c.cfg.Queue, err)
	}
	return c.ch.Qos(c.cfg.Prefetch, 0, false)
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, "portcullis-server", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("ingest: consume: %w", err)
	}

	c.logger.Info("ingest consumer started", zap.String("queue", c.cfg.Queue))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("ingest: delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	err := Process(ctx, c.rec, d.Body)
	switch {
	case err == nil:
		c.metrics.IngestMessage("ok")
		_ = d.Ack(false)
	case errors.Is(err, ErrMalformed), errors.Is(err, service.ErrInvalidInput):
		c.metrics.IngestMessage("rejected")
		c.logger.Warn("ingest message rejected", zap.Error(err))
		_ = d.Nack(false, false)
	default:
		// Retry once; a second failure goes to the dead-letter queue.
		c.metrics.IngestMessage("error")
		c.logger.Error("ingest message failed", zap.Bool("redelivered", d.Redelivered), zap.Error(err))
		_ = d.Nack(false, !d.Redelivered)
	}
}

// Process decodes one message body and records it.
func Process(ctx context.Context, rec Recorder, body []byte) error {
	var req types.RecordAccessLogRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := rec.Record(ctx, req, service.SourceQueue); err != nil {
		return err
	}
	return nil
}
