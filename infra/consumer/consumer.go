// Package consumer feeds reward events from a RabbitMQ queue into the rules engine.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kaushal/skillcredits/pkg/config"
	"github.com/kaushal/skillcredits/pkg/domain"
	"github.com/kaushal/skillcredits/pkg/domain/account"
	"github.com/kaushal/skillcredits/pkg/service/rewards"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	maxReconnectAttempts = 10
	handleTimeout        = 30 * time.Second
)

// Handler applies one reward event. rewards.Service satisfies it.
type Handler interface {
	Handle(ctx context.Context, env rewards.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env rewards.Envelope) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, env rewards.Envelope) error {
	return f(ctx, env)
}

// FromRewards wraps the rules engine, discarding the earn outcomes.
func FromRewards(svc *rewards.Service) Handler {
	return HandlerFunc(func(ctx context.Context, env rewards.Envelope) error {
		_, err := svc.Handle(ctx, env)
		return err
	})
}

// outcome is what to do with a delivery once it has been handled.
type outcome int

const (
	ack outcome = iota
	requeue
	drop
)

func (o outcome) String() string {
	switch o {
	case ack:
		return "ack"
	case requeue:
		return "requeue"
	}
	return "drop"
}

// Consumer reads reward envelopes with manual acknowledgement.
// Earn keys make redelivery safe, so a transient failure is requeued once
// and a permanent one is dropped.
type Consumer struct {
	cfg     config.Rabbit
	handler Handler
	log     *slog.Logger

	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New dials RabbitMQ and declares the durable queue.
func New(cfg config.Rabbit, handler Handler, log *slog.Logger) (*Consumer, error) {
	if cfg.URL == "" {
		return nil, errors.New("rabbitmq consumer: url is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Consumer{
		cfg:     cfg,
		handler: handler,
		log:     log.With("component", "reward-consumer", "queue", cfg.Queue),
		ctx:     ctx,
		cancel:  cancel,
	}
	if err := c.connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("rabbitmq consumer: %w", err)
	}
	return c, nil
}

func (c *Consumer) connect() error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	c.log.Info("Connected to RabbitMQ")
	go c.monitorConnection(conn)
	return nil
}

func (c *Consumer) monitorConnection(conn *amqp.Connection) {
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case err := <-notifyClose:
		if err != nil {
			c.log.Error("RabbitMQ connection closed unexpectedly", "error", err)
			c.reconnect()
		}
	case <-c.ctx.Done():
	}
}

func (c *Consumer) reconnect() {
	c.closeConn()
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		c.log.Info("Reconnecting to RabbitMQ", "attempt", attempt)
		if err := c.connect(); err == nil {
			go func() {
				if err := c.Start(c.ctx); err != nil && c.ctx.Err() == nil {
					c.log.Error("Failed to restart consumer after reconnect", "error", err)
				}
			}()
			return
		}
		delay := c.cfg.RetryDelay * time.Duration(attempt)
		c.log.Warn("Reconnection failed, retrying", "attempt", attempt, "delay", delay)
		select {
		case <-time.After(delay):
		case <-c.ctx.Done():
			return
		}
	}
	c.log.Error("Max reconnection attempts reached, giving up")
}

// Start consumes until ctx or the consumer is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()
	if channel == nil {
		return errors.New("channel is not initialized")
	}

	msgs, err := channel.Consume(
		c.cfg.Queue,
		c.cfg.ConsumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.log.Info("Starting reward consumer workers", "workers", c.cfg.Workers)
	for i := 0; i < c.cfg.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, msgs, i)
	}

	select {
	case <-ctx.Done():
	case <-c.ctx.Done():
	}
	c.log.Info("Stopping reward consumer workers")
	return nil
}

func (c *Consumer) worker(ctx context.Context, msgs <-chan amqp.Delivery, workerID int) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				c.log.Warn("Message channel closed", "worker_id", workerID)
				return
			}
			c.settle(msg, c.process(ctx, msg.Body, msg.Redelivered))
		}
	}
}

func (c *Consumer) settle(msg amqp.Delivery, o outcome) {
	var err error
	switch o {
	case ack:
		err = msg.Ack(false)
	case requeue:
		err = msg.Nack(false, true)
	default:
		err = msg.Nack(false, false)
	}
	if err != nil {
		c.log.Warn("Failed to settle delivery", "outcome", o.String(), "error", err)
	}
}

// process decides the fate of one message body.
func (c *Consumer) process(ctx context.Context, body []byte, redelivered bool) outcome {
	var env rewards.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.log.Error("Failed to unmarshal reward event", "error", err, "body", string(body))
		return drop
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	err := c.handler.Handle(ctx, env)
	switch {
	case err == nil:
		return ack
	case isPermanent(err):
		c.log.Warn("Dropping rejected reward event", "event_type", env.Type, "error", err)
		return drop
	case redelivered:
		c.log.Error("Reward event failed after redelivery", "event_type", env.Type, "error", err)
		return drop
	default:
		c.log.Warn("Requeueing reward event", "event_type", env.Type, "error", err)
		return requeue
	}
}

// isPermanent reports errors a redelivery cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, rewards.ErrUnknownEventType) ||
		errors.Is(err, account.ErrAccountNotFound) ||
		errors.Is(err, account.ErrAmountMustBePositive) ||
		errors.Is(err, account.ErrUserIDRequired)
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close stops the workers and the connection.
func (c *Consumer) Close() error {
	c.cancel()
	c.wg.Wait()
	c.closeConn()
	c.log.Info("Reward consumer closed")
	return nil
}
