// Package amqp publishes ledger events to RabbitMQ and consumes them for the
// journal worker.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"finsheet/internal/core"
	"finsheet/internal/log"
)

// channel is the subset of *amqp091.Channel the client uses.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

// dialer opens a connection and a channel on it. The returned closer closes
// the connection.
type dialer func() (channel, func() error, error)

type Client struct {
	exchangeName string
	queueName    string
	logger       *log.Logger
	dial         dialer

	mu        sync.Mutex
	channel   channel
	closeConn func() error
}

// EventHandler processes one ledger event. A returned error requeues the message.
type EventHandler func(ctx context.Context, ev core.LedgerEvent) error

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	return newClient(func() (channel, func() error, error) {
		conn, err := amqp091.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("dial AMQP: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("open channel: %w", err)
		}
		return ch, conn.Close, nil
	}, exchangeName, queueName, logger)
}

func newClient(dial dialer, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	c := &Client{
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
		dial:         dial,
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	ch, closeConn, err := c.dial()
	if err != nil {
		return err
	}
	if err := setup(ch, c.exchangeName, c.queueName); err != nil {
		ch.Close()
		if closeConn != nil {
			closeConn()
		}
		return fmt.Errorf("setup exchange and queue: %w", err)
	}
	c.mu.Lock()
	c.channel, c.closeConn = ch, closeConn
	c.mu.Unlock()
	return nil
}

func setup(ch channel, exchangeName, queueName string) error {
	if err := ch.ExchangeDeclare(exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// direct exchange: the routing key is the queue name
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) current() channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// Publish sends a ledger event. A dropped connection is re-dialed once
// before giving up.
func (c *Client) Publish(ctx context.Context, ev core.LedgerEvent) error {
	msg, err := NewEventPublishing(ev)
	if err != nil {
		return err
	}

	err = c.publish(ctx, msg)
	if isConnectionError(err) {
		c.logger.WarnContext(ctx, "AMQP connection lost, reconnecting", log.FieldError, err)
		c.reset()
		if rerr := c.connect(); rerr != nil {
			return fmt.Errorf("reconnect: %w", rerr)
		}
		err = c.publish(ctx, msg)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "Published ledger event",
		log.FieldEventID, ev.ID,
		log.FieldEventKind, string(ev.Kind),
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, msg amqp091.Publishing) error {
	ch := c.current()
	if ch == nil {
		return amqp091.ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, msg)
}

// Consume delivers events to handler until ctx is done. Malformed messages
// are dropped; handler failures are requeued. Lost connections are re-dialed
// with exponential backoff.
func (c *Client) Consume(ctx context.Context, handler EventHandler) error {
	for attempt := 0; ; attempt++ {
		err := c.consumeOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		wait := exponentialBackoff(attempt)
		c.logger.WarnContext(ctx, "Consumer disconnected, retrying",
			log.FieldError, err, "attempt", attempt+1, "backoff", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		c.reset()
		if err := c.connect(); err != nil {
			c.logger.WarnContext(ctx, "Reconnect failed", log.FieldError, err)
		} else {
			attempt = -1
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler EventHandler) error {
	ch := c.current()
	if ch == nil {
		return amqp091.ErrClosed
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)
	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return amqp091.ErrClosed
			}
			c.handle(ctx, delivery, handler)
		}
	}
}

func (c *Client) handle(ctx context.Context, d amqp091.Delivery, handler EventHandler) {
	ev, err := EventFromDelivery(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode message", log.FieldError, err, "message_id", d.MessageId)
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, ev); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle ledger event",
			log.FieldError, err, log.FieldEventID, ev.ID, log.FieldEventKind, string(ev.Kind))
		d.Nack(false, true)
		return
	}
	d.Ack(false)
}

func (c *Client) reset() {
	c.mu.Lock()
	ch, closeConn := c.channel, c.closeConn
	c.channel, c.closeConn = nil, nil
	c.mu.Unlock()
	if ch != nil {
		ch.Close()
	}
	if closeConn != nil {
		closeConn()
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	ch, closeConn := c.channel, c.closeConn
	c.channel, c.closeConn = nil, nil
	c.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	if closeConn != nil {
		return closeConn()
	}
	return nil
}

// exponentialBackoff doubles from one second and caps at thirty.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return 30 * time.Second
	}
	return time.Second << attempt
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	var aerr *amqp091.Error
	if errors.As(err, &aerr) && (aerr.Code == amqp091.ChannelError || aerr.Code == amqp091.ConnectionForced) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection closed", "eof", "broken pipe", "closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
