package processing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"wizqueue/internal/logging"
)

const requeueDelay = time.Second

// confirmation resolves once the broker acks or nacks one publishing.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type publishFunc func(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error)

// AMQPPublisher publishes tasks to a durable queue with publisher confirms.
// Each publishing waits on its own delivery tag.
type AMQPPublisher struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	publish publishFunc
	queue   string

	mu sync.Mutex
}

// DialAMQPPublisher connects, declares queue and enables confirms.
func DialAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, publish: channelPublisher(ch), queue: queue}, nil
}

func channelPublisher(ch *amqp.Channel) publishFunc {
	return func(ctx context.Context, queue string, msg amqp.Publishing) (confirmation, error) {
		dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, msg)
		if err != nil {
			return nil, err
		}
		if dc == nil {
			return nil, errors.New("channel is not in confirm mode")
		}
		return dc, nil
	}
}

// Dispatch publishes task and waits for the broker to confirm it.
func (p *AMQPPublisher) Dispatch(ctx context.Context, task Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now().UTC()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}

	p.mu.Lock()
	conf, err := p.publish(ctx, p.queue, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    task.SubmittedAt,
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("amqp publish: await confirmation: %w", err)
	}
	if !acked {
		return errors.New("amqp publish: broker returned nack")
	}
	return nil
}

// Ping reports whether the connection is still open.
func (p *AMQPPublisher) Ping() error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("amqp connection is closed")
	}
	return nil
}

// Close implements Dispatcher.
func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// AMQPConsumer feeds broker deliveries into a local pool. A delivery is
// acked once its task finished, and requeued when the pool is full or
// stopping.
type AMQPConsumer struct {
	url      string
	queue    string
	pool     *Pool
	prefetch int
	logger   *slog.Logger
	delay    time.Duration
}

// NewAMQPConsumer builds a consumer. The prefetch count equals the pool's
// worker count.
func NewAMQPConsumer(url, queue string, pool *Pool, logger *slog.Logger) *AMQPConsumer {
	return &AMQPConsumer{
		url:      url,
		queue:    queue,
		pool:     pool,
		prefetch: pool.Workers(),
		logger:   logging.NewComponentLogger(logger, "amqp-consumer"),
		delay:    requeueDelay,
	}
}

// Run consumes until ctx is cancelled or the channel closes.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := declareQueue(ch, c.queue); err != nil {
		return err
	}
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}
	c.logger.Info("consuming invoice tasks",
		logging.String("queue", c.queue),
		logging.Int("prefetch", c.prefetch),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("amqp delivery channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *AMQPConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var task Task
	if err := json.Unmarshal(d.Body, &task); err != nil {
		c.logger.Error("discarding malformed task", logging.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := task.Validate(); err != nil {
		c.logger.Error("discarding invalid task", logging.Error(err))
		_ = d.Nack(false, false)
		return
	}

	logger := c.logger.With(logging.Int64(logging.FieldInvoiceID, task.InvoiceID))
	err := c.pool.Submit(task, OnDone(func(err error) {
		if errors.Is(err, ErrStopped) {
			_ = d.Nack(false, true)
			return
		}
		_ = d.Ack(false)
	}))
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyQueued):
		logger.Debug("duplicate delivery acked")
		_ = d.Ack(false)
	default:
		logger.Warn("pool rejected delivery; requeueing", logging.Error(err))
		c.wait(ctx)
		_ = d.Nack(false, true)
	}
}

func (c *AMQPConsumer) wait(ctx context.Context) {
	if c.delay <= 0 {
		return
	}
	timer := time.NewTimer(c.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func declareQueue(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("amqp declare queue %s: %w", queue, err)
	}
	return nil
}
