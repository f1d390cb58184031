// Package mq provides a RabbitMQ publisher with automatic reconnection, used as
// an alternative channel for republishing plant alerts.
package mq

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"

	"procodus.dev/plant-processor/pkg/metrics"
)

// Client publishes to a single durable queue, reconnecting in the background
// whenever the connection or channel drops.
type Client struct {
	m               sync.Mutex
	logger          *slog.Logger
	connection      *amqp.Connection
	channel         *amqp.Channel
	done            chan struct{}
	notifyConnClose chan *amqp.Error
	notifyChanClose chan *amqp.Error
	notifyConfirm   chan amqp.Confirmation
	metrics         *metrics.MQMetrics
	queueName       string
	isReady         bool
	closed          bool
}

const (
	reconnectDelay    = 5 * time.Second
	reInitDelay       = 2 * time.Second
	initialBackoff    = 100 * time.Millisecond
	maxBackoff        = 5 * time.Second
	maxRetryAttempts  = 5
	backoffMultiplier = 2
)

var (
	errNotConnected       = errors.New("not connected to a server")
	errAlreadyClosed      = errors.New("already closed")
	errShutdown           = errors.New("client is shutting down")
	errMaxRetriesExceeded = errors.New("maximum retry attempts exceeded")
	errNacked             = errors.New("publish not acknowledged by broker")
)

// New creates a client for queueName and starts connecting to addr in the background.
func New(queueName, addr string, l *slog.Logger) *Client {
	client := &Client{
		logger:    l,
		queueName: queueName,
		done:      make(chan struct{}),
	}
	go client.handleReconnect(addr)
	return client
}

// SetMetrics sets the metrics collector for this client.
func (client *Client) SetMetrics(m *metrics.MQMetrics) {
	client.m.Lock()
	defer client.m.Unlock()
	client.metrics = m
}

func (client *Client) setReady(ready bool) {
	client.m.Lock()
	client.isReady = ready
	m := client.metrics
	client.m.Unlock()

	if m != nil {
		if ready {
			m.ConnectionStatus.Set(1)
		} else {
			m.ConnectionStatus.Set(0)
		}
	}
}

// handleReconnect dials addr until it succeeds, then hands over to handleReInit
// and starts again whenever the connection is lost.
func (client *Client) handleReconnect(addr string) {
	for {
		client.setReady(false)
		client.logger.Info("attempting to connect", "queue", client.queueName)

		if m := client.metricsOrNil(); m != nil {
			m.ReconnectAttempts.Inc()
		}

		conn, err := amqp.Dial(addr)
		if err != nil {
			client.logger.Error("failed to connect, retrying", "error", err)
			select {
			case <-client.done:
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		client.m.Lock()
		client.connection = conn
		client.notifyConnClose = make(chan *amqp.Error, 1)
		conn.NotifyClose(client.notifyConnClose)
		client.m.Unlock()

		client.logger.Info("connected", "queue", client.queueName)

		if done := client.handleReInit(conn); done {
			return
		}
	}
}

// handleReInit opens a channel on conn and reopens it after channel errors.
// It returns true when the client is closed, false when the connection dropped.
func (client *Client) handleReInit(conn *amqp.Connection) bool {
	for {
		client.setReady(false)

		if err := client.init(conn); err != nil {
			client.logger.Error("failed to initialize channel, retrying", "error", err)
			select {
			case <-client.done:
				return true
			case <-client.notifyConnClose:
				client.logger.Info("connection closed, reconnecting")
				return false
			case <-time.After(reInitDelay):
			}
			continue
		}

		select {
		case <-client.done:
			return true
		case <-client.notifyConnClose:
			client.logger.Info("connection closed, reconnecting")
			return false
		case <-client.notifyChanClose:
			client.logger.Info("channel closed, re-running init")
		}
	}
}

// init opens a confirming channel and declares the durable queue.
func (client *Client) init(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}

	if err := ch.Confirm(false); err != nil {
		return err
	}

	if _, err := ch.QueueDeclare(
		client.queueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,
	); err != nil {
		return err
	}

	client.m.Lock()
	client.channel = ch
	client.notifyChanClose = make(chan *amqp.Error, 1)
	client.notifyConfirm = make(chan amqp.Confirmation, 1)
	ch.NotifyClose(client.notifyChanClose)
	ch.NotifyPublish(client.notifyConfirm)
	client.m.Unlock()

	client.setReady(true)
	client.logger.Info("client init done", "queue", client.queueName)
	return nil
}

func (client *Client) metricsOrNil() *metrics.MQMetrics {
	client.m.Lock()
	defer client.m.Unlock()
	return client.metrics
}

// Push publishes data as a persistent JSON message and waits for the broker
// confirmation, retrying with exponential backoff up to maxRetryAttempts.
func (client *Client) Push(ctx context.Context, data []byte) error {
	m := client.metricsOrNil()
	if m != nil {
		timer := prometheus.NewTimer(m.PushDuration.WithLabelValues(client.queueName))
		defer timer.ObserveDuration()
	}

	backoff := initialBackoff
	var lastErr error

	for attempt := 0; attempt < maxRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-client.done:
				return errShutdown
			case <-time.After(backoff):
			}
			backoff *= backoffMultiplier
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}

		lastErr = client.publishConfirmed(ctx, data)
		if lastErr == nil {
			if m != nil {
				m.MessagesPushed.WithLabelValues(client.queueName).Inc()
			}
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			break
		}

		client.logger.Warn("push failed, retrying",
			"queue", client.queueName,
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	if m != nil {
		m.PushFailures.WithLabelValues(client.queueName, "max_retries_exceeded").Inc()
	}
	return errors.Join(errMaxRetriesExceeded, lastErr)
}

func (client *Client) publishConfirmed(ctx context.Context, data []byte) error {
	client.m.Lock()
	if !client.isReady {
		client.m.Unlock()
		return errNotConnected
	}
	ch := client.channel
	confirms := client.notifyConfirm
	client.m.Unlock()

	err := ch.PublishWithContext(
		ctx,
		"",               // Exchange
		client.queueName, // Routing key
		false,            // Mandatory
		false,            // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         data,
		},
	)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-client.done:
		return errShutdown
	case confirm := <-confirms:
		if !confirm.Ack {
			return errNacked
		}
		return nil
	}
}

// Close stops reconnecting and closes the channel and connection.
func (client *Client) Close() error {
	client.m.Lock()
	defer client.m.Unlock()

	if client.closed {
		return errAlreadyClosed
	}
	client.closed = true
	close(client.done)

	var errs []error
	if client.channel != nil {
		if err := client.channel.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if client.connection != nil {
		if err := client.connection.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	client.isReady = false
	if client.metrics != nil {
		client.metrics.ConnectionStatus.Set(0)
	}

	return errors.Join(errs...)
}
