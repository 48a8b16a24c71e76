package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/garnizeh/bidboard/pkg/models"
)

// ErrNacked is returned when the broker refused a published notification.
var ErrNacked = errors.New("notify: broker nacked notification")

type publishFunc func(ctx context.Context, msg amqp.Publishing) error

// AMQPNotifier publishes hire notifications to a durable RabbitMQ queue and
// waits for the broker's publisher confirm. A notification counts as
// delivered only once it is confirmed. A closed channel or connection is
// re-dialed on the next notification.
type AMQPNotifier struct {
	url     string
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	timeout time.Duration
	logger  *slog.Logger

	// confirms are matched to publishes in order, so publishes on the
	// channel are serialized
	mu      sync.Mutex
	publish publishFunc
	redial  func() error
	broken  bool
}

// DialAMQP connects to the broker, declares the queue and puts the channel
// into confirm mode.
func DialAMQP(url, queue string, timeout time.Duration, logger *slog.Logger) (*AMQPNotifier, error) {
	conn, ch, name, err := dialAMQP(url, queue)
	if err != nil {
		return nil, err
	}

	n := newAMQPNotifier(name, timeout, logger, nil)
	n.url = url
	n.conn = conn
	n.channel = ch
	n.publish = n.publishConfirmed
	n.redial = n.reconnect
	n.logger.Info("notify: connected to broker", slog.String("queue", name))
	return n, nil
}

func dialAMQP(url, queue string) (*amqp.Connection, *amqp.Channel, string, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, "", fmt.Errorf("notify: connect to broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, "", fmt.Errorf("notify: open channel: %w", err)
	}

	q, err := ch.QueueDeclare(
		queue, // queue name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		conn.Close()
		return nil, nil, "", fmt.Errorf("notify: declare queue %q: %w", queue, err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, nil, "", fmt.Errorf("notify: enable publisher confirms: %w", err)
	}
	return conn, ch, q.Name, nil
}

func newAMQPNotifier(queue string, timeout time.Duration, logger *slog.Logger, publish publishFunc) *AMQPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AMQPNotifier{queue: queue, timeout: timeout, logger: logger, publish: publish}
}

func (a *AMQPNotifier) Notify(ctx context.Context, n models.HireNotification) error {
	msg, err := hireMessage(n)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.broken && a.redial != nil {
		if err := a.redial(); err != nil {
			a.logger.Error("notify: reconnect to broker failed", slog.Any("err", err))
			return err
		}
		a.broken = false
		a.logger.Info("notify: reconnected to broker", slog.String("queue", a.queue))
	}

	// the confirm budget starts once this publish owns the channel
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.publish(ctx, msg); err != nil {
		if errors.Is(err, amqp.ErrClosed) || (a.channel != nil && a.channel.IsClosed()) {
			a.broken = true
			a.logger.Error("notify: broker channel closed", slog.Any("err", err))
		}
		a.logger.Warn("notify: publish failed",
			slog.Int64("application_id", n.ApplicationID),
			slog.Any("err", err),
		)
		return err
	}
	return nil
}

// reconnect replaces a dead connection and channel. Callers hold a.mu.
func (a *AMQPNotifier) reconnect() error {
	if a.conn != nil {
		_ = a.conn.Close()
	}
	conn, ch, _, err := dialAMQP(a.url, a.queue)
	if err != nil {
		a.conn, a.channel = nil, nil
		return err
	}
	a.conn = conn
	a.channel = ch
	return nil
}

func (a *AMQPNotifier) publishConfirmed(ctx context.Context, msg amqp.Publishing) error {
	dc, err := a.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		"",      // exchange
		a.queue, // routing key
		false,   // mandatory
		false,   // immediate
		msg,
	)
	if err != nil {
		return fmt.Errorf("notify: publish: %w", err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("notify: wait for confirm: %w", err)
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

// Close shuts the channel and the connection down.
func (a *AMQPNotifier) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return nil
	}
	if a.channel != nil {
		_ = a.channel.Close()
	}
	return a.conn.Close()
}

func hireMessage(n models.HireNotification) (amqp.Publishing, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("notify: encode notification: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    "hire-" + strconv.FormatInt(n.ApplicationID, 10),
		Type:         "job.hired",
		Timestamp:    n.HiredAt,
		Body:         body,
	}, nil
}
