package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/config"
	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/utils"
)

// Publisher sends SaleRecordedEvent messages to a durable queue.  Every
// publish opens its own connection; a circuit breaker stops dialing a broker
// that keeps failing.
type Publisher struct {
	queue   string
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     *zap.Logger
	send    func(ctx context.Context, queue string, body []byte) error
}

// NewPublisher returns a publisher for cfg.URL and cfg.Queue.
func NewPublisher(cfg config.QueueConfig, log *zap.Logger) *Publisher {
	p := newPublisher(cfg, log)
	p.send = func(ctx context.Context, queue string, body []byte) error {
		return publishAMQP(ctx, cfg.URL, queue, body)
	}
	return p
}

func newPublisher(cfg config.QueueConfig, log *zap.Logger) *Publisher {
	settings := gobreaker.Settings{
		Name:        "SalePublisher",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	timeout := cfg.PublishTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Publisher{
		queue:   cfg.Queue,
		timeout: timeout,
		cb:      gobreaker.NewCircuitBreaker(settings),
		log:     log,
	}
}

// PublishSaleRecorded marshals the event for sale and publishes it.  When the
// breaker is open the call fails fast with gobreaker.ErrOpenState.
func (p *Publisher) PublishSaleRecorded(ctx context.Context, sale model.Sale) error {
	ev := NewSaleRecordedEvent(sale)
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err = utils.ExecuteWithBreaker(p.cb, func() (struct{}, error) {
		return struct{}{}, p.send(ctx, p.queue, body)
	})
	if err != nil {
		return err
	}
	p.log.Debug("sale event published",
		zap.String("event_id", ev.EventID),
		zap.Uint64("sale_id", ev.SaleID),
	)
	return nil
}

func publishAMQP(ctx context.Context, url, queue string, body []byte) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
