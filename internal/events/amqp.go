package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeJSON = "application/json"

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

// AMQPPublisher publishes events as JSON to a RabbitMQ topic exchange, using
// the event key as routing key.
type AMQPPublisher struct {
	channel  Channel
	exchange string
	conn     *amqp.Connection
}

// NewAMQPPublisher declares exchange on channel and returns a publisher for it.
func NewAMQPPublisher(channel Channel, exchange string) (*AMQPPublisher, error) {
	err := channel.ExchangeDeclare(
		exchange,
		// topic lets consumers bind to e.g. "transfer.#"
		"topic",
		// durable, not auto-deleted
		true,
		false,
		// not internal, wait for the server to confirm
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{channel: channel, exchange: exchange}, nil
}

// DialAMQP connects to RabbitMQ at uri, retrying with exponential backoff for
// up to a minute, and returns a publisher on a fresh channel.
func DialAMQP(uri, exchange string) (*AMQPPublisher, error) {
	retry := backoff.NewExponentialBackOff()
	retry.MaxInterval = 10 * time.Second
	retry.MaxElapsedTime = time.Minute

	var conn *amqp.Connection
	err := backoff.Retry(func() error {
		var dialErr error
		conn, dialErr = amqp.Dial(uri)
		return dialErr
	}, retry)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}
	p, err := NewAMQPPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// Publish sends event to the exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, event Event) error {
	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	if err := json.NewEncoder(payload).Encode(event); err != nil {
		return fmt.Errorf("encoding %s event: %w", event.Key, err)
	}

	err := p.channel.PublishWithContext(ctx,
		p.exchange,
		event.Key,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Timestamp:   event.OccurredAt,
			Body:        bytes.Clone(payload.Bytes()),
		},
	)
	if err != nil {
		return fmt.Errorf("publishing %s event: %w", event.Key, err)
	}
	return nil
}

// Close closes the underlying connection, if the publisher owns one.
func (p *AMQPPublisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
