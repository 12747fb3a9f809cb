/**
 * @description
 * RabbitMQ producer for subscription lifecycle events. Events are JSON bodies
 * published to durable topic exchanges with routing keys like
 * "subscription.activated"; consumers bind whatever subset they care about.
 *
 * Exchange declaration is idempotent on the broker but still a round trip, so
 * the producer declares each exchange once and remembers it. Deliveries are
 * persistent: a broker restart must not drop billing-relevant events.
 *
 * @dependencies
 * - github.com/rabbitmq/amqp091-go: The official Go client for RabbitMQ.
 */
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const appID = "coach-service"

// EventProducer publishes JSON events to topic exchanges over one channel.
type EventProducer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
	logger  *slog.Logger

	mu       sync.Mutex
	declared map[string]struct{}
}

// sanitizeAMQPURL tolerates the quoting and missing-vhost-slash mistakes that
// show up in copy-pasted broker URLs.
func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}

// NewEventProducer dials the broker and opens the publishing channel.
func NewEventProducer(amqpURL string, logger *slog.Logger) (*EventProducer, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}

	conn, err := amqp091.Dial(cleanURL)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	return &EventProducer{
		conn:     conn,
		channel:  channel,
		logger:   logger,
		declared: make(map[string]struct{}),
	}, nil
}

// Publish marshals body and sends it to the exchange under the routing key.
func (p *EventProducer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	if err := p.ensureExchange(exchange); err != nil {
		return fmt.Errorf("declaring exchange %q: %w", exchange, err)
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding event for %q: %w", routingKey, err)
	}

	err = p.channel.PublishWithContext(ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			AppId:        appID,
			Body:         jsonBody,
		},
	)
	if err != nil {
		return err
	}

	p.logger.Debug("event published", "exchange", exchange, "routing_key", routingKey)
	return nil
}

// ensureExchange declares a durable topic exchange the first time it is used.
func (p *EventProducer) ensureExchange(exchange string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.declared[exchange]; ok {
		return nil
	}
	err := p.channel.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}
	p.declared[exchange] = struct{}{}
	return nil
}

// Close tears down the channel and connection.
func (p *EventProducer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
