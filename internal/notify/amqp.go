package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DeliveryQueueName is the queue a downstream mailer consumes from
const DeliveryQueueName = "ticket.delivery"

// AMQPPublisher hands deliveries to a message broker for an external mailer
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	url      string
	exchange string
	queue    string
}

// NewAMQPPublisher connects and declares a durable direct exchange with the
// delivery queue bound to it
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		url:      url,
		exchange: exchange,
		queue:    DeliveryQueueName,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if p.exchange != "" {
		if err := ch.ExchangeDeclare(p.exchange, "direct", true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to declare exchange: %w", err)
		}
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if p.exchange != "" {
		if err := ch.QueueBind(p.queue, p.queue, p.exchange, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	p.conn = conn
	p.channel = ch
	return nil
}

func (p *AMQPPublisher) ensureConnection() error {
	if p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	slog.Info("reconnecting to RabbitMQ")
	return p.connect()
}

// Deliver publishes the delivery as a persistent JSON message
func (p *AMQPPublisher) Deliver(ctx context.Context, d *Delivery) error {
	msg, err := publishing(d)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnection(); err != nil {
		return err
	}

	if err := p.channel.PublishWithContext(ctx, p.exchange, p.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish delivery for order %s: %w", d.OrderNumber, err)
	}
	return nil
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil && err != amqp.ErrClosed {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && err != amqp.ErrClosed {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}

func publishing(d *Delivery) (amqp.Publishing, error) {
	if err := d.Validate(); err != nil {
		return amqp.Publishing{}, err
	}

	body, err := json.Marshal(d)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal delivery: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    d.OrderNumber,
		Type:         "ticket.delivery",
		Body:         body,
	}, nil
}
