package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hsdfat8/assettrack/internal/adapters/sweep"
	"github.com/hsdfat8/assettrack/internal/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultRoutingKey is the topic overdue notices are published under
const DefaultRoutingKey = "maintenance.plan.overdue"

// Channel is the subset of *amqp.Channel the publisher uses
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher delivers overdue notices to a topic exchange
type Publisher struct {
	conn       *amqp.Connection
	channel    Channel
	exchange   string
	routingKey string
	logger     logger.Logger
}

// Dial connects to RabbitMQ and opens a publisher on a new channel
func Dial(url, exchange, routingKey string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	p, err := NewPublisher(ch, exchange, routingKey)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher declares the exchange on ch and returns a publisher using it
func NewPublisher(ch Channel, exchange, routingKey string) (*Publisher, error) {
	if exchange == "" {
		return nil, fmt.Errorf("exchange name is required")
	}
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}

	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger.New("rabbitmq-publisher", ""),
	}, nil
}

func (p *Publisher) Name() string { return "rabbitmq" }

// Notify publishes one notice as a persistent JSON message
func (p *Publisher) Notify(ctx context.Context, notice sweep.Notice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    noticeID(notice),
			Timestamp:    notice.DetectedAt,
			Type:         "maintenance.plan.overdue",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish notice: %w", err)
	}

	p.logger.Debugw("Published overdue notice",
		"routing_key", p.routingKey,
		"plan_id", notice.PlanID,
		"transformer_id", notice.TransformerID,
	)
	return nil
}

// noticeID is stable per plan and due date so consumers can drop redeliveries
func noticeID(n sweep.Notice) string {
	return n.PlanID + "/" + n.NextDue.UTC().Format("2006-01-02")
}

// Close closes the channel and, when owned, the connection
func (p *Publisher) Close() error {
	var err error
	if p.channel != nil {
		err = p.channel.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
