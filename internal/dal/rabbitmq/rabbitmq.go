package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corray333/backend-labs/storefront/internal/service/models/outbox"
	"github.com/streadway/amqp"
)

// Client represents a RabbitMQ client.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
}

// Channel returns the underlying AMQP channel.
func (r *Client) Channel() *amqp.Channel {
	return r.channel
}

// Close closes the channel and connection for graceful shutdown.
func (r *Client) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

// Config describes the broker connection.
type Config struct {
	User     string
	Password string
	Host     string
	Port     int
	VHost    string
}

// URL returns the AMQP connection string.
func (c Config) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.VHost)
}

// MustNewClient creates a new RabbitMQ client.
func MustNewClient(cfg Config) *Client {
	conn, err := amqp.Dial(cfg.URL())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to RabbitMQ: %v", err))
	}

	channel, err := conn.Channel()
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			panic(fmt.Sprintf("Failed to close a connection: %v", closeErr))
		}
		panic(fmt.Sprintf("Failed to open a channel: %v", err))
	}

	slog.Info("RabbitMQ connected", "host", cfg.Host)

	return &Client{
		conn:    conn,
		channel: channel,
	}
}

// DeclareExchangeConfig describes an exchange.
type DeclareExchangeConfig struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp.Table
}

// DeclareExchange declares an exchange with the given configuration.
func (r *Client) DeclareExchange(cfg DeclareExchangeConfig) error {
	return r.channel.ExchangeDeclare(
		cfg.Name,
		cfg.Kind,
		cfg.Durable,
		cfg.AutoDelete,
		cfg.Internal,
		cfg.NoWait,
		cfg.Args,
	)
}

// Publish sends an outbox message as a persistent AMQP message.
func (r *Client) Publish(ctx context.Context, msg outbox.OutboxMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.channel.Publish(
		msg.ExchangeName,
		msg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    fmt.Sprintf("outbox-%d", msg.ID),
			Timestamp:    msg.CreatedAt,
			Body:         msg.Payload,
		},
	)
}
