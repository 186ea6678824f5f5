package event

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/coderpushkar05072002/InsuranceMarketplace/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConnection is a single channel in publisher-confirm mode with the
// settlement events queue already declared.
type RabbitMQConnection struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

func brokerURI(cfg config.RabbitMQConfig) (string, error) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return "", fmt.Errorf("invalid RabbitMQ port %q: %w", cfg.Port, err)
	}
	return amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     port,
		Username: cfg.Username,
		Password: cfg.Password,
		Vhost:    "/",
	}.String(), nil
}

func ConnectRabbitMQ(cfg config.RabbitMQConfig) (*RabbitMQConnection, error) {
	uri, err := brokerURI(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	fail := func(format string, err error) (*RabbitMQConnection, error) {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf(format, err)
	}

	if err := ch.Confirm(false); err != nil {
		return fail("failed to enable publisher confirms: %w", err)
	}
	if _, err := ch.QueueDeclare(
		SettlementEventsQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fail("failed to declare settlement events queue: %w", err)
	}

	slog.Info("Connected to RabbitMQ", "host", cfg.Host, "port", cfg.Port, "queue", SettlementEventsQueue)

	return &RabbitMQConnection{
		Connection: conn,
		Channel:    ch,
	}, nil
}

func (r *RabbitMQConnection) Close() error {
	if r.Channel != nil {
		if err := r.Channel.Close(); err != nil {
			slog.Error("failed to close RabbitMQ channel", "error", err)
		}
	}
	if r.Connection == nil {
		return nil
	}
	if err := r.Connection.Close(); err != nil {
		slog.Error("failed to close RabbitMQ connection", "error", err)
		return err
	}
	slog.Info("RabbitMQ connection closed")
	return nil
}
