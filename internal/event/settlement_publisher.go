package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher delivers settlement events to downstream consumers.
type Publisher interface {
	PublishSettlementEvent(ctx context.Context, msg SettlementEventMessage) error
}

// SettlementPublisher publishes settlement events to RabbitMQ.
type SettlementPublisher struct {
	conn *RabbitMQConnection

	mu                sync.Mutex
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

func NewSettlementPublisher(conn *RabbitMQConnection) *SettlementPublisher {
	return &SettlementPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

func (p *SettlementPublisher) PublishSettlementEvent(ctx context.Context, msg SettlementEventMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		p.recordFailure()
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	confirm, err := p.conn.Channel.PublishWithDeferredConfirmWithContext(
		ctx,
		"",                    // exchange
		SettlementEventsQueue, // routing key (queue name)
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    msg.EventID,
			Type:         string(msg.Type),
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish settlement event: %w", err)
	}
	if confirm != nil {
		acked, err := confirm.WaitContext(ctx)
		if err != nil {
			p.messagesFailed++
			return fmt.Errorf("no broker confirmation for settlement event %s: %w", msg.EventID, err)
		}
		if !acked {
			p.messagesFailed++
			return fmt.Errorf("broker rejected settlement event %s", msg.EventID)
		}
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Info("Settlement event published",
		"queue", SettlementEventsQueue,
		"event_id", msg.EventID,
		"type", msg.Type,
		"policy_id", msg.PolicyID,
	)
	return nil
}

func (p *SettlementPublisher) recordFailure() {
	p.mu.Lock()
	p.messagesFailed++
	p.mu.Unlock()
}

// GetStats returns publisher statistics.
func (p *SettlementPublisher) GetStats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"messages_published": p.messagesPublished,
		"messages_failed":    p.messagesFailed,
		"last_publish_time":  p.lastPublishTime,
	}
}

// LogPublisher writes events to the structured log. Used when no broker is
// configured.
type LogPublisher struct{}

func (LogPublisher) PublishSettlementEvent(_ context.Context, msg SettlementEventMessage) error {
	slog.Info("Settlement event",
		"event_id", msg.EventID,
		"type", msg.Type,
		"policy_id", msg.PolicyID,
		"gross", msg.Gross,
		"net", msg.Net,
		"fee", msg.Fee,
		"config_version", msg.ConfigVersion)
	return nil
}
