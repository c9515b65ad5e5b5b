package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

const auditQueueName = "booking.audit"

// auditBindings are the routing keys the audit queue listens to.
var auditBindings = []string{"booking.*", "authz.*"}

// StartAuditConsumer connects to the broker, binds the durable audit queue
// to the event exchange and logs every delivery. It reconnects with
// exponential backoff and returns only when ctx is cancelled.
func StartAuditConsumer(ctx context.Context, url string, logger *logrus.Logger) error {
	if logger == nil {
		logger = logrus.New()
	}
	log := logger.WithField("component", "audit-consumer")

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, log *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(auditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	for _, key := range auditBindings {
		if err := ch.QueueBind(auditQueueName, key, Exchange, false, nil); err != nil {
			return fmt.Errorf("queue bind %s: %w", key, err)
		}
	}

	msgs, err := ch.Consume(auditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(log, d.Body); err != nil {
				log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// handleMessage decodes an envelope and writes it as one audit log line.
func handleMessage(log *logrus.Entry, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if env.Type == "" {
		return errors.New("envelope without type")
	}
	fields := logrus.Fields{
		"event_id":    env.ID.String(),
		"event_type":  env.Type,
		"actor_id":    env.ActorID,
		"occurred_at": env.OccurredAt.Format(time.RFC3339),
	}
	if env.Type == TypeAuthzDenied {
		var d AuthzDenied
		if err := json.Unmarshal(env.Payload, &d); err == nil {
			fields["operation"] = d.Operation
			fields["resource"] = d.Resource
			fields["resource_id"] = d.ResourceID
		}
		log.WithFields(fields).Warn("audit")
		return nil
	}
	fields["payload"] = string(env.Payload)
	log.WithFields(fields).Info("audit")
	return nil
}
