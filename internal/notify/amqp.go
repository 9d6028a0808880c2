package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSender publishes notices as JSON to a durable queue consumed by an
// external mailer.
type AMQPSender struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	mu    sync.Mutex
}

func NewAMQPSender(url, queue string) (*AMQPSender, error) {
	if url == "" {
		return nil, errors.New("AMQP_URL is required for the amqp transport")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}
	return &AMQPSender{conn: conn, ch: ch, queue: queue}, nil
}

func (s *AMQPSender) SendDueReminder(ctx context.Context, to, title string, due time.Time) error {
	return s.publish(ctx, DueReminderMessage(to, title, due))
}

func (s *AMQPSender) SendOverdueNotice(ctx context.Context, to, title string, fine int) error {
	return s.publish(ctx, OverdueNoticeMessage(to, title, fine))
}

func (s *AMQPSender) publish(ctx context.Context, msg Message) error {
	publishing, err := encodePublishing(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ch.PublishWithContext(ctx, "", s.queue, false, false, publishing); err != nil {
		return fmt.Errorf("publish %s to %s: %w", msg.Kind, s.queue, err)
	}
	return nil
}

func encodePublishing(msg Message) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", msg.Kind, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         string(msg.Kind),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}

func (s *AMQPSender) Close() error {
	var errs []error
	if s.ch != nil {
		errs = append(errs, s.ch.Close())
	}
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}
	return errors.Join(errs...)
}
