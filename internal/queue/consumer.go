package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer reads SessionQueue and AppointmentQueue and appends one
// line per event to <Dir>/audit.log.
type AuditConsumer struct {
	URL string
	Dir string

	mu sync.Mutex // serialises writes from the two queues
}

// NewAuditConsumer returns a consumer writing into dir ("logs" when empty).
func NewAuditConsumer(url, dir string) *AuditConsumer {
	if dir == "" {
		dir = "logs"
	}
	return &AuditConsumer{URL: url, Dir: dir}
}

// Run connects to RabbitMQ and consumes until ctx is cancelled.  Broker
// failures are retried with exponential backoff capped at 30s.
func (a *AuditConsumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(a.URL)
		if err != nil {
			log.Printf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = a.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("audit-consumer: consume loop ended: %v; reconnecting", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("audit-consumer: set QoS failed: %v", err)
	}

	queues := []string{SessionQueue, AppointmentQueue}
	done := make(chan struct{}, len(queues))
	for _, q := range queues {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.Consume(q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		go func() {
			defer func() { done <- struct{}{} }()
			for d := range msgs {
				if err := a.Handle(q, d.Body); err != nil {
					log.Printf("audit-consumer: handle message failed: %v", err)
					_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
					continue
				}
				_ = d.Ack(false)
			}
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return errors.New("deliveries channel closed")
	}
}

// Handle formats one message and appends it to the audit log.
func (a *AuditConsumer) Handle(queueName string, body []byte) error {
	line, err := FormatEvent(queueName, body)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(a.Dir, "audit.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatEvent renders a message from queueName as a single log line.
func FormatEvent(queueName string, body []byte) (string, error) {
	switch queueName {
	case SessionQueue:
		var ev SessionEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal session event: %w", err)
		}
		role := ev.Role
		if role == "" {
			role = "-"
		}
		return fmt.Sprintf("[%s] session %s | email=%q | role=%s | id=%s",
			ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.Email, role, ev.ID), nil
	case AppointmentQueue:
		var ev AppointmentScheduledEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal appointment event: %w", err)
		}
		ids := make([]string, len(ev.SheepIDs))
		for i, id := range ev.SheepIDs {
			ids[i] = fmt.Sprint(id)
		}
		return fmt.Sprintf("[%s] appointment scheduled | appointment_id=%d | farm_id=%d | vet_id=%d | sheep=[%s]",
			ev.Date.UTC().Format(time.RFC3339), ev.AppointmentID, ev.FarmID, ev.VetID, strings.Join(ids, ",")), nil
	}
	return "", fmt.Errorf("unknown queue %q", queueName)
}
