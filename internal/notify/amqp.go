package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange is the fanout exchange kitchen displays bind their queues to.
const Exchange = "kitchen_alerts"

// publisher is the part of *amqp.Channel the AMQP notifier uses.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPNotifier publishes alerts with publisher confirms.
type AMQPNotifier struct {
	conn *amqp.Connection
	ch   publisher
	acks <-chan amqp.Confirmation

	mu  sync.Mutex
	// delivery tag of the last successful publish; the broker numbers
	// confirms from 1 on a channel in confirm mode
	tag uint64
}

// DialAMQP connects to the broker, declares the alert exchange and puts the
// channel in confirm mode.
func DialAMQP(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(Exchange, "fanout", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &AMQPNotifier{conn: conn, ch: ch, acks: acks}, nil
}

// Notify publishes a as a persistent JSON message and waits for the
// broker's confirmation.
func (n *AMQPNotifier) Notify(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.ch.PublishWithContext(ctx, Exchange, a.Kind, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    a.ID.String(),
		Timestamp:    a.At.UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	n.tag++
	return n.awaitConfirm(ctx, n.tag)
}

// awaitConfirm waits for the confirm of tag. Confirms of earlier publishes
// whose caller gave up waiting are discarded. Caller holds n.mu.
func (n *AMQPNotifier) awaitConfirm(ctx context.Context, tag uint64) error {
	for {
		select {
		case conf, ok := <-n.acks:
			if !ok {
				return errors.New("amqp channel closed before confirm")
			}
			if conf.DeliveryTag < tag {
				log.Printf("WARN: late %s for alert delivery tag %d discarded", ackWord(conf.Ack), conf.DeliveryTag)
				continue
			}
			if conf.DeliveryTag > tag {
				return fmt.Errorf("confirm for delivery tag %d arrived while waiting for %d", conf.DeliveryTag, tag)
			}
			if !conf.Ack {
				return errors.New("publish NACK from broker")
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func ackWord(ack bool) string {
	if ack {
		return "ACK"
	}
	return "NACK"
}

// Close shuts down the connection.
func (n *AMQPNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Close()
}
