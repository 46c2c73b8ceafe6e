package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"eatgreet/internal/config"
)

// EventsExchange carries every tenant-scoped domain event. Routing keys are
// "<restaurantSlug>.<event>", e.g. "green_leaf.orderUpdated".
const EventsExchange = "eatgreet.events"

type Client struct {
	conn *amqp.Connection
	ch   *amqp.Channel // publish channel, confirms mode

	acks <-chan amqp.Confirmation
	mu   sync.Mutex // serializes Publish while waiting for confirms

	subMu sync.Mutex
	subs  []*amqp.Channel
}

func Dial(cfg config.RabbitMQConfig) (*Client, error) {
	vhost := cfg.VHost
	if vhost == "" {
		vhost = "/"
	}
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s", cfg.User, cfg.Password, cfg.Host, cfg.Port, vhost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	if err := ch.ExchangeDeclare(EventsExchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Client{conn: conn, ch: ch, acks: acks}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.subMu.Lock()
	for _, ch := range c.subs {
		_ = ch.Close()
	}
	c.subs = nil
	c.subMu.Unlock()
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Publish sends one persistent message and waits for the broker's confirm.
func (c *Client) Publish(ctx context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ch.PublishWithContext(ctx, EventsExchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}); err != nil {
		return err
	}

	select {
	case conf := <-c.acks:
		if conf.Ack {
			return nil
		}
		return errors.New("publish NACK from broker")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe binds an exclusive queue to the events exchange and starts
// consuming on a dedicated channel, so a consumer fault cannot close the
// confirms-mode publish channel. Deliveries must be Ack'd or Nack'd by
// the caller. Pattern follows AMQP topic syntax ("#" for everything,
// "<slug>.*" for one restaurant).
func (c *Client) Subscribe(pattern, consumer string) (<-chan amqp.Delivery, error) {
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.QueueBind(q.Name, pattern, EventsExchange, false, nil); err != nil {
		_ = ch.Close()
		return nil, err
	}
	deliveries, err := ch.Consume(q.Name, consumer, false, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	c.subMu.Lock()
	c.subs = append(c.subs, ch)
	c.subMu.Unlock()
	return deliveries, nil
}
