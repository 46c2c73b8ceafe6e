package gateway

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"eatgreet/internal/domain"
)

type subscriber interface {
	Subscribe(pattern, consumer string) (<-chan amqp.Delivery, error)
}

// Consumer feeds the hub from the events exchange. It subscribes to every
// routing key so the hub sees all tenants' events and fans out per room.
type Consumer struct {
	mq  subscriber
	hub *Hub
	log *logrus.Entry
}

func NewConsumer(mq subscriber, hub *Hub, log *logrus.Entry) *Consumer {
	return &Consumer{mq: mq, hub: hub, log: log}
}

// Run consumes until ctx is cancelled or the delivery channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.mq.Subscribe("#", "gateway")
	if err != nil {
		return err
	}
	c.log.Info("gateway consuming events")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			var env domain.Envelope
			if err := json.Unmarshal(d.Body, &env); err != nil {
				c.log.WithError(err).Warn("dropping malformed event")
				d.Nack(false, false)
				continue
			}
			frame, err := json.Marshal(map[string]any{
				"event": env.Event,
				"data":  env.Data,
			})
			if err != nil {
				d.Nack(false, false)
				continue
			}
			c.hub.Broadcast(env.Restaurant, frame)
			d.Ack(false)
		}
	}
}
