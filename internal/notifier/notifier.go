// Package notifier is the standalone console consumer, useful for tailing
// a restaurant's event stream during development and support calls.
package notifier

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

type Notifier struct {
	mq      subscriber
	log     *logrus.Entry
	pattern string
}

// New builds a notifier bound to pattern, e.g. "spice_garden.#" for one
// restaurant or "#" for everything.
func New(mq subscriber, log *logrus.Entry, pattern string) *Notifier {
	if pattern == "" {
		pattern = "#"
	}
	return &Notifier{mq: mq, log: log, pattern: pattern}
}

func (n *Notifier) Run(ctx context.Context) error {
	deliveries, err := n.mq.Subscribe(n.pattern, "notifier")
	if err != nil {
		return err
	}
	n.log.WithField("pattern", n.pattern).Info("notifier consuming events")
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
				n.log.WithError(err).Warn("dropping malformed event")
				d.Nack(false, false)
				continue
			}
			n.log.WithFields(logrus.Fields{
				"event":      env.Event,
				"restaurant": env.Restaurant,
				"data":       string(env.Data),
			}).Info("event received")
			d.Ack(false)
		}
	}
}
