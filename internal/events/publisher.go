// Package events publishes tenant-scoped domain events onto the broker.
// The websocket gateway and the notifier are its consumers; REST callers
// never wait on delivery.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eatgreet/internal/connections/rabbitmq"
	"eatgreet/internal/domain"
)

const publishTTL = 5 * time.Second

type PublisherInterface interface {
	OrderUpdated(ctx context.Context, slug, action string, order domain.Order) error
	Resource(ctx context.Context, slug, event, action string, data any) error
	Table(ctx context.Context, slug, event, tableNumber string) error
}

type Publisher struct {
	mq *rabbitmq.Client
}

func NewPublisher(mq *rabbitmq.Client) PublisherInterface {
	return &Publisher{mq: mq}
}

func (p *Publisher) OrderUpdated(ctx context.Context, slug, action string, order domain.Order) error {
	return p.publish(ctx, slug, domain.EventOrderUpdated, domain.OrderEventPayload{Action: action, Data: order})
}

func (p *Publisher) Resource(ctx context.Context, slug, event, action string, data any) error {
	return p.publish(ctx, slug, event, domain.ResourceEventPayload{Action: action, Data: data})
}

func (p *Publisher) Table(ctx context.Context, slug, event, tableNumber string) error {
	return p.publish(ctx, slug, event, domain.TableEventPayload{TableNumber: tableNumber})
}

func (p *Publisher) publish(ctx context.Context, slug, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	body, err := json.Marshal(domain.Envelope{Event: event, Restaurant: slug, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", event, err)
	}
	pctx, cancel := context.WithTimeout(ctx, publishTTL)
	defer cancel()
	if err := p.mq.Publish(pctx, slug+"."+event, body); err != nil {
		return fmt.Errorf("publish %s for %s: %w", event, slug, err)
	}
	return nil
}
