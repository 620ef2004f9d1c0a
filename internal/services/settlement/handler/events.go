package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "order.created"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderItemReturned  = "order.item_returned"
	EventPaymentRecorded    = "payment.recorded"
	EventCreditOpened       = "credit.opened"
	EventCreditUpdated      = "credit.updated"

	EventChannelPrefix = "settlement:events:"
	EventChannelAll    = "settlement:events:all"
)

type Event struct {
	EventType     string           `json:"event_type"`
	OrderID       int64            `json:"order_id"`
	ActorID       int64            `json:"actor_id,omitempty"`
	CustomerID    *int64           `json:"customer_id,omitempty"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	PaymentStatus string           `json:"payment_status,omitempty"`
	CreditStatus  string           `json:"credit_status,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := EventChannelPrefix + event.EventType
	if err := p.redis.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if err := p.redis.Publish(ctx, EventChannelAll, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish to all channel: %w", err)
	}

	return nil
}

// publish runs after commit; a failed publish never undoes a write.
func (s *SettlementHandler) publish(ctx context.Context, events ...Event) {
	if s.events == nil {
		return
	}
	for _, event := range events {
		if event.Timestamp.IsZero() {
			event.Timestamp = s.timestamp()
		}
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.WarnContext(ctx, "settlement event not published",
				slog.String("event_type", event.EventType),
				slog.Int64("order_id", event.OrderID),
				slog.String("error", err.Error()))
		}
	}
}

func amountPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
