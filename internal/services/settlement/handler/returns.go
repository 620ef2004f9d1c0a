package handler

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
)

// ReturnPolicy decides what a returned line does to money and stock.
// It runs inside the transaction that flags the line; an error rolls the
// return back.
type ReturnPolicy interface {
	ApplyReturn(ctx context.Context, tx *gorm.DB, order *models.Order, item *models.OrderItem) error
}

// FlagOnlyReturns marks the line and changes nothing else.
type FlagOnlyReturns struct{}

func (FlagOnlyReturns) ApplyReturn(context.Context, *gorm.DB, *models.Order, *models.OrderItem) error {
	return nil
}

func (s *SettlementHandler) ReturnOrderItem(ctx context.Context, itemID int64) (*models.OrderItem, error) {
	actor, err := s.authorize(ctx, ElevatedRoles)
	if err != nil {
		return nil, err
	}

	var item models.OrderItem
	var order models.Order
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, itemID).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("order item %d not found", itemID))
		}
		if item.Status == models.OrderItemReturned {
			return apperr.Invalid("order item %d is already returned", itemID)
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("OrderItems").
			First(&order, item.OrderID).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("order %d not found", item.OrderID))
		}
		if order.PaymentStatus.Terminal() {
			return apperr.Invalid("order %d is %s", order.ID, order.PaymentStatus)
		}

		now := s.timestamp()
		if err := tx.Model(&item).Updates(map[string]interface{}{
			"status":     models.OrderItemReturned,
			"updated_at": now,
		}).Error; err != nil {
			return apperr.FromDB(err, "failed to return order item")
		}
		item.Status = models.OrderItemReturned
		item.UpdatedAt = now
		for i := range order.OrderItems {
			if order.OrderItems[i].ID == item.ID {
				order.OrderItems[i].Status = models.OrderItemReturned
			}
		}

		return s.returns.ApplyReturn(ctx, tx, &order, &item)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		EventType:     EventOrderItemReturned,
		OrderID:       order.ID,
		ActorID:       actor.UserID,
		CustomerID:    order.CustomerID,
		Amount:        amountPtr(item.LineTotal),
		PaymentStatus: string(order.PaymentStatus),
	})

	return &item, nil
}
