package handler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
)

// statusFor derives the payment status from the ledger total.
func statusFor(subtotal, paid decimal.Decimal) models.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(subtotal):
		return models.PaymentStatusPaid
	case paid.IsPositive():
		return models.PaymentStatusPartiallyPaid
	default:
		return models.PaymentStatusUnpaid
	}
}

// checkOverride allows only the administrative transitions: Paid to
// Refunded, and any non-terminal status to Failed.
func checkOverride(from, to models.PaymentStatus) error {
	switch to {
	case models.PaymentStatusRefunded:
		if from != models.PaymentStatusPaid {
			return apperr.Invalid("only paid orders can be refunded, order is %s", from)
		}
	case models.PaymentStatusFailed:
		if from.Terminal() {
			return apperr.Invalid("order is already %s", from)
		}
	default:
		if !to.Valid() {
			return apperr.Invalid("unknown payment status %q", to)
		}
		return apperr.Invalid("status %s can only be reached by recording payments", to)
	}
	return nil
}

// UpdatePaymentStatus is the administrative override. Ledgers are not
// reconciled for Refunded or Failed orders.
func (s *SettlementHandler) UpdatePaymentStatus(ctx context.Context, orderID int64, newStatus models.PaymentStatus) (*models.Order, error) {
	actor, err := s.authorize(ctx, ElevatedRoles)
	if err != nil {
		return nil, err
	}

	var order models.Order
	var previous models.PaymentStatus
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("order %d not found", orderID))
		}
		if err := checkOverride(order.PaymentStatus, newStatus); err != nil {
			return err
		}

		previous = order.PaymentStatus
		now := s.timestamp()
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"payment_status": newStatus,
			"updated_at":     now,
		}).Error; err != nil {
			return apperr.FromDB(err, "failed to update payment status")
		}
		order.PaymentStatus = newStatus
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment status overridden",
		"order_id", order.ID,
		"from", string(previous),
		"to", string(newStatus),
		"actor_id", actor.UserID)

	s.publish(ctx, Event{
		EventType:     EventOrderStatusChanged,
		OrderID:       order.ID,
		ActorID:       actor.UserID,
		CustomerID:    order.CustomerID,
		PaymentStatus: string(newStatus),
	})

	return &order, nil
}
