package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/services/settlement/pricing"
)

type PaymentInput struct {
	Amount    decimal.Decimal
	Method    models.PaymentMethod
	Reference *string
}

func validatePayment(in PaymentInput) error {
	if !in.Amount.IsPositive() {
		return apperr.Invalid("payment amount must be greater than zero")
	}
	if !in.Amount.Equal(pricing.Round(in.Amount)) {
		return apperr.Invalid("payment amount %s has more than %d decimal places", in.Amount, pricing.MoneyPlaces)
	}
	if !in.Method.Valid() {
		return apperr.Invalid("unknown payment method %q", in.Method)
	}
	if in.Method != models.PaymentMethodCash && (in.Reference == nil || strings.TrimSpace(*in.Reference) == "") {
		return apperr.Invalid("a reference is required for %s payments", in.Method)
	}
	return nil
}

// settlement is what one payment did to an order inside its transaction.
type settlement struct {
	payment      *models.Payment
	credit       *models.Credit
	creditOpened bool
}

func (r *settlement) events(actorID int64, order *models.Order) []Event {
	events := []Event{{
		EventType:     EventPaymentRecorded,
		OrderID:       order.ID,
		ActorID:       actorID,
		CustomerID:    order.CustomerID,
		Amount:        amountPtr(r.payment.Amount),
		PaymentStatus: string(order.PaymentStatus),
	}}
	if r.credit != nil {
		eventType := EventCreditUpdated
		if r.creditOpened {
			eventType = EventCreditOpened
		}
		events = append(events, Event{
			EventType:    eventType,
			OrderID:      order.ID,
			ActorID:      actorID,
			CustomerID:   &r.credit.CustomerID,
			Amount:       amountPtr(r.credit.AmountDue),
			CreditStatus: string(r.credit.Status),
		})
	}
	return events
}

// settle appends a payment to a locked order, re-derives the cached
// totals from the ledger and opens or amortizes the order's credit.
func (s *SettlementHandler) settle(tx *gorm.DB, order *models.Order, in PaymentInput) (*settlement, error) {
	if order.PaymentStatus.Terminal() {
		return nil, apperr.Invalid("order %d is %s and accepts no payments", order.ID, order.PaymentStatus)
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperr.Invalid("order %d is already paid", order.ID)
	}
	if outstanding := order.Outstanding(); in.Amount.GreaterThan(outstanding) {
		return nil, apperr.Invalid("payment %s exceeds outstanding balance %s", in.Amount, outstanding)
	}

	now := s.timestamp()
	payment := models.Payment{
		OrderID: order.ID,
		Amount:  in.Amount,
		Method:  in.Method,
		PaidAt:  now,
	}
	if in.Reference != nil && strings.TrimSpace(*in.Reference) != "" {
		ref := strings.TrimSpace(*in.Reference)
		payment.Reference = &ref
	}
	if err := tx.Create(&payment).Error; err != nil {
		return nil, apperr.FromDB(err, "failed to record payment")
	}

	var paid decimal.Decimal
	row := tx.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("order_id = ?", order.ID).
		Row()
	if err := row.Scan(&paid); err != nil {
		return nil, apperr.Internal("failed to total payments", err)
	}
	paid = pricing.Round(paid)

	order.AmountPaid = paid
	order.PaymentStatus = statusFor(order.Subtotal, paid)
	order.UpdatedAt = now
	if err := tx.Model(order).Updates(map[string]interface{}{
		"amount_paid":    order.AmountPaid,
		"payment_status": order.PaymentStatus,
		"updated_at":     now,
	}).Error; err != nil {
		return nil, apperr.FromDB(err, "failed to update order totals")
	}

	res := &settlement{payment: &payment}

	var credit models.Credit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ?", order.ID).
		First(&credit).Error
	switch {
	case err == nil:
		if credit.Status != models.CreditStatusPaid {
			if err := s.amortizeCredit(tx, &credit, decimal.Min(in.Amount, credit.AmountDue)); err != nil {
				return nil, err
			}
		}
		res.credit = &credit
	case errors.Is(err, gorm.ErrRecordNotFound):
		if order.PaymentStatus != models.PaymentStatusPartiallyPaid || order.CustomerID == nil {
			break
		}
		due := order.Outstanding()
		credit = models.Credit{
			OrderID:    order.ID,
			CustomerID: *order.CustomerID,
			Amount:     due,
			AmountDue:  due,
			Status:     models.CreditStatusPending,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Create(&credit).Error; err != nil {
			return nil, apperr.FromDB(err, "failed to open credit")
		}
		res.credit = &credit
		res.creditOpened = true
	default:
		return nil, apperr.FromDB(err, "failed to load credit")
	}

	return res, nil
}

// RecordPayment appends a payment and reconciles the order and its
// credit in one transaction. Payments are never deduplicated; a caller
// retrying after an unknown outcome must check ListPayments first.
func (s *SettlementHandler) RecordPayment(ctx context.Context, orderID int64, in PaymentInput) (*models.Payment, error) {
	actor, err := s.authorize(ctx, CashierRoles)
	if err != nil {
		return nil, err
	}
	if err := validatePayment(in); err != nil {
		return nil, err
	}

	var order models.Order
	var res *settlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("order %d not found", orderID))
		}
		var err error
		res, err = s.settle(tx, &order, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "payment recorded",
		"order_id", order.ID,
		"payment_id", res.payment.ID,
		"amount", res.payment.Amount.String(),
		"method", string(res.payment.Method),
		"payment_status", string(order.PaymentStatus))

	s.publish(ctx, res.events(actor.UserID, &order)...)

	return res.payment, nil
}

func (s *SettlementHandler) ListPayments(ctx context.Context, orderID int64) ([]models.Payment, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Select("id").First(&order, orderID).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("order %d not found", orderID))
	}

	payments := make([]models.Payment, 0)
	if err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("paid_at ASC, id ASC").
		Find(&payments).Error; err != nil {
		return nil, apperr.FromDB(err, "failed to list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}

func (s *SettlementHandler) TotalCashToday(ctx context.Context) (decimal.Decimal, error) {
	return s.TotalCashOn(ctx, s.today())
}

// TotalCashOn sums cash payments taken during the given business day.
func (s *SettlementHandler) TotalCashOn(ctx context.Context, date string) (decimal.Decimal, error) {
	start, end, err := s.dayWindow(date)
	if err != nil {
		return decimal.Zero, err
	}

	var total decimal.Decimal
	row := s.db.WithContext(ctx).
		Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("method = ? AND paid_at >= ? AND paid_at < ?", models.PaymentMethodCash, start, end).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, apperr.Internal("failed to total cash payments", err)
	}
	return pricing.Round(total), nil
}
