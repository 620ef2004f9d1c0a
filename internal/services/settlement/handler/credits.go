package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/services/settlement/pricing"
)

type CreditSummary struct {
	CreditID     int64               `json:"credit_id"`
	OrderID      int64               `json:"order_id"`
	CustomerID   int64               `json:"customer_id"`
	CustomerName string              `json:"customer_name"`
	Amount       decimal.Decimal     `json:"amount"`
	AmountDue    decimal.Decimal     `json:"amount_due"`
	Status       models.CreditStatus `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
}

// CreditSummaryList reports an empty result explicitly rather than as an error.
type CreditSummaryList struct {
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	Credits      []CreditSummary `json:"credits"`
	TotalDue     decimal.Decimal `json:"total_due"`
	Empty        bool            `json:"empty"`
	Message      string          `json:"message,omitempty"`
}

// amortizeCredit reduces amount_due on a locked credit. settled_at is
// written once, on the payment that brings the balance to zero.
func (s *SettlementHandler) amortizeCredit(tx *gorm.DB, credit *models.Credit, amount decimal.Decimal) error {
	if credit.Status == models.CreditStatusPaid {
		return apperr.Invalid("credit for order %d is already settled", credit.OrderID)
	}
	if !amount.IsPositive() {
		return apperr.Invalid("credit payment must be greater than zero")
	}
	if amount.GreaterThan(credit.AmountDue) {
		return apperr.Invalid("payment %s exceeds amount due %s", amount, credit.AmountDue)
	}

	now := s.timestamp()
	credit.AmountDue = credit.AmountDue.Sub(amount)
	if credit.AmountDue.IsZero() {
		credit.Status = models.CreditStatusPaid
		if credit.SettledAt == nil {
			credit.SettledAt = &now
		}
	} else {
		credit.Status = models.CreditStatusPartiallyPaid
	}
	credit.UpdatedAt = now

	if err := tx.Model(credit).Updates(map[string]interface{}{
		"amount_due": credit.AmountDue,
		"status":     credit.Status,
		"settled_at": credit.SettledAt,
		"updated_at": now,
	}).Error; err != nil {
		return apperr.FromDB(err, "failed to update credit")
	}
	return nil
}

// ApplyCreditPayment takes a cash repayment against an order's credit.
// The payment goes through the same ledger path as RecordPayment, so the
// order totals and the credit move in one transaction. Non-cash
// repayments go through RecordPayment with their reference.
func (s *SettlementHandler) ApplyCreditPayment(ctx context.Context, orderID int64, paid decimal.Decimal) (models.CreditStatus, error) {
	actor, err := s.authorize(ctx, CashierRoles)
	if err != nil {
		return "", err
	}
	in := PaymentInput{Amount: paid, Method: models.PaymentMethodCash}
	if err := validatePayment(in); err != nil {
		return "", err
	}

	var order models.Order
	var res *settlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("order %d not found", orderID))
		}

		var credit models.Credit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&credit).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("no credit for order %d", orderID))
		}
		if credit.Status == models.CreditStatusPaid {
			return apperr.Invalid("credit for order %d is already settled", orderID)
		}
		if paid.GreaterThan(credit.AmountDue) {
			return apperr.Invalid("payment %s exceeds amount due %s", paid, credit.AmountDue)
		}

		var err error
		res, err = s.settle(tx, &order, in)
		return err
	})
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "credit repayment recorded",
		"order_id", order.ID,
		"payment_id", res.payment.ID,
		"amount", res.payment.Amount.String(),
		"credit_status", string(res.credit.Status),
		"payment_status", string(order.PaymentStatus))

	s.publish(ctx, res.events(actor.UserID, &order)...)

	return res.credit.Status, nil
}

// OpenOrUpdateCredit opens the credit of an under-paid order. On an
// existing credit it only confirms the current amount due; the balance
// moves through payments alone.
func (s *SettlementHandler) OpenOrUpdateCredit(ctx context.Context, orderID, customerID int64, amountDue decimal.Decimal) (*models.Credit, error) {
	actor, err := s.authorize(ctx, CashierRoles)
	if err != nil {
		return nil, err
	}
	if amountDue.IsNegative() {
		return nil, apperr.Invalid("amount due cannot be negative")
	}
	if !amountDue.Equal(pricing.Round(amountDue)) {
		return nil, apperr.Invalid("amount due %s has more than %d decimal places", amountDue, pricing.MoneyPlaces)
	}

	var credit models.Credit
	unchanged := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("order %d not found", orderID))
		}
		if order.CustomerID == nil || *order.CustomerID != customerID {
			return apperr.Invalid("order %d does not belong to customer %d", orderID, customerID)
		}
		if order.PaymentStatus.Terminal() {
			return apperr.Invalid("order %d is %s", orderID, order.PaymentStatus)
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&credit).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if !amountDue.IsPositive() {
				return apperr.Invalid("a new credit needs an amount due greater than zero")
			}
			if outstanding := order.Outstanding(); amountDue.GreaterThan(outstanding) {
				return apperr.Invalid("amount due %s exceeds outstanding balance %s", amountDue, outstanding)
			}
			now := s.timestamp()
			credit = models.Credit{
				OrderID:    orderID,
				CustomerID: customerID,
				Amount:     amountDue,
				AmountDue:  amountDue,
				Status:     models.CreditStatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			return apperr.FromDB(tx.Create(&credit).Error, "failed to open credit")
		}
		if err != nil {
			return apperr.FromDB(err, "failed to load credit")
		}

		if !amountDue.Equal(credit.AmountDue) {
			return apperr.Invalid("credit for order %d has %s due; record a payment to change it", orderID, credit.AmountDue)
		}
		unchanged = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if unchanged {
		return &credit, nil
	}
	s.publish(ctx, Event{
		EventType:    EventCreditOpened,
		OrderID:      orderID,
		ActorID:      actor.UserID,
		CustomerID:   &credit.CustomerID,
		Amount:       amountPtr(credit.AmountDue),
		CreditStatus: string(credit.Status),
	})

	return &credit, nil
}

func (s *SettlementHandler) ListOutstandingCredits(ctx context.Context, customerID int64) (*CreditSummaryList, error) {
	name, err := s.customers.GetCustomerName(ctx, customerID)
	if err != nil {
		return nil, err
	}

	var credits []models.Credit
	if err := s.db.WithContext(ctx).
		Where("customer_id = ? AND status <> ?", customerID, models.CreditStatusPaid).
		Order("created_at ASC, id ASC").
		Find(&credits).Error; err != nil {
		return nil, apperr.FromDB(err, "failed to list credits")
	}

	list := &CreditSummaryList{
		CustomerID:   customerID,
		CustomerName: name,
		Credits:      make([]CreditSummary, 0, len(credits)),
		TotalDue:     decimal.Zero,
	}
	for _, c := range credits {
		list.Credits = append(list.Credits, CreditSummary{
			CreditID:     c.ID,
			OrderID:      c.OrderID,
			CustomerID:   c.CustomerID,
			CustomerName: name,
			Amount:       c.Amount,
			AmountDue:    c.AmountDue,
			Status:       c.Status,
			CreatedAt:    c.CreatedAt,
		})
		list.TotalDue = list.TotalDue.Add(c.AmountDue)
	}

	if len(list.Credits) == 0 {
		list.Empty = true
		list.Message = fmt.Sprintf("%s has no outstanding credit", name)
	}
	return list, nil
}
