package handler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/services/settlement/pricing"
)

type CreateOrderInput struct {
	CustomerID     *int64
	ParentOrderID  *int64
	ServedBy       int64
	VATEnabled     bool
	Discount       decimal.Decimal
	Items          []pricing.LineItem
	InitialPayment *PaymentInput
}

// CreateOrder prices and persists an order with its lines. Nothing is
// written unless every line validates, stock covers every product and the
// optional initial payment is acceptable.
func (s *SettlementHandler) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	actor, err := s.authorize(ctx, CashierRoles)
	if err != nil {
		return nil, err
	}

	if len(in.Items) == 0 {
		return nil, apperr.Invalid("an order needs at least one item")
	}

	items := make([]pricing.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		if err := pricing.ValidateItem(item); err != nil {
			return nil, err
		}
		exact, err := pricing.ComputeLineTotal(item.Quantity, item.UnitPrice)
		if err != nil {
			return nil, err
		}
		item.LineTotal = pricing.Round(exact)
		items = append(items, item)
	}

	quote, err := pricing.QuoteItems(items, in.Discount, in.VATEnabled, s.vatRate)
	if err != nil {
		return nil, err
	}

	if in.InitialPayment != nil {
		if err := validatePayment(*in.InitialPayment); err != nil {
			return nil, err
		}
		if in.InitialPayment.Amount.GreaterThan(quote.Subtotal) {
			return nil, apperr.Invalid("payment %s exceeds order subtotal %s", in.InitialPayment.Amount, quote.Subtotal)
		}
	}

	if in.CustomerID != nil {
		if _, err := s.customers.GetCustomerName(ctx, *in.CustomerID); err != nil {
			return nil, err
		}
	}

	if err := s.guardStock(ctx, items); err != nil {
		return nil, err
	}

	servedBy := in.ServedBy
	if servedBy == 0 {
		servedBy = actor.UserID
	}

	now := s.timestamp()
	order := models.Order{
		CustomerID:    in.CustomerID,
		ParentOrderID: in.ParentOrderID,
		ServedBy:      servedBy,
		VATEnabled:    in.VATEnabled,
		VATRate:       quote.VATRate,
		Discount:      quote.Discount,
		GrossTotal:    quote.Gross,
		VATAmount:     quote.VAT,
		Subtotal:      quote.Subtotal,
		AmountPaid:    decimal.Zero,
		PaymentStatus: statusFor(quote.Subtotal, decimal.Zero),
		CreatedAt:     now,
		UpdatedAt:     now,
		OrderItems:    make([]models.OrderItem, 0, len(items)),
	}
	for _, item := range items {
		order.OrderItems = append(order.OrderItems, models.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitType:  item.UnitType,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
			Status:    models.OrderItemPurchased,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	var settled *settlement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.ParentOrderID != nil {
			var parent models.Order
			if err := tx.Select("id").First(&parent, *in.ParentOrderID).Error; err != nil {
				return apperr.FromDB(err, fmt.Sprintf("parent order %d not found", *in.ParentOrderID))
			}
		}

		if err := tx.Create(&order).Error; err != nil {
			return apperr.FromDB(err, "failed to create order")
		}

		if in.InitialPayment != nil {
			res, err := s.settle(tx, &order, *in.InitialPayment)
			if err != nil {
				return err
			}
			settled = res
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"served_by", order.ServedBy,
		"subtotal", order.Subtotal.String(),
		"payment_status", string(order.PaymentStatus))

	events := []Event{{
		EventType:     EventOrderCreated,
		OrderID:       order.ID,
		ActorID:       actor.UserID,
		CustomerID:    order.CustomerID,
		Amount:        amountPtr(order.Subtotal),
		PaymentStatus: string(order.PaymentStatus),
	}}
	if settled != nil {
		events = append(events, settled.events(actor.UserID, &order)...)
	}
	s.publish(ctx, events...)

	return &order, nil
}

func (s *SettlementHandler) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error
	if err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("order %d not found", id))
	}
	return &order, nil
}

func (s *SettlementHandler) ListOrders(ctx context.Context, page Page) ([]models.Order, error) {
	return s.listOrders(ctx, page, nil)
}

// ListOrdersByDateRange returns orders created between the start of from
// and the end of to, both inclusive business days.
func (s *SettlementHandler) ListOrdersByDateRange(ctx context.Context, from, to string, vatEnabled bool, page Page) ([]models.Order, error) {
	start, _, err := s.dayWindow(from)
	if err != nil {
		return nil, err
	}
	_, end, err := s.dayWindow(to)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, apperr.Invalid("date range %s..%s is empty", from, to)
	}
	return s.listOrders(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at >= ? AND created_at < ? AND vat_enabled = ?", start, end, vatEnabled)
	})
}

func (s *SettlementHandler) ListOrdersByDay(ctx context.Context, date string, page Page) ([]models.Order, error) {
	start, end, err := s.dayWindow(date)
	if err != nil {
		return nil, err
	}
	return s.listOrders(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("created_at >= ? AND created_at < ?", start, end)
	})
}

func (s *SettlementHandler) ListOrdersByCustomer(ctx context.Context, customerID int64, page Page) ([]models.Order, error) {
	return s.listOrders(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("customer_id = ?", customerID)
	})
}

func (s *SettlementHandler) ListOrdersByServedBy(ctx context.Context, userID int64, page Page) ([]models.Order, error) {
	return s.listOrders(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("served_by = ?", userID)
	})
}

func (s *SettlementHandler) ListChildOrders(ctx context.Context, parentID int64, page Page) ([]models.Order, error) {
	return s.listOrders(ctx, page, func(db *gorm.DB) *gorm.DB {
		return db.Where("parent_order_id = ?", parentID)
	})
}

func (s *SettlementHandler) listOrders(ctx context.Context, page Page, scope func(*gorm.DB) *gorm.DB) ([]models.Order, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if scope != nil {
		query = scope(query)
	}

	orders := make([]models.Order, 0)
	err := page.apply(query).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, apperr.FromDB(err, "failed to list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
