package handler

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/services/settlement/pricing"
)

type StockAvailability struct {
	ProductID  int64           `json:"product_id"`
	Required   decimal.Decimal `json:"required"`
	Available  decimal.Decimal `json:"available"`
	Sufficient bool            `json:"sufficient"`
}

// CheckAvailability reads current stock. It reserves nothing.
func (s *SettlementHandler) CheckAvailability(ctx context.Context, productID int64, required decimal.Decimal) (*StockAvailability, error) {
	if !required.IsPositive() {
		return nil, apperr.Invalid("required quantity must be greater than zero")
	}

	product, err := s.inventory.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	return &StockAvailability{
		ProductID:  productID,
		Required:   required,
		Available:  product.Stock,
		Sufficient: product.Stock.GreaterThanOrEqual(required),
	}, nil
}

// guardStock checks the combined quantity per product across all lines
// against the stored stock, never a cached copy.
func (s *SettlementHandler) guardStock(ctx context.Context, items []pricing.LineItem) error {
	required := make(map[int64]decimal.Decimal, len(items))
	for _, item := range items {
		required[item.ProductID] = required[item.ProductID].Add(item.Quantity)
	}

	ids := make([]int64, 0, len(required))
	for id := range required {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		product, err := s.inventory.GetProductFresh(ctx, id)
		if err != nil {
			return err
		}
		if product.Stock.LessThan(required[id]) {
			return apperr.InsufficientStockf("product %d: only %s remaining, %s requested",
				id, product.Stock, required[id])
		}
	}
	return nil
}
