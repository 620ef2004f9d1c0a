package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
)

const (
	INVENTORY_CACHE_PREFIX   = "inventory:product:"
	LOW_STOCK_CACHE_KEY      = "inventory:low-stock"
	CACHE_TTL_SHORT          = 5 * time.Minute
	MAX_LOW_STOCK_PAGE_LIMIT = 100
)

type InventoryHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewInventoryHandler(db *gorm.DB, redisClient *redis.Client) *InventoryHandler {
	return &InventoryHandler{
		db:    db,
		redis: redisClient,
	}
}

func (s *InventoryHandler) InvalidateInventoryCaches(ctx context.Context, productIDs ...int64) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, LOW_STOCK_CACHE_KEY)

	for _, id := range productIDs {
		_ = s.redis.Del(ctx, productCacheKey(id))
	}
}

func productCacheKey(id int64) string {
	return fmt.Sprintf("%s%d", INVENTORY_CACHE_PREFIX, id)
}

type CreateProductInput struct {
	ItemCode      *string
	ItemName      string
	Category      models.ProductCategory
	PriceFull     decimal.Decimal
	PriceHalf     decimal.NullDecimal
	PricePerUnit  decimal.NullDecimal
	Stock         decimal.Decimal
	AlarmQuantity decimal.Decimal
}

func (s *InventoryHandler) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(in.ItemName) == "" {
		return nil, apperr.Invalid("item name is required")
	}
	switch in.Category {
	case models.ProductCategoryGlass, models.ProductCategoryProfile, models.ProductCategoryAccessory:
	default:
		return nil, apperr.Invalid("unknown product category %q", in.Category)
	}
	if in.PriceFull.IsNegative() ||
		(in.PriceHalf.Valid && in.PriceHalf.Decimal.IsNegative()) ||
		(in.PricePerUnit.Valid && in.PricePerUnit.Decimal.IsNegative()) {
		return nil, apperr.Invalid("prices cannot be negative")
	}
	if in.Stock.IsNegative() || in.AlarmQuantity.IsNegative() {
		return nil, apperr.Invalid("stock and alarm quantity cannot be negative")
	}

	product := models.Product{
		ItemCode:      in.ItemCode,
		ItemName:      strings.TrimSpace(in.ItemName),
		Category:      in.Category,
		PriceFull:     in.PriceFull,
		PriceHalf:     in.PriceHalf,
		PricePerUnit:  in.PricePerUnit,
		Stock:         in.Stock,
		AlarmQuantity: in.AlarmQuantity,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, apperr.FromDB(err, "failed to create product")
	}

	s.InvalidateInventoryCaches(ctx)
	return &product, nil
}

// GetProduct serves from the redis cache when possible. Cache failures
// fall through to the database.
func (s *InventoryHandler) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, productCacheKey(id)).Result(); err == nil {
			var product models.Product
			if json.Unmarshal([]byte(cached), &product) == nil {
				return &product, nil
			}
		}
	}
	return s.GetProductFresh(ctx, id)
}

// GetProductFresh always reads the database and refreshes the cache.
func (s *InventoryHandler) GetProductFresh(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("product %d not found", id))
	}

	if s.redis != nil {
		if data, err := json.Marshal(product); err == nil {
			_ = s.redis.Set(ctx, productCacheKey(id), data, CACHE_TTL_SHORT).Err()
		}
	}
	return &product, nil
}

// DecrementStock removes qty from a locked product row, failing rather
// than going below zero.
func (s *InventoryHandler) DecrementStock(ctx context.Context, id int64, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return apperr.Invalid("quantity must be greater than zero")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, id).Error; err != nil {
			return apperr.FromDB(err, fmt.Sprintf("product %d not found", id))
		}
		if product.Stock.LessThan(qty) {
			return apperr.InsufficientStockf("%s: only %s remaining, %s requested", product.ItemName, product.Stock, qty)
		}
		if err := tx.Model(&product).Update("stock", product.Stock.Sub(qty)).Error; err != nil {
			return apperr.FromDB(err, "failed to update stock")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.InvalidateInventoryCaches(ctx, id)
	return nil
}

// ListLowStock returns products at or below their alarm quantity.
func (s *InventoryHandler) ListLowStock(ctx context.Context, skip, limit int) ([]models.Product, error) {
	if skip < 0 {
		return nil, apperr.Invalid("skip must be >= 0, got %d", skip)
	}
	if limit < 1 || limit > MAX_LOW_STOCK_PAGE_LIMIT {
		return nil, apperr.Invalid("limit must be between 1 and %d, got %d", MAX_LOW_STOCK_PAGE_LIMIT, limit)
	}

	products := make([]models.Product, 0)
	if err := s.db.WithContext(ctx).
		Where("stock <= alarm_quantity").
		Order("stock ASC, id ASC").
		Offset(skip).
		Limit(limit).
		Find(&products).Error; err != nil {
		return nil, apperr.FromDB(err, "failed to list low stock")
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}
