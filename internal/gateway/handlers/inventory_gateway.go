package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"emirates-backoffice/internal/database/models"
	inventory "emirates-backoffice/internal/services/inventory/handler"
)

type InventoryService interface {
	CreateProduct(ctx context.Context, in inventory.CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	DecrementStock(ctx context.Context, id int64, qty decimal.Decimal) error
	ListLowStock(ctx context.Context, skip, limit int) ([]models.Product, error)
}

type InventoryHTTPHandler struct {
	service InventoryService
}

func NewInventoryHTTPHandler(service InventoryService) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{
		service: service,
	}
}

// Request structs
type CreateProductRequest struct {
	ItemCode      *string                `json:"item_code,omitempty"`
	ItemName      string                 `json:"item_name" binding:"required"`
	Category      models.ProductCategory `json:"category" binding:"required"`
	PriceFull     decimal.Decimal        `json:"price_full"`
	PriceHalf     decimal.NullDecimal    `json:"price_half"`
	PricePerUnit  decimal.NullDecimal    `json:"price_per_unit"`
	Stock         decimal.Decimal        `json:"stock"`
	AlarmQuantity decimal.Decimal        `json:"alarm_quantity"`
}

type DecrementStockRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

// Query structs
type ListLowStockQuery struct {
	Skip  int `form:"skip,default=0"`
	Limit int `form:"limit,default=20"`
}

func (h *InventoryHTTPHandler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	product, err := h.service.CreateProduct(ctx, inventory.CreateProductInput{
		ItemCode:      req.ItemCode,
		ItemName:      req.ItemName,
		Category:      req.Category,
		PriceFull:     req.PriceFull,
		PriceHalf:     req.PriceHalf,
		PricePerUnit:  req.PricePerUnit,
		Stock:         req.Stock,
		AlarmQuantity: req.AlarmQuantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Product created successfully", product))
}

func (h *InventoryHTTPHandler) GetProduct(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Product retrieved successfully", product))
}

func (h *InventoryHTTPHandler) DecrementStock(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req DecrementStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.DecrementStock(ctx, id, req.Quantity); err != nil {
		respondError(c, err)
		return
	}

	product, err := h.service.GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Stock updated successfully", product))
}

func (h *InventoryHTTPHandler) ListLowStock(c *gin.Context) {
	var q ListLowStockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	products, err := h.service.ListLowStock(ctx, q.Skip, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Low stock products retrieved successfully", products, gin.H{
		"skip":  q.Skip,
		"limit": q.Limit,
		"count": len(products),
	}))
}
