package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"emirates-backoffice/internal/database/models"
	settlement "emirates-backoffice/internal/services/settlement/handler"
	"emirates-backoffice/internal/services/settlement/pricing"
)

type SettlementService interface {
	CreateOrder(ctx context.Context, in settlement.CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, page settlement.Page) ([]models.Order, error)
	ListOrdersByDateRange(ctx context.Context, from, to string, vatEnabled bool, page settlement.Page) ([]models.Order, error)
	ListOrdersByDay(ctx context.Context, date string, page settlement.Page) ([]models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64, page settlement.Page) ([]models.Order, error)
	ListOrdersByServedBy(ctx context.Context, userID int64, page settlement.Page) ([]models.Order, error)
	ListChildOrders(ctx context.Context, parentID int64, page settlement.Page) ([]models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID int64, status models.PaymentStatus) (*models.Order, error)
	ReturnOrderItem(ctx context.Context, itemID int64) (*models.OrderItem, error)
	RecordPayment(ctx context.Context, orderID int64, in settlement.PaymentInput) (*models.Payment, error)
	ListPayments(ctx context.Context, orderID int64) ([]models.Payment, error)
	TotalCashToday(ctx context.Context) (decimal.Decimal, error)
	TotalCashOn(ctx context.Context, date string) (decimal.Decimal, error)
	OpenOrUpdateCredit(ctx context.Context, orderID, customerID int64, amountDue decimal.Decimal) (*models.Credit, error)
	ListOutstandingCredits(ctx context.Context, customerID int64) (*settlement.CreditSummaryList, error)
	CheckAvailability(ctx context.Context, productID int64, required decimal.Decimal) (*settlement.StockAvailability, error)
}

type SettlementHTTPHandler struct {
	service SettlementService
}

func NewSettlementHTTPHandler(service SettlementService) *SettlementHTTPHandler {
	return &SettlementHTTPHandler{
		service: service,
	}
}

// Request structs
type OrderItemRequest struct {
	ProductID int64           `json:"product_id" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitType  models.UnitType `json:"unit_type" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type PaymentRequest struct {
	Amount    decimal.Decimal      `json:"amount"`
	Method    models.PaymentMethod `json:"method" binding:"required"`
	Reference *string              `json:"reference,omitempty"`
}

type CreateOrderRequest struct {
	CustomerID     *int64             `json:"customer_id,omitempty"`
	ParentOrderID  *int64             `json:"parent_order_id,omitempty"`
	ServedBy       int64              `json:"served_by,omitempty"`
	VATEnabled     bool               `json:"vat_enabled"`
	Discount       decimal.Decimal    `json:"discount"`
	Items          []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	InitialPayment *PaymentRequest    `json:"initial_payment,omitempty"`
}

type RecordPaymentRequest struct {
	OrderID int64 `json:"order_id" binding:"required"`
	PaymentRequest
}

type UpdatePaymentStatusRequest struct {
	PaymentStatus models.PaymentStatus `json:"payment_status" binding:"required"`
}

type OpenCreditRequest struct {
	OrderID    int64           `json:"order_id" binding:"required"`
	CustomerID int64           `json:"customer_id" binding:"required"`
	AmountDue  decimal.Decimal `json:"amount_due"`
}

// Query structs
type DateRangeQuery struct {
	settlement.Page
	From       string `form:"from" binding:"required"`
	To         string `form:"to" binding:"required"`
	VATEnabled bool   `form:"vat_enabled,default=false"`
}

type AvailabilityQuery struct {
	Quantity string `form:"quantity" binding:"required"`
}

func (r PaymentRequest) input() settlement.PaymentInput {
	return settlement.PaymentInput{
		Amount:    r.Amount,
		Method:    r.Method,
		Reference: r.Reference,
	}
}

func bindPage(c *gin.Context) (settlement.Page, bool) {
	var page settlement.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		badRequest(c, "invalid pagination: "+err.Error())
		return page, false
	}
	return page, true
}

func ordersResponse(c *gin.Context, orders []models.Order, page settlement.Page) {
	c.JSON(http.StatusOK, successWithMetaResponse("Orders retrieved successfully", orders, gin.H{
		"skip":  page.Skip,
		"limit": page.Limit,
		"count": len(orders),
	}))
}

// --- Order Handlers ---

func (h *SettlementHTTPHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	items := make([]pricing.LineItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, pricing.LineItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitType:  it.UnitType,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}

	in := settlement.CreateOrderInput{
		CustomerID:    req.CustomerID,
		ParentOrderID: req.ParentOrderID,
		ServedBy:      req.ServedBy,
		VATEnabled:    req.VATEnabled,
		Discount:      req.Discount,
		Items:         items,
	}
	if req.InitialPayment != nil {
		p := req.InitialPayment.input()
		in.InitialPayment = &p
	}

	order, err := h.service.CreateOrder(ctx, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Order created successfully", order))
}

func (h *SettlementHTTPHandler) GetOrder(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.service.GetOrder(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Order retrieved successfully", order))
}

func (h *SettlementHTTPHandler) ListOrders(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.service.ListOrders(ctx, page)
	if err != nil {
		respondError(c, err)
		return
	}
	ordersResponse(c, orders, page)
}

func (h *SettlementHTTPHandler) ListOrdersByDateRange(c *gin.Context) {
	var q DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.service.ListOrdersByDateRange(ctx, q.From, q.To, q.VATEnabled, q.Page)
	if err != nil {
		respondError(c, err)
		return
	}
	ordersResponse(c, orders, q.Page)
}

func (h *SettlementHTTPHandler) ListOrdersByDay(c *gin.Context) {
	page, ok := bindPage(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	orders, err := h.service.ListOrdersByDay(ctx, c.Param("date"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	ordersResponse(c, orders, page)
}

// listByID serves the order listings keyed by a path id.
func (h *SettlementHTTPHandler) listByID(param string, list func(context.Context, int64, settlement.Page) ([]models.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, param)
		if !ok {
			return
		}
		page, ok := bindPage(c)
		if !ok {
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		orders, err := list(ctx, id, page)
		if err != nil {
			respondError(c, err)
			return
		}
		ordersResponse(c, orders, page)
	}
}

func (h *SettlementHTTPHandler) ListOrdersByCustomer(c *gin.Context) {
	h.listByID("id", h.service.ListOrdersByCustomer)(c)
}

func (h *SettlementHTTPHandler) ListOrdersByServedBy(c *gin.Context) {
	h.listByID("id", h.service.ListOrdersByServedBy)(c)
}

func (h *SettlementHTTPHandler) ListChildOrders(c *gin.Context) {
	h.listByID("id", h.service.ListChildOrders)(c)
}

func (h *SettlementHTTPHandler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	order, err := h.service.UpdatePaymentStatus(ctx, id, req.PaymentStatus)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Payment status updated successfully", order))
}

func (h *SettlementHTTPHandler) ReturnOrderItem(c *gin.Context) {
	id, ok := idParam(c, "itemId")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	item, err := h.service.ReturnOrderItem(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Item returned successfully", item))
}

// --- Payment Handlers ---

func (h *SettlementHTTPHandler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	payment, err := h.service.RecordPayment(ctx, req.OrderID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse("Payment recorded successfully", payment))
}

func (h *SettlementHTTPHandler) ListPayments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	payments, err := h.service.ListPayments(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Payments retrieved successfully", payments, gin.H{
		"count": len(payments),
	}))
}

func (h *SettlementHTTPHandler) TotalCashToday(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	total, err := h.service.TotalCashToday(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Cash total retrieved successfully", gin.H{
		"total_cash": total,
	}))
}

func (h *SettlementHTTPHandler) TotalCashOn(c *gin.Context) {
	date := c.Param("date")

	ctx, cancel := requestContext(c)
	defer cancel()

	total, err := h.service.TotalCashOn(ctx, date)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Cash total retrieved successfully", gin.H{
		"date":       date,
		"total_cash": total,
	}))
}

// --- Credit Handlers ---

func (h *SettlementHTTPHandler) OpenOrUpdateCredit(c *gin.Context) {
	var req OpenCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	credit, err := h.service.OpenOrUpdateCredit(ctx, req.OrderID, req.CustomerID, req.AmountDue)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Credit saved successfully", credit))
}

func (h *SettlementHTTPHandler) ListOutstandingCredits(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.service.ListOutstandingCredits(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Outstanding credits retrieved successfully"
	if list.Empty {
		message = list.Message
	}
	c.JSON(http.StatusOK, successResponse(message, list))
}

// --- Stock Handlers ---

func (h *SettlementHTTPHandler) CheckAvailability(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "quantity is required")
		return
	}
	qty, err := decimal.NewFromString(q.Quantity)
	if err != nil {
		badRequest(c, "Invalid quantity")
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	availability, err := h.service.CheckAvailability(ctx, id, qty)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Availability checked", availability))
}
