package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "Unpaid"
	PaymentStatusPartiallyPaid PaymentStatus = "PartiallyPaid"
	PaymentStatusPaid          PaymentStatus = "Paid"
	PaymentStatusRefunded      PaymentStatus = "Refunded"
	PaymentStatusFailed        PaymentStatus = "Failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartiallyPaid, PaymentStatusPaid, PaymentStatusRefunded, PaymentStatusFailed:
		return true
	}
	return false
}

// Terminal statuses accept no further payments or transitions.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusRefunded || s == PaymentStatusFailed
}

type UnitType string

const (
	UnitTypeHalf    UnitType = "half"
	UnitTypePerUnit UnitType = "per_unit"
)

func (u UnitType) Valid() bool {
	return u == UnitTypeHalf || u == UnitTypePerUnit
}

type OrderItemStatus string

const (
	OrderItemPurchased OrderItemStatus = "Purchased"
	OrderItemReturned  OrderItemStatus = "Returned"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "Cash"
	PaymentMethodMpesa  PaymentMethod = "Mpesa"
	PaymentMethodNumber PaymentMethod = "Number"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodMpesa, PaymentMethodNumber:
		return true
	}
	return false
}

type CreditStatus string

const (
	CreditStatusPending       CreditStatus = "Pending"
	CreditStatusPartiallyPaid CreditStatus = "PartiallyPaid"
	CreditStatusPaid          CreditStatus = "Paid"
)

type Order struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID    *int64          `gorm:"index" json:"customer_id,omitempty"`
	ParentOrderID *int64          `gorm:"index" json:"parent_order_id,omitempty"`
	ServedBy      int64           `gorm:"not null;index" json:"served_by"`
	VATEnabled    bool            `gorm:"not null;default:false;index" json:"vat_enabled"`
	VATRate       decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"vat_rate"`
	Discount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount"`
	GrossTotal    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"gross_total"`
	VATAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"vat_amount"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"amount_paid"`
	PaymentStatus PaymentStatus   `gorm:"type:varchar(16);not null;index;check:chk_orders_payment_status,payment_status IN ('Unpaid','PartiallyPaid','Paid','Refunded','Failed')" json:"payment_status"`
	CreatedAt     time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	OrderItems  []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
	Customer    *Customer   `gorm:"foreignKey:CustomerID" json:"-"`
	ParentOrder *Order      `gorm:"foreignKey:ParentOrderID" json:"-"`
}

// Outstanding is what remains payable on the order.
func (o Order) Outstanding() decimal.Decimal {
	return o.Subtotal.Sub(o.AmountPaid)
}

type OrderItem struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"index;not null" json:"order_id"`
	ProductID int64           `gorm:"index;not null" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	UnitType  UnitType        `gorm:"type:varchar(16);not null;check:chk_order_items_unit_type,unit_type IN ('half','per_unit')" json:"unit_type"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"line_total"`
	Status    OrderItemStatus `gorm:"type:varchar(16);not null;default:'Purchased';check:chk_order_items_status,status IN ('Purchased','Returned')" json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"-"`
}

type Payment struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64           `gorm:"index;not null" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Method    PaymentMethod   `gorm:"type:varchar(16);not null;index;check:chk_payments_method,method IN ('Cash','Mpesa','Number')" json:"method"`
	Reference *string         `gorm:"type:varchar(64)" json:"reference,omitempty"`
	PaidAt    time.Time       `gorm:"not null;index" json:"paid_at"`

	Order *Order `gorm:"foreignKey:OrderID" json:"-"`
}

type Credit struct {
	ID         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64           `gorm:"uniqueIndex;not null" json:"order_id"`
	CustomerID int64           `gorm:"index;not null" json:"customer_id"`
	Amount     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	AmountDue  decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount_due"`
	Status     CreditStatus    `gorm:"type:varchar(16);not null;index;check:chk_credits_status,status IN ('Pending','PartiallyPaid','Paid')" json:"status"`
	SettledAt  *time.Time      `json:"settled_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	Order    *Order    `gorm:"foreignKey:OrderID" json:"-"`
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"-"`
}
