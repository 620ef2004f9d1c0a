package models

import "time"

const (
	RoleAdmin         = "admin"
	RoleCEO           = "ceo"
	RoleSeniorCashier = "senior_cashier"
	RoleJuniorCashier = "junior_cashier"
	RoleStockManager  = "stock_manager"
)

type User struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username  string     `gorm:"uniqueIndex;not null" json:"username"`
	Password  string     `gorm:"not null" json:"-"`
	Firstname string     `gorm:"not null" json:"firstname"`
	Lastname  string     `json:"lastname"`
	Phone     string     `gorm:"uniqueIndex;not null" json:"phone"`
	Role      string     `gorm:"type:varchar(32);not null;check:chk_users_role,role IN ('admin','ceo','senior_cashier','junior_cashier','stock_manager')" json:"role"`
	IsActive  bool       `gorm:"default:false" json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	CreatedAt *time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type Customer struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	PhoneNumber string    `gorm:"uniqueIndex;not null" json:"phone_number"`
	CreatedAt   time.Time `json:"created_at"`
}
