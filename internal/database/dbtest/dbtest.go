// Package dbtest opens throwaway in-memory databases with the settlement
// schema for package tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"emirates-backoffice/internal/database"
	"emirates-backoffice/internal/database/models"
)

// Open returns a migrated in-memory database private to t. The pool is
// pinned to one connection, so code under test must use the transaction
// handle inside Transaction callbacks.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.MigrateSettlementDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedCustomer(t *testing.T, db *gorm.DB, name, phone string) models.Customer {
	t.Helper()
	customer := models.Customer{Name: name, PhoneNumber: phone, CreatedAt: time.Now().UTC()}
	if err := db.Create(&customer).Error; err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer
}

func SeedProduct(t *testing.T, db *gorm.DB, name string, price, stock string) models.Product {
	t.Helper()
	product := models.Product{
		ItemName:      name,
		Category:      models.ProductCategoryGlass,
		PriceFull:     decimal.RequireFromString(price),
		Stock:         decimal.RequireFromString(stock),
		AlarmQuantity: decimal.NewFromInt(2),
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func SeedUser(t *testing.T, db *gorm.DB, username, role string, active bool) models.User {
	t.Helper()
	user := models.User{
		Username:  username,
		Password:  "x",
		Firstname: username,
		Phone:     "tel-" + username,
		Role:      role,
		IsActive:  active,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}
