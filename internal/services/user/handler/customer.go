package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
)

const CUSTOMER_NAME_CACHE_PREFIX = "customer:name:"

type CustomerHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewCustomerHandler(db *gorm.DB, redisClient *redis.Client) *CustomerHandler {
	return &CustomerHandler{
		db:    db,
		redis: redisClient,
	}
}

func customerNameKey(id int64) string {
	return fmt.Sprintf("%s%d", CUSTOMER_NAME_CACHE_PREFIX, id)
}

func (s *CustomerHandler) CreateCustomer(ctx context.Context, name, phone string) (*models.Customer, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" || phone == "" {
		return nil, apperr.Invalid("name and phone number are required")
	}

	customer := models.Customer{Name: name, PhoneNumber: phone, CreatedAt: time.Now().UTC()}
	if err := s.db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("customer with phone %s already exists", phone))
	}
	return &customer, nil
}

func (s *CustomerHandler) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := s.db.WithContext(ctx).First(&customer, id).Error; err != nil {
		return nil, apperr.FromDB(err, fmt.Sprintf("customer %d not found", id))
	}
	return &customer, nil
}

// GetCustomerName is the display name used on credit summaries.
func (s *CustomerHandler) GetCustomerName(ctx context.Context, id int64) (string, error) {
	if s.redis != nil {
		if name, err := s.redis.Get(ctx, customerNameKey(id)).Result(); err == nil {
			return name, nil
		}
	}

	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		_ = s.redis.Set(ctx, customerNameKey(id), customer.Name, CACHE_TTL_MEDIUM).Err()
	}
	return customer.Name, nil
}
