package handler

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/services/settlement/pricing"
	"emirates-backoffice/internal/utils"
)

var (
	// CashierRoles may sell, take payments and manage credit.
	CashierRoles = []string{models.RoleAdmin, models.RoleCEO, models.RoleSeniorCashier, models.RoleJuniorCashier}
	// ElevatedRoles may override payment status and accept returns.
	ElevatedRoles = []string{models.RoleAdmin, models.RoleCEO, models.RoleSeniorCashier}
)

type Authorizer interface {
	Authorize(ctx context.Context, actor utils.Actor, roles ...string) bool
}

type Inventory interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	// GetProductFresh bypasses any cache.
	GetProductFresh(ctx context.Context, id int64) (*models.Product, error)
	DecrementStock(ctx context.Context, id int64, qty decimal.Decimal) error
}

type CustomerDirectory interface {
	GetCustomerName(ctx context.Context, id int64) (string, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

type SettlementHandler struct {
	db        *gorm.DB
	auth      Authorizer
	inventory Inventory
	customers CustomerDirectory
	events    EventPublisher
	returns   ReturnPolicy
	logger    *slog.Logger
	now       func() time.Time
	vatRate   decimal.Decimal
	location  *time.Location
}

type Option func(*SettlementHandler)

func WithEventPublisher(p EventPublisher) Option {
	return func(s *SettlementHandler) { s.events = p }
}

func WithReturnPolicy(p ReturnPolicy) Option {
	return func(s *SettlementHandler) { s.returns = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *SettlementHandler) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *SettlementHandler) { s.now = now }
}

func WithVATRate(rate decimal.Decimal) Option {
	return func(s *SettlementHandler) { s.vatRate = rate }
}

// WithLocation sets the timezone that defines a business day.
func WithLocation(loc *time.Location) Option {
	return func(s *SettlementHandler) {
		if loc != nil {
			s.location = loc
		}
	}
}

func NewSettlementHandler(db *gorm.DB, auth Authorizer, inventory Inventory, customers CustomerDirectory, opts ...Option) *SettlementHandler {
	s := &SettlementHandler{
		db:        db,
		auth:      auth,
		inventory: inventory,
		customers: customers,
		returns:   FlagOnlyReturns{},
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
		now:       time.Now,
		vatRate:   pricing.DefaultVATRate,
		location:  time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SettlementHandler) timestamp() time.Time {
	return s.now().UTC()
}

// authorize resolves the actor from ctx and checks it against roles.
func (s *SettlementHandler) authorize(ctx context.Context, roles []string) (utils.Actor, error) {
	actor, ok := utils.ActorFromContext(ctx)
	if !ok {
		return utils.Actor{}, apperr.Forbiddenf("no authenticated actor")
	}
	if s.auth == nil || !s.auth.Authorize(ctx, actor, roles...) {
		return utils.Actor{}, apperr.Forbiddenf("user %d is not allowed to perform this operation", actor.UserID)
	}
	return actor, nil
}

// dayWindow returns the UTC bounds of the business day named by date.
func (s *SettlementHandler) dayWindow(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.location)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.Invalid("invalid date %q, expected YYYY-MM-DD", date)
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

func (s *SettlementHandler) today() string {
	return s.now().In(s.location).Format("2006-01-02")
}
