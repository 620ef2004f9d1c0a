package handler

import (
	"gorm.io/gorm"

	"emirates-backoffice/internal/apperr"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Page struct {
	Skip  int `form:"skip,default=0" json:"skip"`
	Limit int `form:"limit,default=20" json:"limit"`
}

// Validate rejects out-of-range values instead of clamping them.
func (p Page) Validate() error {
	if p.Skip < 0 {
		return apperr.Invalid("skip must be >= 0, got %d", p.Skip)
	}
	if p.Limit < 1 || p.Limit > MaxPageLimit {
		return apperr.Invalid("limit must be between 1 and %d, got %d", MaxPageLimit, p.Limit)
	}
	return nil
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	return db.Offset(p.Skip).Limit(p.Limit)
}
