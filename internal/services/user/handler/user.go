package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/utils"
)

const (
	USER_CACHE_PREFIX = "user:"
	CACHE_TTL_SHORT   = 5 * time.Minute
	CACHE_TTL_MEDIUM  = 30 * time.Minute
)

var validRoles = map[string]bool{
	models.RoleAdmin:         true,
	models.RoleCEO:           true,
	models.RoleSeniorCashier: true,
	models.RoleJuniorCashier: true,
	models.RoleStockManager:  true,
}

type UserHandler struct {
	db       *gorm.DB
	redis    *redis.Client
	tokenTTL time.Duration
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client, tokenTTL time.Duration) *UserHandler {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &UserHandler{
		db:       db,
		redis:    redisClient,
		tokenTTL: tokenTTL,
	}
}

func (s *UserHandler) InvalidateUserCaches(ctx context.Context, userIDs ...int64) {
	if s.redis == nil {
		return
	}
	for _, id := range userIDs {
		_ = s.redis.Del(ctx, userCacheKey(id))
	}
}

func userCacheKey(id int64) string {
	return fmt.Sprintf("%srole:%d", USER_CACHE_PREFIX, id)
}

type CreateUserInput struct {
	Username  string
	Password  string
	Firstname string
	Lastname  string
	Phone     string
	Role      string
}

func (s *UserHandler) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		return nil, apperr.Invalid("username and password are required")
	}
	if len(in.Password) < 8 {
		return nil, apperr.Invalid("password must be at least 8 characters")
	}
	if !validRoles[in.Role] {
		return nil, apperr.Invalid("unknown role %q", in.Role)
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal("error hashing password", err)
	}

	user := models.User{
		Username:  strings.TrimSpace(in.Username),
		Password:  string(pwHash),
		Firstname: in.Firstname,
		Lastname:  in.Lastname,
		Phone:     in.Phone,
		Role:      in.Role,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.FromDB(err, "username or phone already exists")
	}
	return &user, nil
}

type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Authenticate verifies credentials of an active user and issues a token
// carrying the user's role.
func (s *UserHandler) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperr.Invalid("username and password are required")
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("username = ? AND is_active = ?", username, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbiddenf("invalid username or password")
		}
		return nil, apperr.FromDB(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Forbiddenf("invalid username or password")
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Username, user.Role, s.tokenTTL)
	if err != nil {
		return nil, apperr.Internal("error generating token", err)
	}

	now := time.Now().UTC()
	user.LastLogin = &now
	if err := s.db.WithContext(ctx).Model(&user).Update("last_login", now).Error; err != nil {
		return nil, apperr.FromDB(err, "failed to record login")
	}

	s.InvalidateUserCaches(ctx, user.ID)

	return &LoginResult{Token: token, ExpiresAt: exp, User: &user}, nil
}

// Authorize checks the actor's current role in the user table rather than
// trusting the role baked into the token. Inactive users are denied.
func (s *UserHandler) Authorize(ctx context.Context, actor utils.Actor, roles ...string) bool {
	role, ok := s.activeRole(ctx, actor.UserID)
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *UserHandler) activeRole(ctx context.Context, userID int64) (string, bool) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, userCacheKey(userID)).Result(); err == nil {
			return cached, cached != ""
		}
	}

	var user models.User
	err := s.db.WithContext(ctx).Select("id", "role", "is_active").First(&user, userID).Error
	role := ""
	if err == nil && user.IsActive {
		role = user.Role
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false
	}

	if s.redis != nil {
		_ = s.redis.Set(ctx, userCacheKey(userID), role, CACHE_TTL_SHORT).Err()
	}
	return role, role != ""
}

func (s *UserHandler) SetActive(ctx context.Context, userID int64, active bool) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_active", active)
	if res.Error != nil {
		return apperr.FromDB(res.Error, "failed to update user")
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("user %d not found", userID)
	}
	s.InvalidateUserCaches(ctx, userID)
	return nil
}
