package handler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/dbtest"
	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/utils"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func newUsers(t *testing.T) (*UserHandler, *gorm.DB) {
	t.Helper()
	db := dbtest.Open(t)
	client, _ := newRedis(t)
	return NewUserHandler(db, client, time.Hour), db
}

func TestCreateUserAndAuthenticate(t *testing.T) {
	s, _ := newUsers(t)
	ctx := context.Background()

	user, err := s.CreateUser(ctx, CreateUserInput{
		Username:  "wanjiku",
		Password:  "s3cure-pass",
		Firstname: "Wanjiku",
		Phone:     "0722000111",
		Role:      models.RoleSeniorCashier,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "s3cure-pass", user.Password)

	result, err := s.Authenticate(ctx, "wanjiku", "s3cure-pass")
	require.NoError(t, err)
	require.NotNil(t, result.User.LastLogin)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, 5*time.Second)

	claims, err := utils.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserId)
	assert.Equal(t, models.RoleSeniorCashier, claims.Role)

	_, err = s.Authenticate(ctx, "wanjiku", "wrong-pass")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = s.Authenticate(ctx, "nobody", "whatever1")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = s.Authenticate(ctx, "", "")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	require.NoError(t, s.SetActive(ctx, user.ID, false))
	_, err = s.Authenticate(ctx, "wanjiku", "s3cure-pass")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestCreateUserValidation(t *testing.T) {
	s, _ := newUsers(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, CreateUserInput{Username: "a", Password: "short", Phone: "1", Role: models.RoleCEO})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = s.CreateUser(ctx, CreateUserInput{Username: "a", Password: "longenough", Phone: "1", Role: "owner"})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = s.CreateUser(ctx, CreateUserInput{Username: "a", Password: "longenough", Phone: "1", Role: models.RoleCEO})
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, CreateUserInput{Username: "a", Password: "longenough", Phone: "2", Role: models.RoleCEO})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAuthorizeUsesStoredRole(t *testing.T) {
	s, db := newUsers(t)
	ctx := context.Background()

	junior := dbtest.SeedUser(t, db, "junior", models.RoleJuniorCashier, true)
	inactive := dbtest.SeedUser(t, db, "gone", models.RoleCEO, false)

	actor := utils.Actor{UserID: junior.ID, Role: models.RoleCEO}
	assert.True(t, s.Authorize(ctx, actor, models.RoleJuniorCashier, models.RoleSeniorCashier))
	assert.False(t, s.Authorize(ctx, actor, models.RoleCEO), "token role is not trusted")

	assert.False(t, s.Authorize(ctx, utils.Actor{UserID: inactive.ID, Role: models.RoleCEO}, models.RoleCEO))
	assert.False(t, s.Authorize(ctx, utils.Actor{UserID: 9999}, models.RoleCEO))

	require.NoError(t, s.SetActive(ctx, inactive.ID, true))
	assert.True(t, s.Authorize(ctx, utils.Actor{UserID: inactive.ID}, models.RoleCEO))

	assert.ErrorIs(t, s.SetActive(ctx, 12345, true), apperr.ErrNotFound)
}

func TestAuthorizeCachesRoles(t *testing.T) {
	db := dbtest.Open(t)
	client, mr := newRedis(t)
	s := NewUserHandler(db, client, time.Hour)
	ctx := context.Background()

	user := dbtest.SeedUser(t, db, "cached", models.RoleSeniorCashier, true)
	assert.True(t, s.Authorize(ctx, utils.Actor{UserID: user.ID}, models.RoleSeniorCashier))

	cached, err := mr.Get(userCacheKey(user.ID))
	require.NoError(t, err)
	assert.Equal(t, models.RoleSeniorCashier, cached)

	mr.FastForward(CACHE_TTL_SHORT + time.Second)
	assert.False(t, mr.Exists(userCacheKey(user.ID)))
}
