package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emirates-backoffice/internal/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticAuthorizer map[int64]string

func (a staticAuthorizer) Authorize(_ context.Context, actor utils.Actor, roles ...string) bool {
	for _, r := range roles {
		if a[actor.UserID] == r {
			return true
		}
	}
	return false
}

func newEngine(auth Authorizer) *gin.Engine {
	r := gin.New()
	r.GET("/me", JWTAuth(), RequireRoles(auth, "admin"), func(c *gin.Context) {
		actor, _ := utils.ActorFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"username": actor.Username})
	})
	return r
}

func get(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuthAndRoles(t *testing.T) {
	r := newEngine(staticAuthorizer{1: "admin", 2: "junior_cashier"})

	adminToken, _, err := utils.GenerateToken(1, "njeri", "admin", time.Hour)
	require.NoError(t, err)
	cashierToken, _, err := utils.GenerateToken(2, "otieno", "junior_cashier", time.Hour)
	require.NoError(t, err)
	expired, _, err := utils.GenerateToken(1, "njeri", "admin", -time.Minute)
	require.NoError(t, err)

	w := get(r, "Bearer "+adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"username":"njeri"}`, w.Body.String())

	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+cashierToken).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, adminToken).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer "+expired).Code)
}

func TestRoleFromTokenIsNotTrusted(t *testing.T) {
	// user 2 holds a token claiming admin but is a cashier in storage
	r := newEngine(staticAuthorizer{2: "junior_cashier"})

	token, _, err := utils.GenerateToken(2, "otieno", "admin", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer "+token).Code)
}
