package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	token, exp, err := GenerateToken(42, "wanjiku", "senior_cashier", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserId)
	assert.Equal(t, "wanjiku", claims.Username)
	assert.Equal(t, Actor{UserID: 42, Username: "wanjiku", Role: "senior_cashier"}, claims.Actor())
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	expired, _, err := GenerateToken(1, "a", "ceo", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	saved := JwtSecret
	JwtSecret = []byte("other-secret")
	foreign, _, err := GenerateToken(1, "a", "ceo", time.Hour)
	JwtSecret = saved
	require.NoError(t, err)
	_, err = ParseToken(foreign)
	assert.Error(t, err)

	_, err = ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestActorContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithActor(context.Background(), Actor{UserID: 7, Role: "ceo"})
	actor, ok := ActorFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), actor.UserID)
	assert.Equal(t, "ceo", actor.Role)
}
