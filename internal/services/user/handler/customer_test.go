package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/dbtest"
)

func TestCustomerDirectory(t *testing.T) {
	client, mr := newRedis(t)
	s := NewCustomerHandler(dbtest.Open(t), client)
	ctx := context.Background()

	customer, err := s.CreateCustomer(ctx, " Baraka Mwangi ", "0733444555")
	require.NoError(t, err)
	assert.Equal(t, "Baraka Mwangi", customer.Name)

	_, err = s.CreateCustomer(ctx, "Someone Else", "0733444555")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = s.CreateCustomer(ctx, "", "0700")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	name, err := s.GetCustomerName(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "Baraka Mwangi", name)

	cached, err := mr.Get(customerNameKey(customer.ID))
	require.NoError(t, err)
	assert.Equal(t, "Baraka Mwangi", cached)
	assert.Equal(t, CACHE_TTL_MEDIUM, mr.TTL(customerNameKey(customer.ID)))

	// the cache answers without touching the table
	mr.Set(customerNameKey(424242), "Cached Only")
	name, err = s.GetCustomerName(ctx, 424242)
	require.NoError(t, err)
	assert.Equal(t, "Cached Only", name)

	_, err = s.GetCustomerName(ctx, 777)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.GetCustomer(ctx, 777)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
