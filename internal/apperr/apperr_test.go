package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

func TestSentinelMatching(t *testing.T) {
	err := Invalid("discount %s exceeds total", "300")

	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "discount 300 exceeds total", err.Error())

	wrapped := fmt.Errorf("create order: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidInput))
	assert.Equal(t, InvalidInput, KindOf(wrapped))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, InternalFault, KindOf(errors.New("boom")))
}

func TestFromDB(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "record not found", err: gorm.ErrRecordNotFound, want: NotFound},
		{name: "duplicated key", err: gorm.ErrDuplicatedKey, want: Conflict},
		{name: "foreign key", err: gorm.ErrForeignKeyViolated, want: Conflict},
		{name: "pg unique violation", err: &pgconn.PgError{Code: "23505"}, want: Conflict},
		{name: "pg check violation", err: &pgconn.PgError{Code: "23514"}, want: Conflict},
		{name: "pg serialization failure", err: &pgconn.PgError{Code: "40001"}, want: InternalFault},
		{name: "already classified", err: NotFoundf("order 7 not found"), want: NotFound},
		{name: "unknown", err: errors.New("connection reset"), want: InternalFault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromDB(tt.err, "query failed")
			assert.Equal(t, tt.want, KindOf(got))
		})
	}

	assert.Nil(t, FromDB(nil, "unused"))
}

func TestGRPCStatus(t *testing.T) {
	err := Forbiddenf("role %q may not create orders", "stock_manager")

	st, ok := status.FromError(err)
	assert.True(t, ok)
	assert.Equal(t, codes.PermissionDenied, st.Code())
	assert.Equal(t, codes.FailedPrecondition, InsufficientStock.GRPCCode())
}
