package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emirates-backoffice/internal/apperr"
	"emirates-backoffice/internal/database/models"
	"emirates-backoffice/internal/services/settlement/pricing"
)

func TestPartialPaymentThenSettlement(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "1000")
	f.events.reset()

	payment, err := f.handler.RecordPayment(cashier(), order.ID, PaymentInput{Amount: d("400"), Method: models.PaymentMethodCash})
	require.NoError(t, err)
	assert.NotZero(t, payment.ID)
	assert.Nil(t, payment.Reference)

	stored := f.reloadOrder(t, order.ID)
	assert.Equal(t, models.PaymentStatusPartiallyPaid, stored.PaymentStatus)
	assertDecimal(t, "400", stored.AmountPaid)

	credit := f.reloadCredit(t, order.ID)
	assertDecimal(t, "600", credit.AmountDue)
	assert.Equal(t, f.customer.ID, credit.CustomerID)
	assert.Nil(t, credit.SettledAt)
	assert.Equal(t, []string{EventPaymentRecorded, EventCreditOpened}, f.events.types())

	_, err = f.handler.RecordPayment(cashier(), order.ID, PaymentInput{
		Amount:    d("600"),
		Method:    models.PaymentMethodMpesa,
		Reference: ref(" QK71XYZ "),
	})
	require.NoError(t, err)

	stored = f.reloadOrder(t, order.ID)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assertDecimal(t, "1000", stored.AmountPaid)

	credit = f.reloadCredit(t, order.ID)
	assert.True(t, credit.AmountDue.IsZero())
	assert.Equal(t, models.CreditStatusPaid, credit.Status)
	require.NotNil(t, credit.SettledAt)

	payments, err := f.handler.ListPayments(context.Background(), order.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	require.NotNil(t, payments[1].Reference)
	assert.Equal(t, "QK71XYZ", *payments[1].Reference)

	_, err = f.handler.RecordPayment(cashier(), order.ID, PaymentInput{Amount: d("1"), Method: models.PaymentMethodCash})
	assertKind(t, apperr.InvalidInput, err)
	assert.Equal(t, int64(2), f.count(t, &models.Payment{}))
}

func TestAnonymousOrderSplitPaymentOpensNoCredit(t *testing.T) {
	f := newFixture(t)
	order, err := f.handler.CreateOrder(cashier(), CreateOrderInput{
		Items: []pricing.LineItem{line(f.glass.ID, "2", "500")},
	})
	require.NoError(t, err)

	_, err = f.handler.RecordPayment(cashier(), order.ID, PaymentInput{Amount: d("400"), Method: models.PaymentMethodCash})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPartiallyPaid, f.reloadOrder(t, order.ID).PaymentStatus)
	assert.Zero(t, f.count(t, &models.Credit{}))

	_, err = f.handler.RecordPayment(cashier(), order.ID, PaymentInput{Amount: d("600"), Method: models.PaymentMethodNumber, Reference: ref("CHQ-0091")})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, f.reloadOrder(t, order.ID).PaymentStatus)
}

func TestRecordPaymentRejections(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "1000")

	cases := []struct {
		name    string
		orderID int64
		in      PaymentInput
		kind    apperr.Kind
	}{
		{"zero amount", order.ID, PaymentInput{Amount: d("0"), Method: models.PaymentMethodCash}, apperr.InvalidInput},
		{"negative amount", order.ID, PaymentInput{Amount: d("-5"), Method: models.PaymentMethodCash}, apperr.InvalidInput},
		{"sub-cent amount", order.ID, PaymentInput{Amount: d("10.005"), Method: models.PaymentMethodCash}, apperr.InvalidInput},
		{"unknown method", order.ID, PaymentInput{Amount: d("10"), Method: "Card"}, apperr.InvalidInput},
		{"mpesa without reference", order.ID, PaymentInput{Amount: d("10"), Method: models.PaymentMethodMpesa}, apperr.InvalidInput},
		{"blank reference", order.ID, PaymentInput{Amount: d("10"), Method: models.PaymentMethodNumber, Reference: ref("  ")}, apperr.InvalidInput},
		{"above outstanding", order.ID, PaymentInput{Amount: d("1000.01"), Method: models.PaymentMethodCash}, apperr.InvalidInput},
		{"missing order", 9090, PaymentInput{Amount: d("10"), Method: models.PaymentMethodCash}, apperr.NotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.handler.RecordPayment(cashier(), tc.orderID, tc.in)
			assertKind(t, tc.kind, err)
		})
	}

	_, err := f.handler.RecordPayment(actorCtx(models.RoleStockManager), order.ID, PaymentInput{Amount: d("10"), Method: models.PaymentMethodCash})
	assertKind(t, apperr.Forbidden, err)

	assert.Zero(t, f.count(t, &models.Payment{}))
	assert.Equal(t, models.PaymentStatusUnpaid, f.reloadOrder(t, order.ID).PaymentStatus)
}

func TestRecordPaymentOnTerminalOrder(t *testing.T) {
	f := newFixture(t)
	order := f.createOrder(t, "1000")

	_, err := f.handler.UpdatePaymentStatus(supervisor(), order.ID, models.PaymentStatusFailed)
	require.NoError(t, err)

	_, err = f.handler.RecordPayment(cashier(), order.ID, PaymentInput{Amount: d("10"), Method: models.PaymentMethodCash})
	assertKind(t, apperr.InvalidInput, err)
}

func TestPaymentEventsDoNotBlockWrites(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("redis unavailable")

	order := f.createOrder(t, "1000")
	_, err := f.handler.RecordPayment(cashier(), order.ID, PaymentInput{Amount: d("1000"), Method: models.PaymentMethodCash})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, f.reloadOrder(t, order.ID).PaymentStatus)
	assert.NotEmpty(t, f.events.types())
}

func TestListPaymentsUnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.handler.ListPayments(context.Background(), 31337)
	assertKind(t, apperr.NotFound, err)

	order := f.createOrder(t, "100")
	payments, err := f.handler.ListPayments(context.Background(), order.ID)
	require.NoError(t, err)
	assert.NotNil(t, payments)
	assert.Empty(t, payments)
}

func TestCashTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.createOrder(t, "1000")
	_, err := f.handler.RecordPayment(cashier(), first.ID, PaymentInput{Amount: d("400"), Method: models.PaymentMethodCash})
	require.NoError(t, err)
	_, err = f.handler.RecordPayment(cashier(), first.ID, PaymentInput{Amount: d("250.50"), Method: models.PaymentMethodCash})
	require.NoError(t, err)
	_, err = f.handler.RecordPayment(cashier(), first.ID, PaymentInput{Amount: d("300"), Method: models.PaymentMethodMpesa, Reference: ref("QA1")})
	require.NoError(t, err)

	// 00:30 EAT on the 15th, still the 14th in UTC
	f.clock.Set(time.Date(2026, 3, 15, 0, 30, 0, 0, eat))
	second := f.createOrder(t, "500")
	_, err = f.handler.RecordPayment(cashier(), second.ID, PaymentInput{Amount: d("50"), Method: models.PaymentMethodCash})
	require.NoError(t, err)

	total, err := f.handler.TotalCashOn(ctx, "2026-03-14")
	require.NoError(t, err)
	assertDecimal(t, "650.50", total)

	total, err = f.handler.TotalCashOn(ctx, "2026-03-15")
	require.NoError(t, err)
	assertDecimal(t, "50", total)

	total, err = f.handler.TotalCashToday(ctx)
	require.NoError(t, err)
	assertDecimal(t, "50", total)

	total, err = f.handler.TotalCashOn(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	for _, bad := range []string{"14/03/2026", "2026-02-30", "", "2026-3-14"} {
		_, err = f.handler.TotalCashOn(ctx, bad)
		assertKind(t, apperr.InvalidInput, err)
	}
}
