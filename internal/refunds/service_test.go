package refunds

import (
	"context"
	"fmt"
	"testing"

	"github.com/aridelgado/blindbox-backend/pkg/db/models"
	"github.com/aridelgado/blindbox-backend/pkg/enums"
	pkgerrors "github.com/aridelgado/blindbox-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type fakeRoles struct {
	admins map[uuid.UUID]bool
}

func (f *fakeRoles) IsAdmin(_ context.Context, id uuid.UUID) (bool, error) {
	return f.admins[id], nil
}

// recordingDisburser counts transfers and can be told to fail.
type recordingDisburser struct {
	fail      bool
	transfers []int64
}

func (d *recordingDisburser) Disburse(_ context.Context, _ uuid.UUID, amountWei int64) error {
	if d.fail {
		return pkgerrors.New(pkgerrors.CodePayoutFailed, "simulated transfer failure")
	}
	d.transfers = append(d.transfers, amountWei)
	return nil
}

type fixture struct {
	db        *gorm.DB
	svc       Service
	disburser *recordingDisburser
	admin     uuid.UUID
	buyer     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:refunds_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.DeliveryLogEntry{}, &models.RefundTicket{}, &models.Payment{}))

	f := &fixture{db: db, disburser: &recordingDisburser{}, admin: uuid.New(), buyer: uuid.New()}
	roles := &fakeRoles{admins: map[uuid.UUID]bool{f.admin: true}}
	svc, err := NewService(NewRepository(db), roles, f.disburser, &gormTx{db: db}, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) seedOrder(t *testing.T, status enums.OrderStatus, paidWei int64) *models.Order {
	t.Helper()
	order := &models.Order{
		BuyerID:   f.buyer,
		ProductID: 1,
		Qty:       1,
		PaidWei:   paidWei,
		Status:    status,
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func (f *fixture) orderStatus(t *testing.T, orderID int64) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.First(&order, "id = ?", orderID).Error)
	return order.Status
}

func TestOpenRefundValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)

	_, err := f.svc.OpenRefund(ctx, uuid.New(), order.ID, enums.RefundTypePartial, 500)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	_, err = f.svc.OpenRefund(ctx, f.buyer, order.ID, enums.RefundType("store_credit"), 500)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.OpenRefund(ctx, f.buyer, order.ID, enums.RefundTypePartial, 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = f.svc.OpenRefund(ctx, f.buyer, order.ID, enums.RefundTypePartial, 1500)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	paidOnly := f.seedOrder(t, enums.OrderStatusPaid, 1000)
	_, err = f.svc.OpenRefund(ctx, f.buyer, paidOnly.ID, enums.RefundTypePartial, 500)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	ticket, err := f.svc.OpenRefund(ctx, f.buyer, order.ID, enums.RefundTypePartial, 500)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundTicketStatusOpen, ticket.Status)

	// pending confirmation is also refundable
	pending := f.seedOrder(t, enums.OrderStatusPendingConfirmation, 1000)
	_, err = f.svc.OpenRefund(ctx, f.buyer, pending.ID, enums.RefundTypeFull, 1000)
	require.NoError(t, err)
}

func TestTicketFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)

	ticket, err := f.svc.OpenRefund(ctx, f.buyer, order.ID, enums.RefundTypePartial, 500)
	require.NoError(t, err)

	// pay requires approval first
	err = f.svc.PayRefund(ctx, f.admin, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	err = f.svc.ApproveRefund(ctx, f.buyer, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	require.NoError(t, f.svc.ApproveRefund(ctx, f.admin, ticket.ID))

	require.NoError(t, f.svc.PayRefund(ctx, f.admin, ticket.ID))
	assert.Equal(t, []int64{500}, f.disburser.transfers)
	assert.Equal(t, enums.OrderStatusRefunded, f.orderStatus(t, order.ID))

	stored, err := f.svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundTicketStatusPaid, stored.Status)

	// the payout happened exactly once
	err = f.svc.PayRefund(ctx, f.admin, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, []int64{500}, f.disburser.transfers)

	var logs []models.DeliveryLogEntry
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "REFUND_PAID", logs[0].Note)
}

func TestRejectRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)

	ticket, err := f.svc.OpenRefund(ctx, f.buyer, order.ID, enums.RefundTypePartial, 500)
	require.NoError(t, err)

	require.NoError(t, f.svc.RejectRefund(ctx, f.admin, ticket.ID))

	err = f.svc.ApproveRefund(ctx, f.admin, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestPayRefundRollsBackOnPayoutFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)

	ticket, err := f.svc.OpenRefund(ctx, f.buyer, order.ID, enums.RefundTypeFull, 1000)
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveRefund(ctx, f.admin, ticket.ID))

	f.disburser.fail = true
	err = f.svc.PayRefund(ctx, f.admin, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePayoutFailed, pkgerrors.As(err).Code())

	// every state write rolled back with the failed transfer
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))
	stored, err := f.svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.RefundTicketStatusApproved, stored.Status)

	var logCount int64
	require.NoError(t, f.db.Model(&models.DeliveryLogEntry{}).Count(&logCount).Error)
	assert.Zero(t, logCount)

	// the retry succeeds once the transfer recovers
	f.disburser.fail = false
	require.NoError(t, f.svc.PayRefund(ctx, f.admin, ticket.ID))
	assert.Equal(t, enums.OrderStatusRefunded, f.orderStatus(t, order.ID))
}

func TestLegacyClaimFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)
	require.NoError(t, f.db.Create(&models.Payment{OrderID: order.ID, BuyerID: f.buyer, AmountWei: 1000}).Error)

	// nothing to claim before approval
	_, err := f.svc.ClaimRefund(ctx, f.buyer, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	err = f.svc.ApprovePartialRefund(ctx, f.admin, order.ID, 1500)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	require.NoError(t, f.svc.ApprovePartialRefund(ctx, f.admin, order.ID, 400))

	_, err = f.svc.ClaimRefund(ctx, uuid.New(), order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	amount, err := f.svc.ClaimRefund(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), amount)
	assert.Equal(t, []int64{400}, f.disburser.transfers)
	assert.Equal(t, enums.OrderStatusRefunded, f.orderStatus(t, order.ID))

	// second claim pays nothing
	_, err = f.svc.ClaimRefund(ctx, f.buyer, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Equal(t, []int64{400}, f.disburser.transfers)

	// nor can the claimed payment be re-approved
	err = f.svc.ApproveFullRefund(ctx, f.admin, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestLegacyFullRefund(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)
	require.NoError(t, f.db.Create(&models.Payment{OrderID: order.ID, BuyerID: f.buyer, AmountWei: 1000}).Error)

	require.NoError(t, f.svc.ApproveFullRefund(ctx, f.admin, order.ID))

	amount, err := f.svc.ClaimRefund(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), amount)
}

func TestLegacyClaimToleratesMissingOrderRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Create(&models.Payment{OrderID: 9001, BuyerID: f.buyer, AmountWei: 500}).Error)
	require.NoError(t, f.svc.ApproveFullRefund(ctx, f.admin, 9001))

	amount, err := f.svc.ClaimRefund(ctx, f.buyer, 9001)
	require.NoError(t, err)
	assert.Equal(t, int64(500), amount)
}

func TestLegacyClaimAbortsWhenOrderLookupFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)
	require.NoError(t, f.db.Create(&models.Payment{OrderID: order.ID, BuyerID: f.buyer, AmountWei: 1000}).Error)
	require.NoError(t, f.svc.ApproveFullRefund(ctx, f.admin, order.ID))

	// lookups now fail outright, which must abort the claim rather than
	// pay out with the status flip skipped
	require.NoError(t, f.db.Migrator().DropTable(&models.Order{}))

	_, err := f.svc.ClaimRefund(ctx, f.buyer, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "order_id = ?", order.ID).Error)
	assert.False(t, payment.RefundClaimed)
	assert.Empty(t, f.disburser.transfers)
}

func TestLegacyClaimRollsBackOnPayoutFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order := f.seedOrder(t, enums.OrderStatusCompleted, 1000)
	require.NoError(t, f.db.Create(&models.Payment{OrderID: order.ID, BuyerID: f.buyer, AmountWei: 1000}).Error)
	require.NoError(t, f.svc.ApproveFullRefund(ctx, f.admin, order.ID))

	f.disburser.fail = true
	_, err := f.svc.ClaimRefund(ctx, f.buyer, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePayoutFailed, pkgerrors.As(err).Code())

	var payment models.Payment
	require.NoError(t, f.db.First(&payment, "order_id = ?", order.ID).Error)
	assert.False(t, payment.RefundClaimed)
	assert.Equal(t, enums.OrderStatusCompleted, f.orderStatus(t, order.ID))

	f.disburser.fail = false
	amount, err := f.svc.ClaimRefund(ctx, f.buyer, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), amount)
}
