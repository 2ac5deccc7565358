package offer

import (
	"context"
	"fmt"
	"testing"

	"tailorlink/internal/domain"
	"tailorlink/internal/mail"
	"tailorlink/internal/modules/notification"
	"tailorlink/internal/modules/order"
	"tailorlink/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

type testEnv struct {
	svc      *Service
	notifs   *notification.Service
	users    *repository.UserRepository
	offers   *repository.OfferRepository
	orders   *repository.OrderRepository
	customer *domain.User
	tailor   *domain.User
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:offer_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(
		gormsqlite.New(gormsqlite.Config{DriverName: "sqlite", DSN: dsn}),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)},
	)
	require.NoError(t, err)
	require.NoError(t, repository.AutoMigrate(db))
	require.NoError(t, notification.AutoMigrate(db))

	users := repository.NewUserRepository(db)
	offers := repository.NewOfferRepository(db)
	orders := repository.NewOrderRepository(db)

	// nil pusher: the live push transport is offline, only durable rows remain
	notifSvc := notification.NewService(notification.NewRepository(db), nil)
	orderSvc := order.NewService(orders, offers)

	svc := NewService(offers, users, orderSvc, notifSvc, mail.NewDevConsoleMailer(false))
	// run side effects inline so tests can assert on them deterministically
	svc.dispatch = func(fn func(ctx context.Context)) { fn(context.Background()) }

	ctx := context.Background()
	customer := &domain.User{Email: "customer@test.local", Role: domain.RoleCustomer, Name: "Customer"}
	require.NoError(t, users.Create(ctx, customer))
	tailor := &domain.User{Email: "tailor@test.local", Role: domain.RoleTailor, Name: "Tailor"}
	require.NoError(t, users.Create(ctx, tailor))

	return &testEnv{
		svc:      svc,
		notifs:   notifSvc,
		users:    users,
		offers:   offers,
		orders:   orders,
		customer: customer,
		tailor:   tailor,
	}
}

func (e *testEnv) createOffer(t *testing.T, amount float64) *domain.Offer {
	t.Helper()
	o, err := e.svc.CreateOffer(context.Background(), e.customer.ID, CreateOfferRequest{
		TailorID:    e.tailor.ID,
		Amount:      amount,
		Description: "Custom jacket",
	})
	require.NoError(t, err)
	return o
}

func amountPtr(v float64) *float64 { return &v }

func TestCreateOffer(t *testing.T) {
	env := setupTestEnv(t)

	o := env.createOffer(t, 100)

	assert.Equal(t, domain.OfferPending, o.Status)
	assert.Equal(t, 100.0, o.Amount)
	assert.False(t, o.ConvertedToOrder)
	assert.Nil(t, o.OrderID)

	// the tailor got a durable notification even with the push offline
	list, unread, err := env.notifs.GetUserNotifications(context.Background(), env.tailor.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
	require.Len(t, list, 1)
	assert.Equal(t, notification.TypeOfferReceived, list[0].Type)
}

func TestCreateOfferTargetNotATailor(t *testing.T) {
	env := setupTestEnv(t)

	_, err := env.svc.CreateOffer(context.Background(), env.customer.ID, CreateOfferRequest{
		TailorID:    env.customer.ID, // a customer, not a tailor
		Amount:      100,
		Description: "Custom jacket",
	})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.CreateOffer(context.Background(), env.customer.ID, CreateOfferRequest{
		TailorID:    99999,
		Amount:      100,
		Description: "Custom jacket",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCounterMovesToNegotiating(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	updated, created, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{
		Amount:  amountPtr(120),
		Message: "Material costs more than that",
	})
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Equal(t, domain.OfferNegotiating, updated.Status)
	assert.Equal(t, 120.0, updated.Amount)
	require.Len(t, updated.NegotiationHistory, 1)
	assert.Equal(t, 120.0, updated.NegotiationHistory[0].Amount)
	assert.Equal(t, env.tailor.ID, updated.NegotiationHistory[0].By)
	assert.False(t, updated.NegotiationHistory[0].Accepted)
}

func TestCounterByNonParticipant(t *testing.T) {
	env := setupTestEnv(t)
	o := env.createOffer(t, 100)

	outsider := &domain.User{Email: "other@test.local", Role: domain.RoleCustomer, Name: "Other"}
	require.NoError(t, env.users.Create(context.Background(), outsider))

	_, _, err := env.svc.Negotiate(context.Background(), o.ID, outsider.ID, NegotiateRequest{Amount: amountPtr(90)})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestHalfAcceptByTailor(t *testing.T) {
	env := setupTestEnv(t)
	o := env.createOffer(t, 100)

	updated, created, err := env.svc.Negotiate(context.Background(), o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Equal(t, domain.OfferAcceptedByTailor, updated.Status)
	assert.False(t, updated.ConvertedToOrder)
	require.Len(t, updated.NegotiationHistory, 1)
	assert.True(t, updated.NegotiationHistory[0].Accepted)
}

func TestDuplicateHalfAcceptConflicts(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	_, _, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)

	// same role accepting again must fail loudly, not silently no-op
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := env.offers.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferAcceptedByTailor, stored.Status)
}

func TestDualAcceptanceCreatesOrder(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	// tailor counters at 120
	updated, _, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Amount: amountPtr(120)})
	require.NoError(t, err)
	assert.Equal(t, domain.OfferNegotiating, updated.Status)
	require.Len(t, updated.NegotiationHistory, 1)

	// customer accepts at 120
	updated, created, err := env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true, Amount: amountPtr(120)})
	require.NoError(t, err)
	assert.Nil(t, created)
	assert.Equal(t, domain.OfferAcceptedByCustomer, updated.Status)

	// tailor accepts -> fully accepted, order materialized
	updated, created, err = env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, domain.OfferAccepted, updated.Status)
	require.NotNil(t, updated.FinalAmount)
	assert.Equal(t, 120.0, *updated.FinalAmount)
	assert.True(t, updated.ConvertedToOrder)
	require.NotNil(t, updated.OrderID)
	assert.Equal(t, created.ID, *updated.OrderID)
	assert.Len(t, updated.NegotiationHistory, 3)

	assert.Equal(t, domain.OrderPending, created.Status)
	assert.Equal(t, 120.0, created.TotalPrice)
	require.Len(t, created.Items, 1)
	assert.Equal(t, order.CustomOrderServiceName, created.Items[0].ServiceName)
	assert.Equal(t, 120.0, created.Items[0].Price)
	require.NotNil(t, created.Invoice)
	assert.Equal(t, 120.0, created.Invoice.Total)

	// exactly one order references this offer
	orders, err := env.orders.ListByParticipant(ctx, env.customer.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, o.ID, orders[0].OfferID)

	// both parties got durable accepted + order notifications
	for _, uid := range []int64{env.customer.ID, env.tailor.ID} {
		list, _, err := env.notifs.GetUserNotifications(ctx, uid, 20)
		require.NoError(t, err)
		var gotAccepted, gotOrder bool
		for _, n := range list {
			switch n.Type {
			case notification.TypeOfferAccepted:
				gotAccepted = true
			case notification.TypeOrderCreated:
				gotOrder = true
			}
		}
		assert.True(t, gotAccepted, "user %d missing accepted notification", uid)
		assert.True(t, gotOrder, "user %d missing order notification", uid)
	}
}

func TestDualAcceptanceReverseOrder(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	_, _, err := env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)

	updated, created, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, domain.OfferAccepted, updated.Status)
	require.NotNil(t, updated.FinalAmount)
	// no explicit amount, no counter: falls back to the original offer amount
	assert.Equal(t, 100.0, *updated.FinalAmount)
}

func TestAcceptAmountFallsBackToLatestHistory(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	_, _, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Amount: amountPtr(130)})
	require.NoError(t, err)

	_, _, err = env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)

	updated, created, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)
	require.NotNil(t, created)
	require.NotNil(t, updated.FinalAmount)
	assert.Equal(t, 130.0, *updated.FinalAmount)
	assert.Equal(t, 130.0, created.TotalPrice)
}

func TestRejectForbiddenForCustomer(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	_, err := env.svc.Reject(ctx, o.ID, env.customer.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := env.offers.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferPending, stored.Status)
}

func TestCancelForbiddenForTailor(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	_, err := env.svc.Cancel(ctx, o.ID, env.tailor.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := env.offers.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferPending, stored.Status)
}

func TestRejectedOfferIsTerminal(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	rejected, err := env.svc.Reject(ctx, o.ID, env.tailor.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferRejected, rejected.Status)

	_, _, err = env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true})
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	assert.ErrorIs(t, err, ErrConflict)
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Amount: amountPtr(80)})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.svc.Cancel(ctx, o.ID, env.customer.ID)
	assert.ErrorIs(t, err, ErrConflict)

	// terminal transitions leave a durable record for both parties
	for _, uid := range []int64{env.customer.ID, env.tailor.ID} {
		list, _, err := env.notifs.GetUserNotifications(ctx, uid, 20)
		require.NoError(t, err)
		var gotRejected bool
		for _, n := range list {
			if n.Type == notification.TypeOfferRejected {
				gotRejected = true
			}
		}
		assert.True(t, gotRejected, "user %d missing rejected notification", uid)
	}
}

func TestAcceptedOfferIsTerminal(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	_, _, err := env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)
	_, created, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)
	require.NotNil(t, created)

	_, _, err = env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Amount: amountPtr(90)})
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.svc.Cancel(ctx, o.ID, env.customer.ID)
	assert.ErrorIs(t, err, ErrConflict)
	_, err = env.svc.Reject(ctx, o.ID, env.tailor.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCancelledOfferIsTerminal(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	cancelled, err := env.svc.Cancel(ctx, o.ID, env.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferCancelled, cancelled.Status)

	_, _, err = env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestHistoryGrowsWithEveryCommittedStep(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	_, _, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Amount: amountPtr(120)})
	require.NoError(t, err)
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Amount: amountPtr(110)})
	require.NoError(t, err)
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)

	// a failed call must not append anything
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true})
	assert.ErrorIs(t, err, ErrConflict)

	updated, err := env.offers.GetWithHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, updated.NegotiationHistory, 3)
	assert.Equal(t, 120.0, updated.NegotiationHistory[0].Amount)
	assert.Equal(t, 110.0, updated.NegotiationHistory[1].Amount)
	assert.True(t, updated.NegotiationHistory[2].Accepted)
}

func TestEndToEndNegotiationScenario(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	// customer opens at $100
	o := env.createOffer(t, 100)

	// tailor counters at $120
	updated, _, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Amount: amountPtr(120)})
	require.NoError(t, err)
	assert.Equal(t, domain.OfferNegotiating, updated.Status)
	assert.Len(t, updated.NegotiationHistory, 1)

	// customer accepts at $120
	updated, _, err = env.svc.Negotiate(ctx, o.ID, env.customer.ID, NegotiateRequest{Accepted: true, Amount: amountPtr(120)})
	require.NoError(t, err)
	assert.Equal(t, domain.OfferAcceptedByCustomer, updated.Status)

	// tailor accepts
	updated, created, err := env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Accepted: true})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, domain.OfferAccepted, updated.Status)
	require.NotNil(t, updated.FinalAmount)
	assert.Equal(t, 120.0, *updated.FinalAmount)
	require.Len(t, created.Items, 1)
	assert.Equal(t, 120.0, created.Items[0].Price)
}

func TestValidation(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.CreateOffer(ctx, env.customer.ID, CreateOfferRequest{
		TailorID: env.tailor.ID, Amount: -5, Description: "bad",
	})
	assert.ErrorIs(t, err, ErrValidation)

	o := env.createOffer(t, 100)
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{})
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = env.svc.Negotiate(ctx, o.ID, env.tailor.ID, NegotiateRequest{Amount: amountPtr(0)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListForUser(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	env.createOffer(t, 100)
	env.createOffer(t, 200)

	offers, err := env.svc.ListForUser(ctx, env.customer.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 2)

	offers, err = env.svc.ListForUser(ctx, env.tailor.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 2)

	outsider := &domain.User{Email: "nobody@test.local", Role: domain.RoleCustomer, Name: "Nobody"}
	require.NoError(t, env.users.Create(ctx, outsider))
	offers, err = env.svc.ListForUser(ctx, outsider.ID)
	require.NoError(t, err)
	assert.Len(t, offers, 0)
}

func TestGetByIDRequiresParticipant(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	o := env.createOffer(t, 100)

	outsider := &domain.User{Email: "peek@test.local", Role: domain.RoleTailor, Name: "Peek"}
	require.NoError(t, env.users.Create(ctx, outsider))

	_, err := env.svc.GetByID(ctx, o.ID, outsider.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.svc.GetByID(ctx, o.ID, env.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = env.svc.GetByID(ctx, 99999, env.customer.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
