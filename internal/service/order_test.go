package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/realtime"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	client  = models.Principal{UserID: 3, Role: models.RoleClient}
	other   = models.Principal{UserID: 8, Role: models.RoleClient}
	seller  = models.Principal{UserID: 4, Role: models.RoleSeller}
	rival   = models.Principal{UserID: 5, Role: models.RoleSeller}
	admin   = models.Principal{UserID: 1, Role: models.RoleAdmin}
	orderID = "5b8f3c4e-9a61-4d0e-8f1e-2f6a3f0b1c11"
)

func seedOrder(repo *fakeOrderRepo, total int64) *models.Order {
	o := &models.Order{
		ID:     orderID,
		UserID: client.UserID,
		Items: []models.OrderItem{
			{Product: 7, Name: "Margherita", Price: decimal.NewFromInt(total), Qty: 1},
		},
		Total:  decimal.NewFromInt(total),
		Status: models.StatusReceived,
	}
	repo.put(o, seller.UserID)
	return o
}

func TestOrderService_Create(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := service.NewOrderService(newLogger(), repo, &fakeNotifier{}, &stepClock{now: time.Now()})

	order, err := svc.Create(context.Background(), client, service.CreateOrderInput{
		Items: []models.OrderItem{{Product: 7, Name: "Margherita", Price: decimal.NewFromInt(750), Qty: 2}},
		// trusted as sent, even though the lines add up to 1500
		Total:            decimal.NewFromInt(1400),
		DeliveryLocation: &models.DeliveryLocation{Address: "Moi Avenue"},
	})
	require.NoError(t, err)
	assert.Len(t, order.ID, 36)
	assert.Equal(t, client.UserID, order.UserID)
	assert.Equal(t, models.StatusReceived, order.Status)
	assert.True(t, decimal.NewFromInt(1400).Equal(order.Total))
	assert.Equal(t, models.PaymentUnpaid, order.Payment.State())
}

func TestOrderService_AccessPolicy(t *testing.T) {
	repo := newFakeOrderRepo()
	seedOrder(repo, 1500)
	svc := service.NewOrderService(newLogger(), repo, &fakeNotifier{}, &stepClock{now: time.Now()})
	ctx := context.Background()

	for _, p := range []models.Principal{client, seller, admin} {
		_, err := svc.Get(ctx, p, orderID)
		assert.NoError(t, err, p.Role)
	}
	for _, p := range []models.Principal{other, rival} {
		_, err := svc.Get(ctx, p, orderID)
		assert.ErrorIs(t, err, service.ErrForbidden, p.Role)
	}

	_, err := svc.Get(ctx, admin, "not-a-uuid")
	assert.ErrorIs(t, err, service.ErrInvalidOrderID)

	_, err = svc.Get(ctx, admin, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestOrderService_ListScopesByRole(t *testing.T) {
	repo := newFakeOrderRepo()
	seedOrder(repo, 1500)
	repo.put(&models.Order{ID: "11111111-1111-1111-1111-111111111111", UserID: other.UserID}, rival.UserID)
	svc := service.NewOrderService(newLogger(), repo, &fakeNotifier{}, &stepClock{now: time.Now()})
	ctx := context.Background()

	mine, err := svc.List(ctx, client)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, orderID, mine[0].ID)

	sellers, err := svc.List(ctx, rival)
	require.NoError(t, err)
	require.Len(t, sellers, 1)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", sellers[0].ID)

	all, err := svc.List(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestOrderService_UpdateStatus_Notifies(t *testing.T) {
	repo := newFakeOrderRepo()
	seedOrder(repo, 1500)
	notifier := &fakeNotifier{}
	svc := service.NewOrderService(newLogger(), repo, notifier, &stepClock{now: time.Now()})

	order, err := svc.UpdateStatus(context.Background(), seller, orderID, models.StatusOutForDelivery)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOutForDelivery, order.Status)

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, realtime.ScopeOrder, sent[0].scope)
	assert.Equal(t, realtime.EventOrderUpdated, sent[0].event.Name)
	assert.Equal(t, realtime.OrderUpdatedPayload{OrderID: orderID, Status: models.StatusOutForDelivery}, sent[0].event.Data)
}

func TestOrderService_UpdateStatus_ClientForbidden(t *testing.T) {
	repo := newFakeOrderRepo()
	seedOrder(repo, 1500)
	notifier := &fakeNotifier{}
	svc := service.NewOrderService(newLogger(), repo, notifier, &stepClock{now: time.Now()})

	_, err := svc.UpdateStatus(context.Background(), client, orderID, models.StatusDelivered)
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = svc.UpdateStatus(context.Background(), rival, orderID, models.StatusDelivered)
	assert.ErrorIs(t, err, service.ErrForbidden)

	assert.Empty(t, notifier.all())
	assert.Equal(t, models.StatusReceived, repo.get(orderID).Status)
}

func TestOrderService_Delete(t *testing.T) {
	repo := newFakeOrderRepo()
	seedOrder(repo, 1500)
	notifier := &fakeNotifier{}
	svc := service.NewOrderService(newLogger(), repo, notifier, &stepClock{now: time.Now()})

	err := svc.Delete(context.Background(), other, orderID)
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.Empty(t, notifier.all())

	require.NoError(t, svc.Delete(context.Background(), client, orderID))
	assert.Nil(t, repo.get(orderID))

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, realtime.ScopeGlobal, sent[0].scope)
	assert.Equal(t, realtime.EventOrderDeleted, sent[0].event.Name)

	err = svc.Delete(context.Background(), admin, orderID)
	assert.ErrorIs(t, err, storage.ErrOrderNotFound)
}

func TestOrderService_ListPending(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := newFakeOrderRepo()
	cid := "ws_CO_1"
	repo.put(&models.Order{ID: orderID, Payment: models.Payment{CheckoutRequestID: &cid}, UpdatedAt: now.Add(-time.Hour)})
	cid2 := "ws_CO_2"
	repo.put(&models.Order{ID: "11111111-1111-1111-1111-111111111111", Payment: models.Payment{CheckoutRequestID: &cid2}, UpdatedAt: now.Add(-time.Minute)})
	svc := service.NewOrderService(newLogger(), repo, &fakeNotifier{}, &stepClock{now: now})

	pending, err := svc.ListPending(context.Background(), 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, orderID, pending[0].ID)
}
