package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func images(ids ...string) []models.Image {
	out := make([]models.Image, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.Image{URL: "https://img.example/" + id + ".jpg", PublicID: id})
	}
	return out
}

func TestProductService_Create_Defaults(t *testing.T) {
	repo := newFakeProductRepo()
	svc := service.NewProductService(newLogger(), repo)

	p, err := svc.Create(context.Background(), seller, service.ProductInput{
		Name:   "Margherita",
		Price:  decimal.NewFromInt(750),
		Images: images("a", "b", "c", "d", "e", "f"),
	})
	require.NoError(t, err)
	assert.Equal(t, seller.UserID, p.SellerID)
	assert.Equal(t, models.DefaultCategory, p.Category)
	assert.Len(t, p.Images, models.MaxProductImages)
	require.NotNil(t, p.CoverImage)
	assert.Equal(t, "a", p.CoverImage.PublicID)

	_, err = svc.Create(context.Background(), client, service.ProductInput{Name: "x"})
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestProductService_Update_Ownership(t *testing.T) {
	repo := newFakeProductRepo()
	svc := service.NewProductService(newLogger(), repo)
	p, err := svc.Create(context.Background(), seller, service.ProductInput{Name: "Margherita", Price: decimal.NewFromInt(750)})
	require.NoError(t, err)

	name := "Hawaiian"
	_, err = svc.Update(context.Background(), rival, p.ID, service.ProductPatch{Name: &name})
	assert.ErrorIs(t, err, service.ErrForbidden)

	price := decimal.NewFromInt(900)
	updated, err := svc.Update(context.Background(), admin, p.ID, service.ProductPatch{Name: &name, Price: &price, Images: images("a")})
	require.NoError(t, err)
	assert.Equal(t, "Hawaiian", updated.Name)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, "a", updated.CoverImage.PublicID)

	_, err = svc.Update(context.Background(), seller, 999, service.ProductPatch{})
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
}

func TestProductService_RemoveImage(t *testing.T) {
	repo := newFakeProductRepo()
	svc := service.NewProductService(newLogger(), repo)
	ctx := context.Background()
	p, err := svc.Create(ctx, seller, service.ProductInput{Name: "Margherita", Images: images("a", "b")})
	require.NoError(t, err)

	_, err = svc.RemoveImage(ctx, seller, p.ID, "zzz")
	assert.ErrorIs(t, err, service.ErrImageNotFound)

	updated, err := svc.RemoveImage(ctx, seller, p.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, images("b"), updated.Images)
	assert.Equal(t, "b", updated.CoverImage.PublicID)

	_, err = svc.RemoveImage(ctx, seller, p.ID, "b")
	assert.ErrorIs(t, err, service.ErrLastImage)
}

func TestProductService_SetCover(t *testing.T) {
	repo := newFakeProductRepo()
	svc := service.NewProductService(newLogger(), repo)
	ctx := context.Background()
	p, err := svc.Create(ctx, seller, service.ProductInput{Name: "Margherita", Images: images("a", "b")})
	require.NoError(t, err)

	updated, err := svc.SetCover(ctx, seller, p.ID, "b")
	require.NoError(t, err)
	assert.Equal(t, "b", updated.CoverImage.PublicID)

	_, err = svc.SetCover(ctx, seller, p.ID, "c")
	assert.ErrorIs(t, err, service.ErrImageNotFound)
}

func TestProductService_Delete(t *testing.T) {
	repo := newFakeProductRepo()
	svc := service.NewProductService(newLogger(), repo)
	ctx := context.Background()
	p, err := svc.Create(ctx, seller, service.ProductInput{Name: "Margherita"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, rival, p.ID), service.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, seller, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, storage.ErrProductNotFound)
}

func TestCartService_Save_Sanitizes(t *testing.T) {
	repo := &fakeCartRepo{carts: make(map[int64][]models.CartItem)}
	svc := service.NewCartService(newLogger(), repo)

	saved, err := svc.Save(context.Background(), 3, []models.CartItem{
		{Product: 7, Name: "Margherita", Price: decimal.NewFromInt(750), Qty: 0},
		{Product: 8, Name: "Pepperoni", Price: decimal.NewFromInt(900), Qty: -2},
		{Product: 9, Name: "Veggie", Price: decimal.NewFromInt(800), Qty: 3},
	})
	require.NoError(t, err)
	require.Len(t, saved, 3)
	assert.Equal(t, 1, saved[0].Qty)
	assert.Equal(t, 1, saved[1].Qty)
	assert.Equal(t, 3, saved[2].Qty)

	cart, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, saved, cart)

	empty, err := svc.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSellerService_Analytics_ZeroFills(t *testing.T) {
	now := time.Date(2024, 5, 30, 15, 30, 0, 0, time.UTC)
	repo := &fakeAnalyticsRepo{
		total: decimal.NewFromInt(4500),
		count: 3,
		byDay: map[string]decimal.Decimal{
			"2024-05-01": decimal.NewFromInt(1500),
			"2024-05-30": decimal.NewFromInt(3000),
		},
		top: []models.TopProduct{{ProductID: 7, Name: "Margherita", Qty: 6, Revenue: decimal.NewFromInt(4500)}},
	}
	svc := service.NewSellerService(newLogger(), repo, newFakeUserRepo(), &stepClock{now: now})

	a, err := svc.Analytics(context.Background(), seller.UserID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(4500).Equal(a.TotalSales))
	assert.Equal(t, 3, a.OrdersCount)

	require.Len(t, a.RevenueByDay, 30)
	assert.Equal(t, "2024-05-01", a.RevenueByDay[0].Date)
	assert.Equal(t, "2024-05-30", a.RevenueByDay[29].Date)
	assert.True(t, decimal.NewFromInt(1500).Equal(a.RevenueByDay[0].Revenue))
	assert.True(t, decimal.Zero.Equal(a.RevenueByDay[15].Revenue))
	assert.True(t, decimal.NewFromInt(3000).Equal(a.RevenueByDay[29].Revenue))

	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), repo.from)
	assert.Equal(t, 10, repo.lastLimit)
	assert.Len(t, a.TopProducts, 1)
}

func TestSellerService_Clients(t *testing.T) {
	users := newFakeUserRepo()
	users.users["a@example.com"] = &models.User{ID: 1, Email: "a@example.com", Role: models.RoleClient}
	users.users["b@example.com"] = &models.User{ID: 2, Email: "b@example.com", Role: models.RoleClient}
	users.users["s@example.com"] = &models.User{ID: 3, Email: "s@example.com", Role: models.RoleSeller}
	svc := service.NewSellerService(newLogger(), &fakeAnalyticsRepo{}, users, &stepClock{now: time.Now()})

	clients, err := svc.Clients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, int64(2), clients[0].ID)
}
