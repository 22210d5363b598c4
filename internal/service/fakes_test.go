package service_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/linemk/gogol-pizza/internal/domain/models"
	"github.com/linemk/gogol-pizza/internal/mpesa"
	"github.com/linemk/gogol-pizza/internal/realtime"
	"github.com/linemk/gogol-pizza/internal/service"
	"github.com/linemk/gogol-pizza/internal/storage"
	"github.com/shopspring/decimal"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

type fakeUserRepo struct {
	users map[string]*models.User // keyed by email
}

var _ storage.UserStorage = (*fakeUserRepo)(nil)

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (f *fakeUserRepo) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := f.users[user.Email]; ok {
		return nil, storage.ErrEmailTaken
	}
	user.ID = int64(len(f.users) + 1)
	f.users[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) UpsertSeller(ctx context.Context, user *models.User) (*models.User, error) {
	if existing, ok := f.users[user.Email]; ok {
		existing.Role = models.RoleSeller
		return existing, nil
	}
	user.Role = models.RoleSeller
	return f.CreateUser(ctx, user)
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id int64, passHash []byte) error {
	u, err := f.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	u.PassHash = passHash
	return nil
}

func (f *fakeUserRepo) ListClients(ctx context.Context) ([]*models.User, error) {
	clients := []*models.User{}
	for _, u := range f.users {
		if u.Role == models.RoleClient {
			clients = append(clients, u)
		}
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID > clients[j].ID })
	return clients, nil
}

// fakeOrderRepo mirrors the SQL semantics of the order repository, including the unique
// checkout id and the receipt-preserving result update.
type fakeOrderRepo struct {
	mu          sync.Mutex
	orders      map[string]*models.Order
	sellerLines map[string][]int64 // order id -> seller ids of its products
}

var _ storage.OrderStorage = (*fakeOrderRepo)(nil)

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:      make(map[string]*models.Order),
		sellerLines: make(map[string][]int64),
	}
}

func (f *fakeOrderRepo) put(o *models.Order, sellers ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
	f.sellerLines[o.ID] = sellers
}

func (f *fakeOrderRepo) get(id string) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil
	}
	c := *o
	return &c
}

func (f *fakeOrderRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *order
	f.orders[order.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeOrderRepo) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	if o := f.get(id); o != nil {
		return o, nil
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Order{}
	for id, o := range f.orders {
		switch {
		case filter.UserID != nil && o.UserID != *filter.UserID:
			continue
		case filter.SellerID != nil && !contains(f.sellerLines[id], *filter.SellerID):
			continue
		}
		c := *o
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, storage.ErrOrderNotFound
	}
	o.Status = status
	c := *o
	return &c, nil
}

func (f *fakeOrderRepo) SetCheckoutRequestID(ctx context.Context, id, checkoutRequestID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for otherID, o := range f.orders {
		if otherID != id && o.Payment.CheckoutRequestID != nil && *o.Payment.CheckoutRequestID == checkoutRequestID {
			return nil, storage.ErrConflict
		}
	}
	o, ok := f.orders[id]
	if !ok || o.Payment.State() == models.PaymentPaid || o.Payment.State() == models.PaymentPending {
		return nil, storage.ErrConflict
	}
	cid := checkoutRequestID
	o.Payment.CheckoutRequestID = &cid
	o.Payment.ResultCode = nil
	c := *o
	return &c, nil
}

func (f *fakeOrderRepo) ApplyPaymentResult(ctx context.Context, res models.PaymentResult) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.Payment.CheckoutRequestID == nil || *o.Payment.CheckoutRequestID != res.CheckoutRequestID {
			continue
		}
		code := res.ResultCode
		o.Payment.IsPaid = res.Success()
		o.Payment.ResultCode = &code
		if res.Success() && res.Receipt != nil {
			r := *res.Receipt
			o.Payment.ReceiptNumber = &r
		}
		c := *o
		return &c, nil
	}
	return nil, storage.ErrOrderNotFound
}

func (f *fakeOrderRepo) DeleteOrder(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return storage.ErrOrderNotFound
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeOrderRepo) OrderHasSellerProduct(ctx context.Context, orderID string, sellerID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[orderID]; !ok {
		return false, storage.ErrOrderNotFound
	}
	return contains(f.sellerLines[orderID], sellerID), nil
}

func (f *fakeOrderRepo) ListPendingOrders(ctx context.Context, updatedBefore time.Time) ([]*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []*models.Order{}
	for _, o := range f.orders {
		if o.Payment.State() == models.PaymentPending && o.UpdatedAt.Before(updatedBefore) {
			c := *o
			out = append(out, &c)
		}
	}
	return out, nil
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type notification struct {
	orderID string
	event   realtime.Event
	scope   realtime.Scope
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
}

var _ service.Notifier = (*fakeNotifier)(nil)

func (f *fakeNotifier) Notify(ctx context.Context, orderID string, ev realtime.Event, scope realtime.Scope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, notification{orderID: orderID, event: ev, scope: scope})
}

func (f *fakeNotifier) all() []notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notification(nil), f.sent...)
}

type fakeGateway struct {
	resp  *mpesa.STKPushResponse
	err   error
	calls []mpesa.STKPushRequest
}

var _ service.PaymentGateway = (*fakeGateway)(nil)

func (f *fakeGateway) STKPush(ctx context.Context, req mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type sentMail struct {
	to, subject, html string
}

type fakeMailer struct {
	err  error
	sent []sentMail
}

var _ service.Mailer = (*fakeMailer)(nil)

func (f *fakeMailer) Send(ctx context.Context, to, subject, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, html: html})
	return nil
}

type fakeProductRepo struct {
	products map[int64]*models.Product
	nextID   int64
}

var _ storage.ProductStorage = (*fakeProductRepo)(nil)

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[int64]*models.Product)}
}

func (f *fakeProductRepo) ListProducts(ctx context.Context, filter models.ProductFilter) ([]*models.Product, error) {
	out := []*models.Product{}
	for _, p := range f.products {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, storage.ErrProductNotFound
	}
	c := *p
	c.Images = append([]models.Image(nil), p.Images...)
	return &c, nil
}

func (f *fakeProductRepo) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	f.nextID++
	c := *p
	c.ID = f.nextID
	f.products[c.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeProductRepo) UpdateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if _, ok := f.products[p.ID]; !ok {
		return nil, storage.ErrProductNotFound
	}
	c := *p
	f.products[p.ID] = &c
	out := c
	return &out, nil
}

func (f *fakeProductRepo) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return storage.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

type fakeCartRepo struct {
	carts map[int64][]models.CartItem
}

var _ storage.CartStorage = (*fakeCartRepo)(nil)

func (f *fakeCartRepo) GetCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items, ok := f.carts[userID]
	if !ok {
		return []models.CartItem{}, nil
	}
	return items, nil
}

func (f *fakeCartRepo) SaveCart(ctx context.Context, userID int64, items []models.CartItem) ([]models.CartItem, error) {
	f.carts[userID] = items
	return items, nil
}

type fakeAnalyticsRepo struct {
	total     decimal.Decimal
	count     int
	byDay     map[string]decimal.Decimal
	top       []models.TopProduct
	from      time.Time
	lastLimit int
}

var _ storage.AnalyticsStorage = (*fakeAnalyticsRepo)(nil)

func (f *fakeAnalyticsRepo) SellerTotals(ctx context.Context, sellerID int64) (decimal.Decimal, int, error) {
	return f.total, f.count, nil
}

func (f *fakeAnalyticsRepo) SellerRevenueByDay(ctx context.Context, sellerID int64, from time.Time) (map[string]decimal.Decimal, error) {
	f.from = from
	return f.byDay, nil
}

func (f *fakeAnalyticsRepo) SellerTopProducts(ctx context.Context, sellerID int64, limit int) ([]models.TopProduct, error) {
	f.lastLimit = limit
	return f.top, nil
}
