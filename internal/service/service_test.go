package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"storefront/internal/entity"
	"storefront/internal/repository"
	"storefront/migrations"
)

type fixture struct {
	db       *sql.DB
	tokens   *TokenIssuer
	users    *UserService
	products *ProductService
	orders   *OrderService
	cache    *memoryCache
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.AutoMigrate(context.Background(), db, migrations.SQLite, 0))

	tokens := NewTokenIssuer("test-secret", time.Hour)
	productRepo := repository.NewProductRepository(db)
	f := &fixture{
		db:     db,
		tokens: tokens,
		cache:  newMemoryCache(),
		events: &recordingPublisher{},
	}
	userRepo := repository.NewUserRepository(db)
	f.users = NewUserService(userRepo, tokens, bcrypt.MinCost)
	f.products = NewProductService(productRepo, f.cache)
	f.orders = NewOrderService(repository.NewOrderRepository(db), productRepo, userRepo, tokens, f.events)
	return f
}

func (f *fixture) product(t *testing.T, title string, price int64) *entity.Product {
	t.Helper()
	p, err := f.products.CreateProduct(context.Background(), &entity.Product{Title: title, Category: "Camisetas", PriceCents: price, Stock: 5})
	require.NoError(t, err)
	return p
}

type memoryCache struct {
	mu      sync.Mutex
	items   map[int64]entity.Product
	deletes []int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[int64]entity.Product)}
}

func (c *memoryCache) Get(_ context.Context, id int64) (*entity.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memoryCache) Set(_ context.Context, p *entity.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = *p
	return nil
}

func (c *memoryCache) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	c.deletes = append(c.deletes, id)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishOrder(_ context.Context, event string, details *entity.OrderDetails) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf("%s:%d", event, details.Order.ID))
	return p.err
}

func TestRegisterTwiceIsConflictAndFirstTokenStaysValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.users.Register(ctx, "Ana", "ana@x.com", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Token)
	assert.Equal(t, "ana@x.com", first.User.Email)
	assert.False(t, first.User.IsAdmin)

	_, err = f.users.Register(ctx, "Ana Again", "ana@x.com", "other")
	assert.ErrorIs(t, err, ErrConflict)

	claims, err := f.tokens.Parse(first.Token)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, claims.UserID)
}

func TestRegisterRequiresAllFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.users.Register(context.Background(), "Ana", "", "pw")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	f := newFixture(t)
	res, err := f.users.Register(context.Background(), "Ana", "ana@x.com", "plain")
	require.NoError(t, err)

	var stored string
	require.NoError(t, f.db.QueryRow(`SELECT password FROM users WHERE id = ?`, res.User.ID).Scan(&stored))
	assert.NotEqual(t, "plain", stored)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("plain")))
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.users.Register(ctx, "Ana", "ana@x.com", "right")
	require.NoError(t, err)

	_, err = f.users.Login(ctx, "ana@x.com", "wrong")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "incorrect password", err.Error())

	_, err = f.users.Login(ctx, "nobody@x.com", "right")
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "user not found", err.Error())

	res, err := f.users.Login(ctx, "ana@x.com", "right")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestMeReturnsProfile(t *testing.T) {
	f := newFixture(t)
	res, err := f.users.Register(context.Background(), "Ana", "ana@x.com", "pw")
	require.NoError(t, err)

	me, err := f.users.Me(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", me.Name)

	_, err = f.users.Me(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedAdminOnlyOnEmptyTable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.users.SeedAdmin(ctx, "admin@magictshirt.local", "admin123"))
	res, err := f.users.Login(ctx, "admin@magictshirt.local", "admin123")
	require.NoError(t, err)
	assert.True(t, res.User.IsAdmin)

	require.NoError(t, f.users.SeedAdmin(ctx, "second@x.com", "pw"))
	_, err = f.users.Login(ctx, "second@x.com", "pw")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestTokenExpiry(t *testing.T) {
	issuer := NewTokenIssuer("k", time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := issuer.Issue(&entity.User{ID: 1, Email: "a@x.com"})
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "token expired", err.Error())
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	token, err := NewTokenIssuer("a", time.Hour).Issue(&entity.User{ID: 1, IsAdmin: true})
	require.NoError(t, err)

	_, err = NewTokenIssuer("b", time.Hour).Parse(token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	claims, err := NewTokenIssuer("a", time.Hour).Parse(token)
	require.NoError(t, err)
	assert.True(t, claims.IsAdmin)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.products.SeedProducts(ctx))

	empty, err := f.products.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	found, err := f.products.Search(ctx, "camiseta")
	require.NoError(t, err)
	titles := []string{}
	for _, p := range found {
		titles = append(titles, p.Title)
	}
	assert.ElementsMatch(t, []string{"Camiseta Retro", "Camiseta Eco"}, titles)

	byDescription, err := f.products.Search(ctx, "ALGODÃO")
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	assert.Equal(t, "Camiseta Eco", byDescription[0].Title)

	byCategory, err := f.products.Search(ctx, "moletom")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "Moletom Oversize", byCategory[0].Title)
}

func TestSearchIsCappedAtFifty(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 60; i++ {
		f.product(t, fmt.Sprintf("Camiseta %d", i), 1000)
	}

	found, err := f.products.Search(context.Background(), "Camiseta")
	require.NoError(t, err)
	assert.Len(t, found, repository.SearchLimit)
}

func TestListProductsNewestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", 100)
	b := f.product(t, "B", 100)

	list, err := f.products.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.products.CreateProduct(context.Background(), &entity.Product{Title: "No price"})
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.products.CreateProduct(context.Background(), &entity.Product{PriceCents: 100})
	assert.ErrorIs(t, err, ErrBadRequest)
	_, err = f.products.CreateProduct(context.Background(), &entity.Product{Title: "Ouro", PriceCents: entity.MaxPriceCents + 1})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestCreateProductIgnoresClientIdentityAndTimestamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	older := f.product(t, "Camiseta Retro", 6999)

	future := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	created, err := f.products.CreateProduct(ctx, &entity.Product{ID: older.ID, Title: "Boné", PriceCents: 3999, CreatedAt: future})
	require.NoError(t, err)
	assert.NotEqual(t, older.ID, created.ID)
	assert.WithinDuration(t, time.Now(), created.CreatedAt, time.Minute)

	newer := f.product(t, "Moletom", 12990)
	list, err := f.products.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, newer.ID, list[0].ID)
}

func TestUpdateProductPreservesUnsetFieldsAndEvictsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Camiseta Retro", 6999)

	_, err := f.products.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	cached, _ := f.cache.Get(ctx, p.ID)
	require.NotNil(t, cached)

	price := int64(7999)
	updated, err := f.products.UpdateProduct(ctx, p.ID, &entity.ProductPatch{PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, "Camiseta Retro", updated.Title)
	assert.Equal(t, int64(7999), updated.PriceCents)
	assert.Equal(t, 5, updated.Stock)

	cached, _ = f.cache.Get(ctx, p.ID)
	assert.Nil(t, cached)
	assert.Contains(t, f.cache.deletes, p.ID)

	_, err = f.products.UpdateProduct(ctx, 999, &entity.ProductPatch{PriceCents: &price})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Boné", 3999)

	require.NoError(t, f.products.DeleteProduct(ctx, p.ID))
	_, err := f.products.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.products.DeleteProduct(ctx, p.ID), ErrNotFound)
}

func TestPreWarmCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.products.SeedProducts(ctx))

	n, err := f.products.PreWarmCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	cached, err := f.cache.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "Camiseta Retro", cached.Title)

	uncached := NewProductService(repository.NewProductRepository(f.db), nil)
	n, err = uncached.PreWarmCache(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateOrderAnonymousSnapshotsCatalogPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Camiseta Retro", 6999)

	details, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{ProductID: p.ID, Qty: 2, PriceCents: 1}},
		Customer: &entity.Customer{Name: "Ana", Email: "a@x.com"},
	}, nil)
	require.NoError(t, err)

	assert.Nil(t, details.Order.UserID)
	assert.Equal(t, entity.OrderStatusPending, details.Order.Status)
	assert.Equal(t, int64(13998), details.Order.TotalCents)
	require.Len(t, details.Items, 1)
	assert.Equal(t, int64(6999), details.Items[0].PriceCents)
	assert.Equal(t, 2, details.Items[0].Qty)
	assert.Equal(t, "Camiseta Retro", details.Items[0].Title)
	assert.Equal(t, []string{fmt.Sprintf("created:%d", details.Order.ID)}, f.events.events)
}

func TestOrderItemsSurviveCatalogChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	kept := f.product(t, "Moletom Oversize", 12990)
	removed := f.product(t, "Camiseta Eco", 5999)

	created, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items: []entity.OrderItemRequest{
			{ProductID: kept.ID, Qty: 1},
			{ProductID: removed.ID, Qty: 3},
		},
		Customer: &entity.Customer{Name: "Ana", Email: "a@x.com"},
	}, nil)
	require.NoError(t, err)

	newTitle, newPrice := "Moletom Novo", int64(1)
	_, err = f.products.UpdateProduct(ctx, kept.ID, &entity.ProductPatch{Title: &newTitle, PriceCents: &newPrice})
	require.NoError(t, err)
	require.NoError(t, f.products.DeleteProduct(ctx, removed.ID))

	admin := &Claims{IsAdmin: true}
	refetched, err := f.orders.GetOrder(ctx, created.Order.ID, admin)
	require.NoError(t, err)
	require.Len(t, refetched.Items, 2)

	assert.Equal(t, "Moletom Oversize", refetched.Items[0].Title)
	assert.Equal(t, int64(12990), refetched.Items[0].PriceCents)
	assert.Equal(t, "Camiseta Eco", refetched.Items[1].Title)
	assert.Equal(t, int64(5999), refetched.Items[1].PriceCents)
	assert.Equal(t, 3, refetched.Items[1].Qty)
	assert.Nil(t, refetched.Items[1].ProductID)
	assert.Equal(t, created.Order.TotalCents, refetched.Order.TotalCents)
}

func TestCreateOrderFallsBackToSubmittedSnapshot(t *testing.T) {
	f := newFixture(t)
	details, err := f.orders.CreateOrder(context.Background(), &entity.OrderRequest{
		Items: []entity.OrderItemRequest{
			{ProductID: 404, Qty: 0, PriceCents: 2500, Title: "Caneca"},
			{ProductID: 405, Qty: 1, PriceCents: 100},
		},
		Customer: &entity.Customer{Name: "Ana", Email: "a@x.com"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, details.Items, 2)

	assert.Nil(t, details.Items[0].ProductID)
	assert.Equal(t, "Caneca", details.Items[0].Title)
	assert.Equal(t, 1, details.Items[0].Qty)
	assert.Equal(t, DefaultItemTitle, details.Items[1].Title)
	assert.Equal(t, int64(2600), details.Order.TotalCents)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{Customer: &entity.Customer{Name: "Ana", Email: "a@x.com"}}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{ProductID: 1, Qty: 1}},
		Customer: &entity.Customer{Name: "Ana"},
	}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = f.orders.CreateOrder(ctx, &entity.OrderRequest{Items: []entity.OrderItemRequest{{ProductID: 1, Qty: 1}}}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestCreateOrderRejectsOversizedLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Camiseta Retro", 6999)
	customer := &entity.Customer{Name: "Ana", Email: "a@x.com"}

	_, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{ProductID: p.ID, Qty: 2635249153387078803}},
		Customer: customer,
	}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{Qty: 2, PriceCents: 1 << 62, Title: "Sem catálogo"}},
		Customer: customer,
	}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)

	many := make([]entity.OrderItemRequest, entity.MaxOrderItems+1)
	for i := range many {
		many[i] = entity.OrderItemRequest{ProductID: p.ID, Qty: 1}
	}
	_, err = f.orders.CreateOrder(ctx, &entity.OrderRequest{Items: many, Customer: customer}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)

	details, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{ProductID: p.ID, Qty: entity.MaxItemQty}},
		Customer: customer,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 6999*int64(entity.MaxItemQty), details.Order.TotalCents)
}

func TestCreateOrderCredentialHandling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Camiseta Retro", 6999)
	res, err := f.users.Register(ctx, "Ana", "ana@x.com", "pw")
	require.NoError(t, err)

	req := &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{ProductID: p.ID, Qty: 1}},
		Customer: &entity.Customer{Name: "Ana", Email: "ana@x.com"},
	}

	owned, err := f.orders.CreateOrder(ctx, req, &res.Token)
	require.NoError(t, err)
	require.NotNil(t, owned.Order.UserID)
	assert.Equal(t, res.User.ID, *owned.Order.UserID)

	garbage := "not-a-jwt"
	anon, err := f.orders.CreateOrder(ctx, req, &garbage)
	require.NoError(t, err)
	assert.Nil(t, anon.Order.UserID)

	assert.NotEqual(t, owned.Order.ID, anon.Order.ID)
}

func TestCreateOrderWithTokenForMissingUserIsAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Camiseta Retro", 6999)

	token, err := f.tokens.Issue(&entity.User{ID: 999, Email: "gone@x.com"})
	require.NoError(t, err)

	details, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{ProductID: p.ID, Qty: 1}},
		Customer: &entity.Customer{Name: "Ana", Email: "ana@x.com"},
	}, &token)
	require.NoError(t, err)
	assert.Nil(t, details.Order.UserID)
	assert.Equal(t, int64(6999), details.Order.TotalCents)
}

func TestGetOrderAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Camiseta Retro", 6999)
	owner, err := f.users.Register(ctx, "Ana", "ana@x.com", "pw")
	require.NoError(t, err)
	other, err := f.users.Register(ctx, "Bia", "bia@x.com", "pw")
	require.NoError(t, err)

	created, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{ProductID: p.ID, Qty: 1}},
		Customer: &entity.Customer{Name: "Ana", Email: "ana@x.com"},
	}, &owner.Token)
	require.NoError(t, err)
	id := created.Order.ID

	_, err = f.orders.GetOrder(ctx, id, &Claims{UserID: owner.User.ID})
	assert.NoError(t, err)
	_, err = f.orders.GetOrder(ctx, id, &Claims{UserID: other.User.ID})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.orders.GetOrder(ctx, id, &Claims{IsAdmin: true})
	assert.NoError(t, err)
	_, err = f.orders.GetOrder(ctx, id+100, &Claims{IsAdmin: true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAnonymousOrderIsForbiddenToNonAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created, err := f.orders.CreateOrder(ctx, &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{PriceCents: 100, Qty: 1}},
		Customer: &entity.Customer{Name: "Ana", Email: "a@x.com"},
	}, nil)
	require.NoError(t, err)

	_, err = f.orders.GetOrder(ctx, created.Order.ID, &Claims{UserID: 1})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestPublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	details, err := f.orders.CreateOrder(context.Background(), &entity.OrderRequest{
		Items:    []entity.OrderItemRequest{{PriceCents: 100, Qty: 1}},
		Customer: &entity.Customer{Name: "Ana", Email: "a@x.com"},
	}, nil)
	require.NoError(t, err)
	assert.NotZero(t, details.Order.ID)
	assert.Len(t, f.events.events, 1)
}
