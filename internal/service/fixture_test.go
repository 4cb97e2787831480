package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository/memory"
)

// fixture wires every service to one in-memory store.
type fixture struct {
	store     *memory.Store
	users     *UserService
	products  *ProductService
	sales     *SaleService
	reporting *ReportingService
	publisher *recordingPublisher

	admin    model.Actor
	vendor   model.Actor
	customer model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()
	pub := &recordingPublisher{}
	f := &fixture{
		store:     store,
		users:     NewUserService(store.Users(), store.Products(), bcrypt.MinCost, log),
		products:  NewProductService(store.Products(), log),
		sales:     NewSaleService(store.Sales(), pub, log),
		reporting: NewReportingService(store.Reports(), log),
		publisher: pub,
	}
	ctx := context.Background()

	admin, err := f.users.EnsureAdmin(ctx, "Root", "root@pos.test", "rootpass")
	require.NoError(t, err)
	f.admin = actorOf(admin)

	vendor, err := f.users.CreateVendor(ctx, f.admin, RegisterInput{
		Name: "Vera", Email: "vera@pos.test", Password: "vendorpass", Business: "Vera's Deli",
	})
	require.NoError(t, err)
	f.vendor = actorOf(vendor)

	customer, err := f.users.Register(ctx, RegisterInput{Name: "Cam", Email: "cam@pos.test", Password: "custpass"})
	require.NoError(t, err)
	f.customer = actorOf(customer)
	return f
}

func actorOf(u model.User) model.Actor { return model.Actor{ID: u.ID, Role: u.Role} }

func (f *fixture) product(t *testing.T, owner model.Actor, name, price string, stock int64) model.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), owner, ProductInput{
		Name: name, Price: decimal.RequireFromString(price), Stock: stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id uint64) int64 {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) ledgerSize(t *testing.T) int64 {
	t.Helper()
	page, err := f.sales.ListSales(context.Background(), f.admin, SaleQuery{})
	require.NoError(t, err)
	return page.Count
}

// setClock pins the time source of the ledger and the dashboard.
func (f *fixture) setClock(now time.Time) {
	f.sales.now = func() time.Time { return now }
	f.reporting.now = func() time.Time { return now }
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []model.Sale
	err  error
}

func (p *recordingPublisher) PublishSaleRecorded(_ context.Context, sale model.Sale) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sale)
	return p.err
}
