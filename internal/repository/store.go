package repository

import (
	"context"
	"time"

	"github.com/iliyamo/sales-pos/internal/model"
)

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	// List returns users ordered by id.  An empty role lists every account.
	List(ctx context.Context, role model.Role) ([]model.User, error)
	Update(ctx context.Context, u *model.User) error
	Delete(ctx context.Context, id uint64) error
	CountByRole(ctx context.Context, role model.Role) (int64, error)
}

// TokenStore persists hashed refresh tokens.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// ProductStore persists the catalog.
type ProductStore interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uint64) (model.Product, error)
	// List returns the requested page ordered by id and the total number of
	// matching products.
	List(ctx context.Context, f model.ProductFilter) ([]model.Product, int64, error)
	Update(ctx context.Context, p *model.Product) error
	Delete(ctx context.Context, id uint64) error
	CountByOwner(ctx context.Context, ownerID uint64) (int64, error)
}

// SaleTx is the unit of work used to record one sale.  Every call made
// through it commits or rolls back together.
type SaleTx interface {
	// LockProduct reads a product and holds it against concurrent stock
	// changes until the transaction ends.
	LockProduct(ctx context.Context, id uint64) (model.Product, error)
	InsertSale(ctx context.Context, s *model.Sale) error
	// DecrementStock subtracts qty only when at least qty units remain and
	// returns ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, productID uint64, qty int64) error
}

// SaleStore persists the ledger.  Sales are append-only.
type SaleStore interface {
	// WithTx runs fn inside a transaction.  Any error returned by fn rolls
	// back every write made through the SaleTx and is returned unchanged.
	WithTx(ctx context.Context, fn func(tx SaleTx) error) error
	GetByID(ctx context.Context, id uint64) (model.Sale, error)
	// List returns the requested page newest first and the total number of
	// matching sales.
	List(ctx context.Context, f model.SaleFilter) ([]model.Sale, int64, error)
}

// ReportStore runs the read-only aggregations behind the dashboard.
type ReportStore interface {
	Totals(ctx context.Context) (model.Totals, error)
	// DailySales groups sales created in [from, to] by UTC calendar day,
	// ascending.  Days without sales are absent.
	DailySales(ctx context.Context, from, to time.Time) ([]model.DailySales, error)
	// TopProducts ranks products by summed quantity, descending, ties by
	// ascending product id.
	TopProducts(ctx context.Context, limit int) ([]model.ProductRanking, error)
	// TopSellers ranks vendors by summed revenue, descending, ties by
	// ascending vendor id.
	TopSellers(ctx context.Context, limit int) ([]model.SellerRanking, error)
}
