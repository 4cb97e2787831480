// Package memory provides in-process implementations of the repository
// contracts.  They back the test suites and the `memory` store driver.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository"
)

// Store holds every table behind one mutex so that WithTx can snapshot and
// restore the whole state.
type Store struct {
	mu sync.Mutex

	users    map[uint64]model.User
	tokens   map[string]model.RefreshToken
	products map[uint64]model.Product
	sales    []model.Sale

	nextUser, nextToken, nextProduct, nextSale uint64

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[uint64]model.User),
		tokens:   make(map[string]model.RefreshToken),
		products: make(map[uint64]model.Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for record timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Users returns the account table.
func (s *Store) Users() *Users { return &Users{s: s} }

// Tokens returns the refresh token table.
func (s *Store) Tokens() *Tokens { return &Tokens{s: s} }

// Products returns the catalog.
func (s *Store) Products() *Products { return &Products{s: s} }

// Sales returns the ledger.
func (s *Store) Sales() *Sales { return &Sales{s: s} }

// Reports returns the aggregation view.
func (s *Store) Reports() *Reports { return &Reports{s: s} }

var (
	_ repository.UserStore    = (*Users)(nil)
	_ repository.TokenStore   = (*Tokens)(nil)
	_ repository.ProductStore = (*Products)(nil)
	_ repository.SaleStore    = (*Sales)(nil)
	_ repository.ReportStore  = (*Reports)(nil)
)

// =============================================================================
// USERS
// =============================================================================

type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := model.NormalizeEmail(u.Email)
	if r.s.emailTaken(email, 0) {
		return repository.ErrEmailExists
	}
	r.s.nextUser++
	now := r.s.now()
	u.ID = r.s.nextUser
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.users[u.ID] = cloneUser(*u)
	return nil
}

func (r *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (r *Users) List(_ context.Context, role model.Role) ([]model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.User{}
	for _, id := range sortedKeys(r.s.users) {
		u := r.s.users[id]
		if role == "" || u.Role == role {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r *Users) Update(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.users[u.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	email := model.NormalizeEmail(u.Email)
	if r.s.emailTaken(email, u.ID) {
		return repository.ErrEmailExists
	}
	u.Email = email
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.s.now()
	r.s.users[u.ID] = cloneUser(*u)
	return nil
}

// Delete mirrors the foreign key of the SQL schema: owners of products
// cannot be removed.
func (r *Users) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrUserNotFound
	}
	for _, p := range r.s.products {
		if p.OwnerID == id {
			return repository.ErrConflict
		}
	}
	delete(r.s.users, id)
	for h, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, h)
		}
	}
	return nil
}

func (r *Users) CountByRole(_ context.Context, role model.Role) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, u := range r.s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (s *Store) emailTaken(email string, except uint64) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(u model.User) model.User {
	u.Photos = append([]string(nil), u.Photos...)
	if u.Location != nil {
		loc := *u.Location
		u.Location = &loc
	}
	return u
}

// =============================================================================
// TOKENS
// =============================================================================

type Tokens struct{ s *Store }

func (r *Tokens) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextToken++
	r.s.tokens[tokenHash] = model.RefreshToken{
		ID:        r.s.nextToken,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp,
		CreatedAt: r.s.now(),
	}
	return nil
}

func (r *Tokens) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, repository.ErrInvalidToken
	}
	return t.UserID, nil
}

func (r *Tokens) RevokeByHash(_ context.Context, tokenHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := r.s.now()
		t.RevokedAt = &now
		r.s.tokens[tokenHash] = t
	}
	return nil
}

func (r *Tokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	for h, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			r.s.tokens[h] = t
		}
	}
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

type Products struct{ s *Store }

func (r *Products) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextProduct++
	now := r.s.now()
	p.ID = r.s.nextProduct
	p.CreatedAt, p.UpdatedAt = now, now
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *Products) GetByID(_ context.Context, id uint64) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, repository.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (r *Products) List(_ context.Context, f model.ProductFilter) ([]model.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kw := strings.ToLower(strings.TrimSpace(f.Keyword))
	var matched []model.Product
	for _, id := range sortedKeys(r.s.products) {
		p := r.s.products[id]
		if kw == "" || strings.Contains(strings.ToLower(p.Name), kw) {
			matched = append(matched, p)
		}
	}
	out := []model.Product{}
	for _, p := range page(matched, f.Limit, f.Offset) {
		out = append(out, cloneProduct(p))
	}
	return out, int64(len(matched)), nil
}

func (r *Products) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.OwnerID = cur.OwnerID
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = r.s.now()
	r.s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (r *Products) Delete(_ context.Context, id uint64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(r.s.products, id)
	return nil
}

func (r *Products) CountByOwner(_ context.Context, ownerID uint64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, p := range r.s.products {
		if p.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func cloneProduct(p model.Product) model.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}

// =============================================================================
// SALES
// =============================================================================

type Sales struct{ s *Store }

// WithTx is simulated with a snapshot of the catalog and the ledger that is
// restored when fn fails.  The store lock is held for the whole call, which
// serializes concurrent sales the way row locks do in MySQL.
func (r *Sales) WithTx(_ context.Context, fn func(tx repository.SaleTx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	snap := r.s.snapshot()
	if err := fn(&saleTx{s: r.s}); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}

func (r *Sales) GetByID(_ context.Context, id uint64) (model.Sale, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, sale := range r.s.sales {
		if sale.ID == id {
			return sale.Clone(), nil
		}
	}
	return model.Sale{}, repository.ErrSaleNotFound
}

func (r *Sales) List(_ context.Context, f model.SaleFilter) ([]model.Sale, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var matched []model.Sale
	for _, sale := range r.s.sales {
		if f.VendorID != nil && sale.VendorID != *f.VendorID {
			continue
		}
		if f.From != nil && sale.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !sale.CreatedAt.Before(*f.To) {
			continue
		}
		matched = append(matched, sale)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	out := []model.Sale{}
	for _, sale := range page(matched, f.Limit, f.Offset) {
		out = append(out, sale.Clone())
	}
	return out, int64(len(matched)), nil
}

// saleTx operates on the store while its lock is held by WithTx.
type saleTx struct{ s *Store }

func (t *saleTx) LockProduct(_ context.Context, id uint64) (model.Product, error) {
	p, ok := t.s.products[id]
	if !ok {
		return model.Product{}, repository.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

func (t *saleTx) InsertSale(_ context.Context, sale *model.Sale) error {
	t.s.nextSale++
	sale.ID = t.s.nextSale
	t.s.sales = append(t.s.sales, sale.Clone())
	return nil
}

func (t *saleTx) DecrementStock(_ context.Context, productID uint64, qty int64) error {
	if qty < 1 {
		return repository.ErrInvalidQuantity
	}
	p, ok := t.s.products[productID]
	if !ok || p.Stock < qty {
		return repository.ErrInsufficientStock
	}
	p.Stock -= qty
	t.s.products[productID] = p
	return nil
}

type snapshot struct {
	products map[uint64]model.Product
	sales    []model.Sale
	nextSale uint64
}

func (s *Store) snapshot() snapshot {
	products := make(map[uint64]model.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	return snapshot{
		products: products,
		sales:    append([]model.Sale(nil), s.sales...),
		nextSale: s.nextSale,
	}
}

func (s *Store) restore(snap snapshot) {
	s.products = snap.products
	s.sales = snap.sales
	s.nextSale = snap.nextSale
}

// =============================================================================
// HELPERS
// =============================================================================

func sortedKeys[V any](m map[uint64]V) []uint64 {
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
