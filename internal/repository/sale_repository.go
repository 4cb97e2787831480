package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/sales-pos/internal/model"
)

// SaleRepo implements SaleStore on the `sales` and `sale_items` tables.
type SaleRepo struct{ DB *sql.DB }

func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{DB: db} }

// WithTx begins a transaction, hands fn a SaleTx bound to it and commits
// when fn succeeds.  The deferred rollback covers both fn errors and
// panics.
func (r *SaleRepo) WithTx(ctx context.Context, fn func(tx SaleTx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&saleTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

type saleTx struct{ tx *sql.Tx }

func (t *saleTx) LockProduct(ctx context.Context, id uint64) (model.Product, error) {
	return scanProduct(t.tx.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id=? FOR UPDATE", id))
}

func (t *saleTx) InsertSale(ctx context.Context, s *model.Sale) error {
	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO sales (vendor_id, total, created_at) VALUES (?,?,?)",
		s.VendorID, s.Total, s.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	for i, it := range s.Items {
		if _, err := t.tx.ExecContext(ctx,
			`INSERT INTO sale_items (sale_id, line_no, product_id, quantity, product_name, unit_price)
			 VALUES (?,?,?,?,?,?)`,
			s.ID, i, it.ProductID, it.Quantity, it.ProductName, it.UnitPriceAtSale); err != nil {
			return err
		}
	}
	return nil
}

func (t *saleTx) DecrementStock(ctx context.Context, productID uint64, qty int64) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?",
		qty, productID, qty)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *SaleRepo) GetByID(ctx context.Context, id uint64) (model.Sale, error) {
	var s model.Sale
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, vendor_id, total, created_at FROM sales WHERE id=?", id).
		Scan(&s.ID, &s.VendorID, &s.Total, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Sale{}, ErrSaleNotFound
		}
		return model.Sale{}, err
	}
	items, err := r.loadItems(ctx, []uint64{s.ID})
	if err != nil {
		return model.Sale{}, err
	}
	s.Items = items[s.ID]
	return s, nil
}

func (r *SaleRepo) List(ctx context.Context, f model.SaleFilter) ([]model.Sale, int64, error) {
	var (
		conds []string
		args  []any
	)
	if f.VendorID != nil {
		conds = append(conds, "vendor_id = ?")
		args = append(args, *f.VendorID)
	}
	if f.From != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, "created_at < ?")
		args = append(args, f.To.UTC())
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM sales"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, vendor_id, total, created_at FROM sales"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	sales := []model.Sale{}
	var ids []uint64
	for rows.Next() {
		var s model.Sale
		if err := rows.Scan(&s.ID, &s.VendorID, &s.Total, &s.CreatedAt); err != nil {
			return nil, 0, err
		}
		sales = append(sales, s)
		ids = append(ids, s.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return sales, total, nil
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range sales {
		sales[i].Items = items[sales[i].ID]
	}
	return sales, total, nil
}

// loadItems returns the line items of the given sales keyed by sale id, in
// basket order.
func (r *SaleRepo) loadItems(ctx context.Context, saleIDs []uint64) (map[uint64][]model.SaleItem, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(saleIDs)), ",")
	args := make([]any, len(saleIDs))
	for i, id := range saleIDs {
		args[i] = id
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT sale_id, product_id, quantity, product_name, unit_price
		 FROM sale_items WHERE sale_id IN (`+placeholders+`) ORDER BY sale_id, line_no`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.SaleItem, len(saleIDs))
	for rows.Next() {
		var (
			saleID uint64
			it     model.SaleItem
		)
		if err := rows.Scan(&saleID, &it.ProductID, &it.Quantity, &it.ProductName, &it.UnitPriceAtSale); err != nil {
			return nil, err
		}
		out[saleID] = append(out[saleID], it)
	}
	return out, rows.Err()
}
