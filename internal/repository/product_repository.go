package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/sales-pos/internal/model"
)

// ProductRepo implements ProductStore on the `products` table.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

const productColumns = "id,name,description,category,price,stock,owner_id,images,created_at,updated_at"

// Create inserts p and fills in its ID and timestamps.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	images, err := marshalList(p.Images)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO products (name,description,category,price,stock,owner_id,images,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.Name, p.Description, p.Category, p.Price, p.Stock, p.OwnerID, images, now, now)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.CreatedAt, p.UpdatedAt = now, now
	return nil
}

func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	return scanProduct(r.DB.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id=?", id))
}

// List pages through the catalog.  The keyword is matched with LIKE; the
// utf8mb4 general collation makes the match case-insensitive.
func (r *ProductRepo) List(ctx context.Context, f model.ProductFilter) ([]model.Product, int64, error) {
	where := ""
	var args []any
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		where = " WHERE name LIKE ?"
		args = append(args, "%"+escapeLike(kw)+"%")
	}
	var total int64
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := "SELECT " + productColumns + " FROM products" + where + " ORDER BY id LIMIT ? OFFSET ?"
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Update overwrites every mutable column of p.  The owner never changes.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	images, err := marshalList(p.Images)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE products SET name=?,description=?,category=?,price=?,stock=?,images=?,updated_at=? WHERE id=?`,
		p.Name, p.Description, p.Category, p.Price, p.Stock, images, now, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
	}
	p.UpdatedAt = now
	return nil
}

// Delete removes a product.  Sales keep their snapshot lines.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductRepo) CountByOwner(ctx context.Context, ownerID uint64) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE owner_id=?", ownerID).Scan(&n)
	return n, err
}

func scanProduct(s rowScanner) (model.Product, error) {
	var (
		p      model.Product
		images sql.NullString
	)
	err := s.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.Stock,
		&p.OwnerID, &images, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Product{}, ErrProductNotFound
		}
		return model.Product{}, err
	}
	if p.Images, err = unmarshalList(images); err != nil {
		return model.Product{}, err
	}
	return p, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
