package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/sales-pos/internal/model"
)

// MySQL error numbers inspected by the repositories.
const (
	mysqlDuplicateEntry = 1062
	mysqlRowReferenced  = 1451
)

func isMySQLError(err error, number uint16) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == number
}

// UserRepo implements UserStore on the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,name,email,password_hash,role,is_admin,phone,lat,lng,business,photos,created_at,updated_at"

// Create inserts u and fills in its ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	photos, err := marshalList(u.Photos)
	if err != nil {
		return err
	}
	lat, lng := locationArgs(u.Location)
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name,email,password_hash,role,is_admin,phone,lat,lng,business,photos,created_at,updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.Name, model.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.IsAdmin,
		u.Phone, lat, lng, u.Business, photos, now, now)
	if err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	u.Email = model.NormalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
	return scanUser(row)
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email))
	return scanUser(row)
}

func (r *UserRepo) List(ctx context.Context, role model.Role) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	var args []any
	if role != "" {
		q += " WHERE role=?"
		args = append(args, string(role))
	}
	q += " ORDER BY id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Update overwrites every mutable column of u.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	photos, err := marshalList(u.Photos)
	if err != nil {
		return err
	}
	lat, lng := locationArgs(u.Location)
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET name=?,email=?,password_hash=?,role=?,is_admin=?,phone=?,lat=?,lng=?,business=?,photos=?,updated_at=?
		 WHERE id=?`,
		u.Name, model.NormalizeEmail(u.Email), u.PasswordHash, string(u.Role), u.IsAdmin,
		u.Phone, lat, lng, u.Business, photos, now, u.ID)
	if err != nil {
		if isMySQLError(err, mysqlDuplicateEntry) {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports zero affected rows for unchanged values too.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	u.UpdatedAt = now
	return nil
}

// Delete removes a user.  The products foreign key rejects deleting an
// owner of catalog rows with ErrConflict.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		if isMySQLError(err, mysqlRowReferenced) {
			return ErrConflict
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	// Sessions of the removed account are useless; drop them.
	_, err = r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", id)
	return err
}

func (r *UserRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role=?", string(role)).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u        model.User
		role     string
		lat, lng sql.NullFloat64
		photos   sql.NullString
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsAdmin,
		&u.Phone, &lat, &lng, &u.Business, &photos, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if lat.Valid && lng.Valid {
		u.Location = &model.Location{Lat: lat.Float64, Lng: lng.Float64}
	}
	if u.Photos, err = unmarshalList(photos); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func locationArgs(l *model.Location) (lat, lng sql.NullFloat64) {
	if l == nil {
		return
	}
	return sql.NullFloat64{Float64: l.Lat, Valid: true}, sql.NullFloat64{Float64: l.Lng, Valid: true}
}

// marshalList stores string lists in JSON columns.
func marshalList(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalList(s sql.NullString) ([]string, error) {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}
