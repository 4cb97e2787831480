package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository"
	"github.com/iliyamo/sales-pos/internal/utils"
)

const minPasswordLen = 6

// RegisterInput carries the profile of a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Phone    string
	Location *model.Location
	Business string
	Photos   []string
}

// UserPatch lists the fields of a partial profile update.  Nil fields are
// left unchanged.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
	Phone    *string
	Business *string
	Location *model.Location
	Photos   *[]string
	Role     *string
	IsAdmin  *bool
}

// UserService manages accounts and enforces the admin deletion policy:
// nobody deletes themselves, only a different admin deletes an admin, the
// last admin is never deleted, and accounts that still own products are
// kept until the products are gone.
type UserService struct {
	users      repository.UserStore
	products   repository.ProductStore
	bcryptCost int
	log        *zap.Logger
}

func NewUserService(users repository.UserStore, products repository.ProductStore, bcryptCost int, log *zap.Logger) *UserService {
	return &UserService{users: users, products: products, bcryptCost: bcryptCost, log: log}
}

// Register creates a self-service account.  The role defaults to customer
// and may be vendor; admins are never created this way.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	role := model.RoleCustomer
	if strings.TrimSpace(in.Role) != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil {
			return model.User{}, validation("role", "role must be one of admin, vendor, customer")
		}
		role = r
	}
	if role == model.RoleAdmin {
		return model.User{}, forbidden("admin accounts cannot be self-registered")
	}
	return s.create(ctx, in, role)
}

// CreateVendor lets an admin register a vendor account.
func (s *UserService) CreateVendor(ctx context.Context, actor model.Actor, in RegisterInput) (model.User, error) {
	if !actor.IsAdmin() {
		return model.User{}, forbidden("only admins can register vendors")
	}
	return s.create(ctx, in, model.RoleVendor)
}

// EnsureAdmin creates the bootstrap admin unless an account with that email
// already exists.
func (s *UserService) EnsureAdmin(ctx context.Context, name, email, password string) (model.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, internal(s.log, "ensure admin", err)
	}
	return s.create(ctx, RegisterInput{Name: name, Email: email, Password: password}, model.RoleAdmin)
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role model.Role) (model.User, error) {
	name := strings.TrimSpace(in.Name)
	email := model.NormalizeEmail(in.Email)
	if name == "" {
		return model.User{}, validation("name", "name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return model.User{}, validation("email", "a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		return model.User{}, validation("password", "password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, internal(s.log, "hash password", err)
	}
	u := model.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Phone:        strings.TrimSpace(in.Phone),
		Location:     in.Location,
		Business:     strings.TrimSpace(in.Business),
		Photos:       in.Photos,
	}
	if err := u.ApplyRole(role, nil); err != nil {
		return model.User{}, validation("role", err.Error())
	}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, &ConflictError{Reason: "email already registered"}
		}
		return model.User{}, internal(s.log, "create user", err)
	}
	s.log.Info("user created", zap.Uint64("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

// Authenticate checks an email/password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return model.User{}, internal(s.log, "load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Profile loads an account by id without an authorization check; callers
// pass the id of the authenticated user.
func (s *UserService) Profile(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, &NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return model.User{}, internal(s.log, "load user", err)
	}
	return u, nil
}

// List returns every account, optionally restricted to one role.  Admin only.
func (s *UserService) List(ctx context.Context, actor model.Actor, role string) ([]model.User, error) {
	if !actor.IsAdmin() {
		return nil, forbidden("only admins can list users")
	}
	var filter model.Role
	if strings.TrimSpace(role) != "" {
		r, err := model.ParseRole(role)
		if err != nil {
			return nil, validation("role", "role must be one of admin, vendor, customer")
		}
		filter = r
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, internal(s.log, "list users", err)
	}
	return users, nil
}

// Get returns an account to itself or to an admin.
func (s *UserService) Get(ctx context.Context, actor model.Actor, id uint64) (model.User, error) {
	if !actor.Owns(id) {
		return model.User{}, forbidden("cannot read another account")
	}
	return s.Profile(ctx, id)
}

// Update applies a partial profile change.  Users edit their own profile;
// admins edit any.  Role and admin flag changes are admin-only and go
// through model.User.ApplyRole.
func (s *UserService) Update(ctx context.Context, actor model.Actor, id uint64, p UserPatch) (model.User, error) {
	if !actor.Owns(id) {
		return model.User{}, forbidden("cannot modify another account")
	}
	if (p.Role != nil || p.IsAdmin != nil) && !actor.IsAdmin() {
		return model.User{}, forbidden("only admins can change roles")
	}
	u, err := s.Profile(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return model.User{}, validation("name", "name cannot be empty")
		}
		u.Name = name
	}
	if p.Email != nil {
		email := model.NormalizeEmail(*p.Email)
		if email == "" || !strings.Contains(email, "@") {
			return model.User{}, validation("email", "a valid email is required")
		}
		u.Email = email
	}
	if p.Password != nil {
		if len(*p.Password) < minPasswordLen {
			return model.User{}, validation("password", "password must be at least 6 characters")
		}
		hash, err := utils.HashPassword(*p.Password, s.bcryptCost)
		if err != nil {
			return model.User{}, internal(s.log, "hash password", err)
		}
		u.PasswordHash = hash
	}
	if p.Phone != nil {
		u.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Business != nil {
		u.Business = strings.TrimSpace(*p.Business)
	}
	if p.Location != nil {
		u.Location = p.Location
	}
	if p.Photos != nil {
		u.Photos = *p.Photos
	}

	if p.Role != nil || p.IsAdmin != nil {
		role := u.Role
		if p.Role != nil {
			if role, err = model.ParseRole(*p.Role); err != nil {
				return model.User{}, validation("role", "role must be one of admin, vendor, customer")
			}
		} else if p.IsAdmin != nil && *p.IsAdmin {
			role = model.RoleAdmin
		}
		if u.Role == model.RoleAdmin && role != model.RoleAdmin {
			if err := s.ensureOtherAdmin(ctx); err != nil {
				return model.User{}, err
			}
		}
		if err := u.ApplyRole(role, p.IsAdmin); err != nil {
			return model.User{}, validation("isAdmin", err.Error())
		}
	}

	if err := s.users.Update(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, &ConflictError{Reason: "email already registered"}
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, &NotFoundError{Resource: "user", ID: id}
		}
		return model.User{}, internal(s.log, "update user", err)
	}
	return u, nil
}

// Delete removes an account according to the deletion policy.  Historical
// sales of a deleted vendor stay in the ledger.
func (s *UserService) Delete(ctx context.Context, actor model.Actor, id uint64) error {
	if !actor.IsAdmin() {
		return forbidden("only admins can delete users")
	}
	if actor.ID == id {
		return &ConflictError{Reason: "admins cannot delete their own account"}
	}
	target, err := s.Profile(ctx, id)
	if err != nil {
		return err
	}
	if target.Role == model.RoleAdmin {
		if err := s.ensureOtherAdmin(ctx); err != nil {
			return err
		}
	}
	owned, err := s.products.CountByOwner(ctx, id)
	if err != nil {
		return internal(s.log, "count owned products", err)
	}
	if owned > 0 {
		return &ConflictError{Reason: "account still owns products; delete or reassign them first"}
	}

	if err := s.users.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			return &NotFoundError{Resource: "user", ID: id}
		case errors.Is(err, repository.ErrConflict):
			return &ConflictError{Reason: "account still owns products; delete or reassign them first"}
		}
		return internal(s.log, "delete user", err)
	}
	s.log.Info("user deleted", zap.Uint64("user_id", id), zap.Uint64("by", actor.ID))
	return nil
}

// ensureOtherAdmin refuses to remove the admin role from the last admin.
func (s *UserService) ensureOtherAdmin(ctx context.Context) error {
	n, err := s.users.CountByRole(ctx, model.RoleAdmin)
	if err != nil {
		return internal(s.log, "count admins", err)
	}
	if n <= 1 {
		return &ConflictError{Reason: "the last admin account cannot be removed"}
	}
	return nil
}
