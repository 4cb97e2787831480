package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/sales-pos/internal/service"
)

// UserHandler exposes account administration.
type UserHandler struct {
	Users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{Users: users}
}

type vendorReq struct {
	Name     string       `json:"name" validate:"required,max=120"`
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,min=6"`
	Phone    string       `json:"phone" validate:"max=40"`
	Location *locationReq `json:"location"`
	Business string       `json:"business" validate:"max=160"`
	Photos   []string     `json:"photos" validate:"max=10"`
}

type userPatchReq struct {
	Name     *string      `json:"name" validate:"omitempty,min=1,max=120"`
	Email    *string      `json:"email" validate:"omitempty,email"`
	Password *string      `json:"password" validate:"omitempty,min=6"`
	Phone    *string      `json:"phone" validate:"omitempty,max=40"`
	Business *string      `json:"business" validate:"omitempty,max=160"`
	Location *locationReq `json:"location"`
	Photos   *[]string    `json:"photos"`
	Role     *string      `json:"role" validate:"omitempty,oneof=admin vendor customer"`
	IsAdmin  *bool        `json:"isAdmin"`
}

// CreateVendor registers a vendor account on behalf of an admin.
func (h *UserHandler) CreateVendor(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	var req vendorReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Users.CreateVendor(ctx, actor, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Location: req.Location.model(),
		Business: req.Business,
		Photos:   req.Photos,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// List returns all users, optionally filtered with ?role=.
func (h *UserHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	users, err := h.Users.List(ctx, actor, c.QueryParam("role"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"users": users, "count": len(users)})
}

func (h *UserHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Users.Get(ctx, actor, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// Update applies a partial profile change.
func (h *UserHandler) Update(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	var req userPatchReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Users.Update(ctx, actor, id, service.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Business: req.Business,
		Location: req.Location.model(),
		Photos:   req.Photos,
		Role:     req.Role,
		IsAdmin:  req.IsAdmin,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	id, err := pathID(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	if err := h.Users.Delete(ctx, actor, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
