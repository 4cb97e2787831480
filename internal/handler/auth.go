package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/sales-pos/internal/config"
	"github.com/iliyamo/sales-pos/internal/model"
	"github.com/iliyamo/sales-pos/internal/repository"
	"github.com/iliyamo/sales-pos/internal/service"
	"github.com/iliyamo/sales-pos/internal/utils"
)

// AuthHandler serves registration, login and the refresh token session.
type AuthHandler struct {
	Cfg    config.Config
	Users  *service.UserService
	Tokens repository.TokenStore
	Log    *zap.Logger
}

func NewAuthHandler(cfg config.Config, users *service.UserService, tokens repository.TokenStore, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens, Log: log}
}

// ----- DTOs -----

type locationReq struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

func (l *locationReq) model() *model.Location {
	if l == nil {
		return nil
	}
	return &model.Location{Lat: l.Lat, Lng: l.Lng}
}

type registerReq struct {
	Name     string       `json:"name" validate:"required,max=120"`
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,min=6"`
	Role     string       `json:"role" validate:"omitempty,oneof=admin vendor customer"`
	Phone    string       `json:"phone" validate:"max=40"`
	Location *locationReq `json:"location"`
	Business string       `json:"business" validate:"max=160"`
	Photos   []string     `json:"photos" validate:"max=10"`
}

func (r registerReq) input() service.RegisterInput {
	return service.RegisterInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
		Role:     r.Role,
		Phone:    r.Phone,
		Location: r.Location.model(),
		Business: r.Business,
		Photos:   r.Photos,
	}
}

type loginReq struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.User `json:"user"`
	Access  tokenPart  `json:"access"`
	Refresh tokenPart  `json:"refresh"`
}

// Register creates a customer or vendor account and logs it in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Users.Register(ctx, req.input())
	if err != nil {
		return fail(c, err)
	}
	return h.issue(c, http.StatusCreated, u)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return h.issue(c, http.StatusOK, u)
}

// Refresh validates a refresh token, revokes it and returns a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	hash, err := refreshHash(c)
	if err != nil {
		return fail(c, err)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.sessionUser(c, hash)
	if err != nil {
		return fail(c, err)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		h.Log.Error("revoke refresh token", zap.Error(err))
		return fail(c, service.ErrInternal)
	}
	return h.issue(c, http.StatusOK, u)
}

// RefreshAccess returns a new access token and leaves the refresh token
// untouched.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	hash, err := refreshHash(c)
	if err != nil {
		return fail(c, err)
	}
	u, err := h.sessionUser(c, hash)
	if err != nil {
		return fail(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), u.IsAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.Error("issue access token", zap.Error(err))
		return fail(c, service.ErrInternal)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access": tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.RefreshToken)

	var bearer *utils.AccessClaims
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			bearer = &claims
		}
	}

	ctx, cancel := timeout(c)
	defer cancel()

	switch {
	case raw != "":
		hash := utils.HashRefreshRaw(raw)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return fail(c, errInvalidRefresh)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			h.Log.Error("revoke refresh token", zap.Error(err))
			return fail(c, service.ErrInternal)
		}
	case bearer != nil:
		if err := h.Tokens.RevokeAllForUser(ctx, bearer.UserID); err != nil {
			h.Log.Error("revoke user sessions", zap.Uint64("user_id", bearer.UserID), zap.Error(err))
			return fail(c, service.ErrInternal)
		}
	default:
		return c.JSON(http.StatusBadRequest, errorBody(kindValidation, "provide Authorization header or refreshToken"))
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the profile of the authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthenticated(c)
	}
	ctx, cancel := timeout(c)
	defer cancel()

	u, err := h.Users.Profile(ctx, actor.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func refreshHash(c echo.Context) (string, error) {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return "", &service.ValidationError{Field: "refreshToken", Message: "refreshToken is required"}
	}
	return utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)), nil
}

// sessionUser resolves a refresh token hash to its account.
func (h *AuthHandler) sessionUser(c echo.Context, hash string) (model.User, error) {
	ctx, cancel := timeout(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err == nil {
		var u model.User
		u, err = h.Users.Profile(ctx, userID)
		if err == nil {
			return u, nil
		}
	}
	var nf *service.NotFoundError
	if errors.Is(err, repository.ErrInvalidToken) || errors.As(err, &nf) {
		return model.User{}, errInvalidRefresh
	}
	h.Log.Error("validate refresh token", zap.Error(err))
	return model.User{}, service.ErrInternal
}

func (h *AuthHandler) issue(c echo.Context, status int, u model.User) error {
	ctx, cancel := timeout(c)
	defer cancel()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, string(u.Role), u.IsAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		h.Log.Error("issue access token", zap.Error(err))
		return fail(c, service.ErrInternal)
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		h.Log.Error("issue refresh token", zap.Error(err))
		return fail(c, service.ErrInternal)
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		h.Log.Error("store refresh token", zap.Uint64("user_id", u.ID), zap.Error(err))
		return fail(c, service.ErrInternal)
	}
	return c.JSON(status, authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}
