package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/middleware"
	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/service"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// Authenticator is the part of service.AuthService used by AuthHandler.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (utils.AccessToken, model.Principal, error)
	Logout(ctx context.Context, raw string) error
}

// AuthHandler serves /v1/auth.
type AuthHandler struct {
	Auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler {
	return &AuthHandler{Auth: a}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResp struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Login: POST /v1/auth/login.  Unknown email and wrong password get the
// same 401 body.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	tok, _, err := h.Auth.Login(c.Request().Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrIdentityUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authentication temporarily unavailable"})
	default:
		c.Logger().Errorf("login: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}

	return c.JSON(http.StatusOK, tokenResp{
		AccessToken: tok.Token,
		TokenType:   "bearer",
		ExpiresAt:   tok.Exp,
	})
}

// Logout: POST /v1/auth/logout.  The presented token is revoked whether or
// not it is still valid, so the route sits outside Authenticate.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		return middleware.Unauthorized(c)
	}
	if err := h.Auth.Logout(c.Request().Context(), raw); err != nil {
		c.Logger().Errorf("logout: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "logout temporarily unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// Me: GET /v1/auth/me.
func (h *AuthHandler) Me(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}
