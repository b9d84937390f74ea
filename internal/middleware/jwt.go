package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/service"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// Resolver turns a raw bearer token into the principal it currently
// stands for.  *service.AuthService satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (*model.Principal, error)
}

// Authenticate validates the Bearer token on every request and stores the
// freshly resolved principal in the context (see PrincipalFrom).  Every
// token problem is answered with the same 401 body; the precise reason is
// only logged.
func Authenticate(auth Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				c.Logger().Debugf("auth: no bearer token")
				return Unauthorized(c)
			}

			p, err := auth.Resolve(c.Request().Context(), raw)
			if err != nil {
				return authError(c, err)
			}

			c.Set(principalKey, p)
			c.Set(tokenKey, raw)
			return next(c)
		}
	}
}

// Unauthorized writes the single 401 body used for every missing, malformed,
// expired or revoked token.
func Unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
}

func authError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, utils.ErrInvalidToken):
		c.Logger().Debugf("auth: %v", err)
		return Unauthorized(c)
	case errors.Is(err, service.ErrPrincipalNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, service.ErrIdentityUnavailable), errors.Is(err, service.ErrRevocationUnavailable):
		c.Logger().Errorf("auth: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "authentication temporarily unavailable"})
	default:
		c.Logger().Errorf("auth: unexpected error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
