package middleware

// identity.go holds the context keys shared by the auth middleware and the
// handlers, plus helpers to read them back.

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

const (
	principalKey = "principal"
	tokenKey     = "access_token"
)

// BearerToken returns the token from an "Authorization: Bearer <token>"
// header.  The scheme is matched case-insensitively.
func BearerToken(c echo.Context) (string, bool) {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c echo.Context) (*model.Principal, bool) {
	p, ok := c.Get(principalKey).(*model.Principal)
	return p, ok && p != nil
}

// TokenFrom returns the raw token that authenticated the request.
func TokenFrom(c echo.Context) string {
	s, _ := c.Get(tokenKey).(string)
	return s
}

// SetPrincipal stores p on the context.  Tests use it to bypass Authenticate.
func SetPrincipal(c echo.Context, p *model.Principal) {
	c.Set(principalKey, p)
}
