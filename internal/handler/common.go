package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/middleware"
	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/repository"
)

// requestTimeout bounds the store calls made by a single handler.
const requestTimeout = 5 * time.Second

var errForbidden = echo.NewHTTPError(http.StatusForbidden, "resource belongs to another farm")

func dbContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// ErrorHandler renders every error returned by a handler as
// {"error": "<message>"}.  Errors that are not *echo.HTTPError are logged and
// answered with a generic 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, msg := http.StatusInternalServerError, "internal error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
		if he.Internal != nil {
			c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), he.Internal)
		}
	} else {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, echo.Map{"error": msg})
}

// storeError translates a repository error into an HTTP error.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, repository.ErrForbidden):
		return errForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "database timeout").SetInternal(err)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// currentPrincipal returns the principal resolved by middleware.Authenticate.
func currentPrincipal(c echo.Context) (*model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return p, nil
}

// currentFarm returns the principal together with its farm.  Resources are
// always created in and listed from this farm, never one named by the
// client.
func currentFarm(c echo.Context) (*model.Principal, uint64, error) {
	p, err := currentPrincipal(c)
	if err != nil {
		return nil, 0, err
	}
	if p.FarmID == nil {
		return nil, 0, echo.NewHTTPError(http.StatusForbidden, "account is not attached to a farm")
	}
	return p, *p.FarmID, nil
}

// authorizeFarm is the tenant check: the resource's owning farm must be
// the principal's current farm.
func authorizeFarm(p *model.Principal, farmID uint64) error {
	if !p.BelongsTo(farmID) {
		return errForbidden
	}
	return nil
}

func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

// trimmed returns nil for a nil or blank string.
func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// farmStore is the CRUD shape shared by the farm-scoped repositories.
type farmStore[T any] interface {
	Create(ctx context.Context, v *T) error
	GetByID(ctx context.Context, id uint64) (*T, error)
	ListByFarm(ctx context.Context, farmID uint64) ([]*T, error)
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id uint64) error
}

// owned loads a tenant-scoped resource and applies the farm check to it.
func owned[T any](ctx context.Context, p *model.Principal, id uint64,
	get func(context.Context, uint64) (*T, error), farmOf func(*T) uint64) (*T, error) {
	v, err := get(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	if err := authorizeFarm(p, farmOf(v)); err != nil {
		return nil, err
	}
	return v, nil
}
