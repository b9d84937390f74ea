package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// MilkTotals is implemented by repository.MilkRepo.
type MilkTotals interface {
	TotalForDay(ctx context.Context, farmID uint64, day model.Date) (float64, error)
	TotalsByGroup(ctx context.Context, farmID uint64, from, to model.Date) ([]model.GroupMilkTotal, error)
}

// MilkProductionHandler serves the farm-wide milk summaries.  They always
// cover the caller's own farm.
type MilkProductionHandler struct {
	Milk  MilkTotals
	today func() model.Date
}

func NewMilkProductionHandler(m MilkTotals) *MilkProductionHandler {
	return &MilkProductionHandler{Milk: m, today: model.Today}
}

// TotalToday: GET /v1/milk-production/total-today.
func (h *MilkProductionHandler) TotalToday(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	day := h.today()
	total, err := h.Milk.TotalForDay(ctx, farmID, day)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": day, "total_volume": total})
}

// TotalTodayByGroup: GET /v1/milk-production/total-today-by-group.
func (h *MilkProductionHandler) TotalTodayByGroup(c echo.Context) error {
	day := h.today()
	return h.byGroup(c, day, day)
}

// TotalLast7Days: GET /v1/milk-production/total-last-7-days, per group,
// today included.
func (h *MilkProductionHandler) TotalLast7Days(c echo.Context) error {
	day := h.today()
	return h.byGroup(c, day.AddDays(-6), day)
}

func (h *MilkProductionHandler) byGroup(c echo.Context, from, to model.Date) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	totals, err := h.Milk.TotalsByGroup(ctx, farmID, from, to)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"from": from, "to": to, "groups": totals})
}
