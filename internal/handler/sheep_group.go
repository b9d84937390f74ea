package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// SheepGroupStore is implemented by repository.SheepGroupRepo.
type SheepGroupStore interface {
	farmStore[model.SheepGroup]
}

// SheepGroupHandler serves /v1/sheep-groups.
type SheepGroupHandler struct {
	Groups SheepGroupStore
}

func NewSheepGroupHandler(s SheepGroupStore) *SheepGroupHandler { return &SheepGroupHandler{Groups: s} }

type groupBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func groupFarm(g *model.SheepGroup) uint64 { return g.FarmID }

func (h *SheepGroupHandler) Create(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	var body groupBody
	if err := bind(c, &body); err != nil {
		return err
	}
	name := trimmed(body.Name)
	if name == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	g := &model.SheepGroup{FarmID: farmID, Name: *name, Description: trimmed(body.Description)}

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Groups.Create(ctx, g); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, g)
}

func (h *SheepGroupHandler) List(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	groups, err := h.Groups.ListByFarm(ctx, farmID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *SheepGroupHandler) Get(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	g, err := owned(ctx, p, id, h.Groups.GetByID, groupFarm)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, g)
}

func (h *SheepGroupHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body groupBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	g, err := owned(ctx, p, id, h.Groups.GetByID, groupFarm)
	if err != nil {
		return err
	}
	if name := trimmed(body.Name); name != nil {
		g.Name = *name
	}
	if body.Description != nil {
		g.Description = trimmed(body.Description)
	}
	if err := h.Groups.Update(ctx, g); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, g)
}

// Delete removes the group; its sheep stay on the farm ungrouped.
func (h *SheepGroupHandler) Delete(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	if _, err := owned(ctx, p, id, h.Groups.GetByID, groupFarm); err != nil {
		return err
	}
	if err := h.Groups.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
