package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// InventoryStore is implemented by repository.InventoryRepo.
type InventoryStore interface {
	farmStore[model.InventoryItem]
}

// InventoryHandler serves /v1/inventory.  Every route is farmer-only.
type InventoryHandler struct {
	Items InventoryStore
}

func NewInventoryHandler(s InventoryStore) *InventoryHandler { return &InventoryHandler{Items: s} }

type inventoryBody struct {
	ItemName        *string    `json:"item_name"`
	Quantity        *int       `json:"quantity"`
	Unit            *string    `json:"unit"`
	ConsumptionRate *float64   `json:"consumption_rate"`
	Category        *string    `json:"category"`
	LastUpdated     *time.Time `json:"last_updated"`
}

func (b inventoryBody) apply(it *model.InventoryItem) error {
	if name := trimmed(b.ItemName); name != nil {
		it.ItemName = *name
	}
	if b.Quantity != nil {
		if *b.Quantity < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "quantity must not be negative")
		}
		it.Quantity = *b.Quantity
	}
	if b.Unit != nil {
		it.Unit = strings.TrimSpace(*b.Unit)
	}
	if b.ConsumptionRate != nil {
		it.ConsumptionRate = *b.ConsumptionRate
	}
	if b.Category != nil {
		it.Category = strings.TrimSpace(*b.Category)
	}
	if b.LastUpdated != nil {
		it.LastUpdated = b.LastUpdated.UTC()
	} else {
		it.LastUpdated = time.Now().UTC()
	}
	return nil
}

func inventoryFarm(it *model.InventoryItem) uint64 { return it.FarmID }

func (h *InventoryHandler) Create(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	var body inventoryBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if trimmed(body.ItemName) == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "item_name is required")
	}
	it := &model.InventoryItem{FarmID: farmID}
	if err := body.apply(it); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Items.Create(ctx, it); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, it)
}

func (h *InventoryHandler) List(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	items, err := h.Items.ListByFarm(ctx, farmID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *InventoryHandler) Get(c echo.Context) error {
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
	it, err := owned(ctx, p, id, h.Items.GetByID, inventoryFarm)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, it)
}

func (h *InventoryHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body inventoryBody
	if err := bind(c, &body); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	it, err := owned(ctx, p, id, h.Items.GetByID, inventoryFarm)
	if err != nil {
		return err
	}
	if err := body.apply(it); err != nil {
		return err
	}
	if err := h.Items.Update(ctx, it); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, it)
}

func (h *InventoryHandler) Delete(c echo.Context) error {
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
	if _, err := owned(ctx, p, id, h.Items.GetByID, inventoryFarm); err != nil {
		return err
	}
	if err := h.Items.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
