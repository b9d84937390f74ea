package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// SheepStore is implemented by repository.SheepRepo.
type SheepStore interface {
	Create(ctx context.Context, s *model.Sheep) error
	GetByID(ctx context.Context, id uint64) (*model.Sheep, error)
	ListByFarm(ctx context.Context, farmID uint64) ([]*model.Sheep, error)
	Update(ctx context.Context, s *model.Sheep, replaceParents bool) error
	Delete(ctx context.Context, id uint64) error
	Parents(ctx context.Context, id uint64) ([]*model.Sheep, error)
	Children(ctx context.Context, id uint64) ([]*model.Sheep, error)
	UpsertMilk(ctx context.Context, sheepID uint64, date model.Date, volume float64) (*model.MilkProduction, error)
	MilkHistory(ctx context.Context, sheepID uint64, on *model.Date) ([]model.MilkProduction, error)
}

// GroupLookup resolves a sheep group by id.
type GroupLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.SheepGroup, error)
}

// SheepHandler serves /v1/sheep and the per-sheep milk yield routes.
type SheepHandler struct {
	Sheep  SheepStore
	Groups GroupLookup
}

func NewSheepHandler(s SheepStore, g GroupLookup) *SheepHandler {
	return &SheepHandler{Sheep: s, Groups: g}
}

// sheepBody is shared by create and update.  On update a group_id of 0
// removes the sheep from its group.
type sheepBody struct {
	BirthDate   *model.Date `json:"birth_date"`
	Gender      *string     `json:"gender"`
	FeedingHay  *float64    `json:"feeding_hay"`
	FeedingFeed *float64    `json:"feeding_feed"`
	GroupID     *uint64     `json:"group_id"`
	FatherID    *uint64     `json:"father_id"`
	MotherID    *uint64     `json:"mother_id"`
}

func sheepFarm(s *model.Sheep) uint64 { return s.FarmID }

// apply copies the present fields of b onto s and validates references
// against the principal's farm.  It reports whether parentage changed.
func (h *SheepHandler) apply(ctx context.Context, p *model.Principal, b sheepBody, s *model.Sheep) (bool, error) {
	if b.BirthDate != nil {
		s.BirthDate = b.BirthDate
	}
	if b.Gender != nil {
		if !model.ValidGender(*b.Gender) {
			return false, echo.NewHTTPError(http.StatusBadRequest, "gender must be "+model.GenderMale+" or "+model.GenderFemale)
		}
		s.Gender = *b.Gender
	}
	if b.FeedingHay != nil {
		s.FeedingHay = *b.FeedingHay
	}
	if b.FeedingFeed != nil {
		s.FeedingFeed = *b.FeedingFeed
	}
	if b.GroupID != nil {
		if *b.GroupID == 0 {
			s.GroupID = nil
		} else {
			if _, err := owned(ctx, p, *b.GroupID, h.Groups.GetByID, groupFarm); err != nil {
				return false, err
			}
			s.GroupID = b.GroupID
		}
	}

	parents := false
	if b.FatherID != nil {
		if err := h.checkParent(ctx, p, s.ID, *b.FatherID, model.GenderMale); err != nil {
			return false, err
		}
		s.FatherID = b.FatherID
		parents = true
	}
	if b.MotherID != nil {
		if err := h.checkParent(ctx, p, s.ID, *b.MotherID, model.GenderFemale); err != nil {
			return false, err
		}
		s.MotherID = b.MotherID
		parents = true
	}
	return parents, nil
}

// checkParent requires parentID to be another sheep of the same farm with
// the expected gender.
func (h *SheepHandler) checkParent(ctx context.Context, p *model.Principal, childID, parentID uint64, gender string) error {
	if parentID == childID {
		return echo.NewHTTPError(http.StatusBadRequest, "a sheep cannot be its own parent")
	}
	parent, err := owned(ctx, p, parentID, h.Sheep.GetByID, sheepFarm)
	if err != nil {
		return err
	}
	if parent.Gender != gender {
		return echo.NewHTTPError(http.StatusBadRequest, "parent gender mismatch")
	}
	return nil
}

func (h *SheepHandler) Create(c echo.Context) error {
	p, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	var body sheepBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.Gender == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "gender is required")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	s := &model.Sheep{FarmID: farmID}
	if _, err := h.apply(ctx, p, body, s); err != nil {
		return err
	}
	if err := h.Sheep.Create(ctx, s); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *SheepHandler) List(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Sheep.ListByFarm(ctx, farmID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SheepHandler) Get(c echo.Context) error {
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
	s, err := owned(ctx, p, id, h.Sheep.GetByID, sheepFarm)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SheepHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body sheepBody
	if err := bind(c, &body); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	s, err := owned(ctx, p, id, h.Sheep.GetByID, sheepFarm)
	if err != nil {
		return err
	}
	replace, err := h.apply(ctx, p, body, s)
	if err != nil {
		return err
	}
	if err := h.Sheep.Update(ctx, s, replace); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, s)
}

// Delete also removes the sheep's milk records, parentage and appointment
// links.
func (h *SheepHandler) Delete(c echo.Context) error {
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
	if _, err := owned(ctx, p, id, h.Sheep.GetByID, sheepFarm); err != nil {
		return err
	}
	if err := h.Sheep.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *SheepHandler) Parents(c echo.Context) error {
	return h.related(c, h.Sheep.Parents)
}

func (h *SheepHandler) Children(c echo.Context) error {
	return h.related(c, h.Sheep.Children)
}

func (h *SheepHandler) related(c echo.Context, list func(context.Context, uint64) ([]*model.Sheep, error)) error {
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
	if _, err := owned(ctx, p, id, h.Sheep.GetByID, sheepFarm); err != nil {
		return err
	}
	out, err := list(ctx, id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, out)
}

// RecordMilk: PATCH /v1/sheep/:id/milk-yield.  One value per sheep and
// day; a second call for the same day replaces the first.
func (h *SheepHandler) RecordMilk(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Date   *model.Date `json:"date"`
		Volume *float64    `json:"volume"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	if body.Volume == nil || *body.Volume < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "volume is required and must not be negative")
	}
	day := model.Today()
	if body.Date != nil {
		day = *body.Date
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	if _, err := owned(ctx, p, id, h.Sheep.GetByID, sheepFarm); err != nil {
		return err
	}
	m, err := h.Sheep.UpsertMilk(ctx, id, day, *body.Volume)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, m)
}

// MilkHistory: GET /v1/sheep/:id/milk-yield[?date=YYYY-MM-DD].
func (h *SheepHandler) MilkHistory(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var on *model.Date
	if raw := c.QueryParam("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		on = &d
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	if _, err := owned(ctx, p, id, h.Sheep.GetByID, sheepFarm); err != nil {
		return err
	}
	hist, err := h.Sheep.MilkHistory(ctx, id, on)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, hist)
}
