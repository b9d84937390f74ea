package handler

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/queue"
	"github.com/luizasposito/sheep-management-system/internal/repository"
	"github.com/luizasposito/sheep-management-system/internal/service"
)

// AppointmentStore is implemented by repository.AppointmentRepo.
type AppointmentStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uint64) (*model.Appointment, error)
	ListByFarm(ctx context.Context, farmID uint64) ([]*model.Appointment, error)
	Update(ctx context.Context, id uint64, reason, comments *string, meds *[]model.Medication) error
}

// SheepCounter is implemented by repository.SheepRepo.
type SheepCounter interface {
	CountInFarm(ctx context.Context, farmID uint64, ids []uint64) (int, error)
}

// VetLookup is implemented by repository.VeterinarianRepo.
type VetLookup interface {
	GetByID(ctx context.Context, id uint64) (*model.Veterinarian, error)
	FirstByFarm(ctx context.Context, farmID uint64) (*model.Veterinarian, error)
}

// AppointmentHandler serves /v1/appointments.  Farmers book visits, the
// farm's veterinarian records the outcome.
type AppointmentHandler struct {
	Appointments AppointmentStore
	Sheep        SheepCounter
	Vets         VetLookup
	Events       service.Publisher
}

func NewAppointmentHandler(a AppointmentStore, s SheepCounter, v VetLookup) *AppointmentHandler {
	return &AppointmentHandler{Appointments: a, Sheep: s, Vets: v}
}

func appointmentFarm(a *model.Appointment) uint64 { return a.FarmID }

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Create: POST /v1/appointments.
func (h *AppointmentHandler) Create(c echo.Context) error {
	p, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	var body struct {
		SheepIDs []uint64   `json:"sheep_ids"`
		Date     *time.Time `json:"date"`
		Reason   *string    `json:"reason"`
		Comments *string    `json:"comments"`
		VetID    *uint64    `json:"vet_id"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	ids := uniqueIDs(body.SheepIDs)
	if len(ids) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "sheep_ids must not be empty")
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	n, err := h.Sheep.CountInFarm(ctx, farmID, ids)
	if err != nil {
		return storeError(err)
	}
	if n != len(ids) {
		return echo.NewHTTPError(http.StatusForbidden, "some sheep do not belong to this farm")
	}

	var vet *model.Veterinarian
	if body.VetID != nil {
		vet, err = owned(ctx, p, *body.VetID, h.Vets.GetByID, func(v *model.Veterinarian) uint64 { return v.FarmID })
	} else {
		vet, err = h.Vets.FirstByFarm(ctx, farmID)
		if errors.Is(err, repository.ErrNotFound) {
			return echo.NewHTTPError(http.StatusBadRequest, "farm has no veterinarian")
		}
		if err != nil {
			err = storeError(err)
		}
	}
	if err != nil {
		return err
	}

	a := &model.Appointment{
		FarmID:   farmID,
		VetID:    vet.ID,
		Date:     time.Now().UTC(),
		Reason:   trimmed(body.Reason),
		Comments: trimmed(body.Comments),
		SheepIDs: ids,
	}
	if body.Date != nil {
		a.Date = body.Date.UTC()
	}
	if err := h.Appointments.Create(ctx, a); err != nil {
		return storeError(err)
	}

	service.PublishAsync(h.Events, queue.AppointmentQueue, queue.AppointmentScheduledEvent{
		AppointmentID: a.ID,
		FarmID:        a.FarmID,
		VetID:         a.VetID,
		SheepIDs:      a.SheepIDs,
		Date:          a.Date,
	})
	return c.JSON(http.StatusCreated, a)
}

func (h *AppointmentHandler) List(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Appointments.ListByFarm(ctx, farmID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AppointmentHandler) Get(c echo.Context) error {
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
	a, err := owned(ctx, p, id, h.Appointments.GetByID, appointmentFarm)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

type medicationBody struct {
	Name       string  `json:"name"`
	Dosage     *string `json:"dosage"`
	Indication *string `json:"indication"`
}

// Update: PATCH /v1/appointments/:id.  Medications, when present, replace
// the ones already recorded.
func (h *AppointmentHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body struct {
		Reason      *string           `json:"reason"`
		Comments    *string           `json:"comments"`
		Medications *[]medicationBody `json:"medications"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}

	var meds *[]model.Medication
	if body.Medications != nil {
		list := make([]model.Medication, 0, len(*body.Medications))
		for _, m := range *body.Medications {
			name := strings.TrimSpace(m.Name)
			if name == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "medication name is required")
			}
			list = append(list, model.Medication{Name: name, Dosage: trimmed(m.Dosage), Indication: trimmed(m.Indication)})
		}
		meds = &list
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	a, err := owned(ctx, p, id, h.Appointments.GetByID, appointmentFarm)
	if err != nil {
		return err
	}
	reason, comments := a.Reason, a.Comments
	if body.Reason != nil {
		reason = trimmed(body.Reason)
	}
	if body.Comments != nil {
		comments = trimmed(body.Comments)
	}
	if err := h.Appointments.Update(ctx, id, reason, comments, meds); err != nil {
		return storeError(err)
	}

	a, err = h.Appointments.GetByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, a)
}
