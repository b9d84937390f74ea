package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
)

// SensorStore is implemented by repository.SensorRepo.
type SensorStore interface {
	farmStore[model.Sensor]
}

// SensorHandler serves /v1/sensors.  Farmer-only.
type SensorHandler struct {
	Sensors SensorStore
}

func NewSensorHandler(s SensorStore) *SensorHandler { return &SensorHandler{Sensors: s} }

type sensorBody struct {
	Name         *string    `json:"name"`
	MinValue     *float64   `json:"min_value"`
	MaxValue     *float64   `json:"max_value"`
	CurrentValue *float64   `json:"current_value"`
	Unit         *string    `json:"unit"`
	Timestamp    *time.Time `json:"timestamp"`
}

func (b sensorBody) apply(s *model.Sensor) error {
	if name := trimmed(b.Name); name != nil {
		s.Name = *name
	}
	if b.MinValue != nil {
		s.MinValue = b.MinValue
	}
	if b.MaxValue != nil {
		s.MaxValue = b.MaxValue
	}
	if s.MinValue != nil && s.MaxValue != nil && *s.MinValue > *s.MaxValue {
		return echo.NewHTTPError(http.StatusBadRequest, "min_value must not exceed max_value")
	}
	if b.CurrentValue != nil {
		s.CurrentValue = *b.CurrentValue
	}
	if b.Unit != nil {
		s.Unit = trimmed(b.Unit)
	}
	switch {
	case b.Timestamp != nil:
		s.Timestamp = b.Timestamp.UTC()
	case b.CurrentValue != nil || s.Timestamp.IsZero():
		s.Timestamp = time.Now().UTC()
	}
	return nil
}

func sensorFarm(s *model.Sensor) uint64 { return s.FarmID }

func (h *SensorHandler) Create(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	var body sensorBody
	if err := bind(c, &body); err != nil {
		return err
	}
	if trimmed(body.Name) == nil || body.CurrentValue == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "name and current_value are required")
	}
	s := &model.Sensor{FarmID: farmID}
	if err := body.apply(s); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()
	if err := h.Sensors.Create(ctx, s); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *SensorHandler) List(c echo.Context) error {
	_, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	list, err := h.Sensors.ListByFarm(ctx, farmID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *SensorHandler) Get(c echo.Context) error {
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
	s, err := owned(ctx, p, id, h.Sensors.GetByID, sensorFarm)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SensorHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body sensorBody
	if err := bind(c, &body); err != nil {
		return err
	}
	ctx, cancel := dbContext(c)
	defer cancel()
	s, err := owned(ctx, p, id, h.Sensors.GetByID, sensorFarm)
	if err != nil {
		return err
	}
	if err := body.apply(s); err != nil {
		return err
	}
	if err := h.Sensors.Update(ctx, s); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SensorHandler) Delete(c echo.Context) error {
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
	if _, err := owned(ctx, p, id, h.Sensors.GetByID, sensorFarm); err != nil {
		return err
	}
	if err := h.Sensors.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
