package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// FarmerStore is implemented by repository.FarmerRepo.
type FarmerStore interface {
	CreateWithFarm(ctx context.Context, farm *model.Farm, f *model.Farmer) error
	GetByID(ctx context.Context, id uint64) (*model.Farmer, error)
	GetFarm(ctx context.Context, id uint64) (*model.Farm, error)
}

// FarmerHandler registers farmers and shows their profile.
type FarmerHandler struct {
	Farmers    FarmerStore
	BcryptCost int
}

func NewFarmerHandler(s FarmerStore, bcryptCost int) *FarmerHandler {
	return &FarmerHandler{Farmers: s, BcryptCost: bcryptCost}
}

type farmerResp struct {
	*model.Farmer
	Farm *model.Farm `json:"farm,omitempty"`
}

// Register: POST /v1/farmers.  Creates the farm and its farmer together.
func (h *FarmerHandler) Register(c echo.Context) error {
	var body struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Farm     struct {
			Name     string  `json:"name"`
			Location *string `json:"location"`
		} `json:"farm"`
	}
	if err := bind(c, &body); err != nil {
		return err
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Email = strings.ToLower(strings.TrimSpace(body.Email))
	body.Farm.Name = strings.TrimSpace(body.Farm.Name)
	if body.Name == "" || body.Email == "" || body.Password == "" || body.Farm.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name, email, password and farm.name are required")
	}

	hash, err := utils.HashPassword(body.Password, h.BcryptCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "hash password failed").SetInternal(err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	farm := &model.Farm{Name: body.Farm.Name, Location: trimmed(body.Farm.Location)}
	f := &model.Farmer{Name: body.Name, Email: body.Email, PasswordHash: hash}
	if err := h.Farmers.CreateWithFarm(ctx, farm, f); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, farmerResp{Farmer: f, Farm: farm})
}

// Get: GET /v1/farmers/:id.
func (h *FarmerHandler) Get(c echo.Context) error {
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

	f, err := h.Farmers.GetByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := authorizeFarm(p, f.FarmID); err != nil {
		return err
	}
	farm, err := h.Farmers.GetFarm(ctx, f.FarmID)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, farmerResp{Farmer: f, Farm: farm})
}
