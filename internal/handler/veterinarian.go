package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

// VeterinarianStore is implemented by repository.VeterinarianRepo.
type VeterinarianStore interface {
	Create(ctx context.Context, v *model.Veterinarian) error
	GetByID(ctx context.Context, id uint64) (*model.Veterinarian, error)
	Update(ctx context.Context, v *model.Veterinarian) error
}

// PrincipalInvalidator drops cached principals after an account changes.
type PrincipalInvalidator interface {
	InvalidatePrincipal(ctx context.Context, role model.Role, email string)
}

type VeterinarianHandler struct {
	Vets       VeterinarianStore
	Principals PrincipalInvalidator
	BcryptCost int
}

func NewVeterinarianHandler(s VeterinarianStore, inv PrincipalInvalidator, bcryptCost int) *VeterinarianHandler {
	return &VeterinarianHandler{Vets: s, Principals: inv, BcryptCost: bcryptCost}
}

type vetBody struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Create: POST /v1/veterinarians.  The vet joins the calling farmer's farm.
func (h *VeterinarianHandler) Create(c echo.Context) error {
	p, farmID, err := currentFarm(c)
	if err != nil {
		return err
	}
	var body vetBody
	if err := bind(c, &body); err != nil {
		return err
	}
	name, email := trimmed(body.Name), trimmed(body.Email)
	if name == nil || email == nil || body.Password == nil || *body.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name, email and password are required")
	}

	hash, err := utils.HashPassword(*body.Password, h.BcryptCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "hash password failed").SetInternal(err)
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	v := &model.Veterinarian{
		Name:         *name,
		Email:        strings.ToLower(*email),
		PasswordHash: hash,
		FarmID:       farmID,
		FarmerID:     p.ID,
	}
	if err := h.Vets.Create(ctx, v); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, v)
}

// Get: GET /v1/veterinarians/:id.
func (h *VeterinarianHandler) Get(c echo.Context) error {
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

	v, err := h.Vets.GetByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := authorizeFarm(p, v.FarmID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

// Update: PUT /v1/veterinarians/:id.  Allowed for the farmer of the vet's
// farm and for the vet themself.
func (h *VeterinarianHandler) Update(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var body vetBody
	if err := bind(c, &body); err != nil {
		return err
	}

	ctx, cancel := dbContext(c)
	defer cancel()

	v, err := h.Vets.GetByID(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := authorizeFarm(p, v.FarmID); err != nil {
		return err
	}
	switch p.Role {
	case model.RoleFarmer:
	case model.RoleVeterinarian:
		if p.ID != v.ID {
			return echo.NewHTTPError(http.StatusForbidden, "veterinarians may only update their own profile")
		}
	default:
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	oldEmail := v.Email
	if name := trimmed(body.Name); name != nil {
		v.Name = *name
	}
	if email := trimmed(body.Email); email != nil {
		v.Email = strings.ToLower(*email)
	}
	if body.Password != nil && *body.Password != "" {
		hash, err := utils.HashPassword(*body.Password, h.BcryptCost)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "hash password failed").SetInternal(err)
		}
		v.PasswordHash = hash
	}

	if err := h.Vets.Update(ctx, v); err != nil {
		return storeError(err)
	}
	if h.Principals != nil {
		h.Principals.InvalidatePrincipal(ctx, model.RoleVeterinarian, oldEmail)
		if v.Email != oldEmail {
			h.Principals.InvalidatePrincipal(ctx, model.RoleVeterinarian, v.Email)
		}
	}
	return c.JSON(http.StatusOK, v)
}
