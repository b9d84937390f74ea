// Package router wires handlers and middleware onto an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/luizasposito/sheep-management-system/internal/handler"
	"github.com/luizasposito/sheep-management-system/internal/middleware"
	"github.com/luizasposito/sheep-management-system/internal/model"
)

var (
	farmerOnly = middleware.RequireRole(model.RoleFarmer)
	vetOnly    = middleware.RequireRole(model.RoleVeterinarian)
	anyRole    = middleware.RequireRole(model.Roles...)
)

// RegisterRoutes registers the routes that need no authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers login, logout and the current principal.  Logout
// only needs a bearer header: the token is revoked even if it no longer
// resolves.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, auth middleware.Resolver) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.Authenticate(auth))
}

// Handlers groups the resource handlers mounted under /v1.  Nil entries
// are skipped.
type Handlers struct {
	Farmers        *handler.FarmerHandler
	Veterinarians  *handler.VeterinarianHandler
	Inventory      *handler.InventoryHandler
	Sheep          *handler.SheepHandler
	SheepGroups    *handler.SheepGroupHandler
	Sensors        *handler.SensorHandler
	Appointments   *handler.AppointmentHandler
	MilkProduction *handler.MilkProductionHandler
}

// RegisterResources mounts every resource under /v1 behind Authenticate.
// Role checks are attached per route; farm checks live in the handlers.
func RegisterResources(e *echo.Echo, h Handlers, auth middleware.Resolver) {
	if h.Farmers != nil {
		// registration creates the account, so it cannot require one
		e.POST("/v1/farmers", h.Farmers.Register)
	}

	g := e.Group("/v1", middleware.Authenticate(auth))

	if f := h.Farmers; f != nil {
		g.GET("/farmers/:id", f.Get, anyRole)
	}

	if v := h.Veterinarians; v != nil {
		g.POST("/veterinarians", v.Create, farmerOnly)
		g.GET("/veterinarians/:id", v.Get, anyRole)
		g.PUT("/veterinarians/:id", v.Update, anyRole)
	}

	if i := h.Inventory; i != nil {
		inv := g.Group("/inventory", farmerOnly)
		inv.POST("", i.Create)
		inv.GET("", i.List)
		inv.GET("/:id", i.Get)
		inv.PUT("/:id", i.Update)
		inv.DELETE("/:id", i.Delete)
	}

	if s := h.Sheep; s != nil {
		g.POST("/sheep", s.Create, farmerOnly)
		g.GET("/sheep", s.List, anyRole)
		g.GET("/sheep/:id", s.Get, anyRole)
		g.PUT("/sheep/:id", s.Update, farmerOnly)
		g.DELETE("/sheep/:id", s.Delete, farmerOnly)
		g.GET("/sheep/:id/parents", s.Parents, anyRole)
		g.GET("/sheep/:id/children", s.Children, anyRole)
		g.PATCH("/sheep/:id/milk-yield", s.RecordMilk, farmerOnly)
		g.GET("/sheep/:id/milk-yield", s.MilkHistory, anyRole)
	}

	if sg := h.SheepGroups; sg != nil {
		g.POST("/sheep-groups", sg.Create, farmerOnly)
		g.GET("/sheep-groups", sg.List, anyRole)
		g.GET("/sheep-groups/:id", sg.Get, anyRole)
		g.PUT("/sheep-groups/:id", sg.Update, farmerOnly)
		g.DELETE("/sheep-groups/:id", sg.Delete, farmerOnly)
	}

	if s := h.Sensors; s != nil {
		sen := g.Group("/sensors", farmerOnly)
		sen.POST("", s.Create)
		sen.GET("", s.List)
		sen.GET("/:id", s.Get)
		sen.PUT("/:id", s.Update)
		sen.DELETE("/:id", s.Delete)
	}

	if a := h.Appointments; a != nil {
		g.POST("/appointments", a.Create, farmerOnly)
		g.GET("/appointments", a.List, anyRole)
		g.GET("/appointments/:id", a.Get, anyRole)
		g.PATCH("/appointments/:id", a.Update, vetOnly)
	}

	if m := h.MilkProduction; m != nil {
		mp := g.Group("/milk-production", anyRole)
		mp.GET("/total-today", m.TotalToday)
		mp.GET("/total-today-by-group", m.TotalTodayByGroup)
		mp.GET("/total-last-7-days", m.TotalLast7Days)
	}
}
