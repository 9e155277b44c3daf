package router

import (
	"github.com/labstack/echo/v4"

	"github.com/eventix/ticketing/internal/handler"
	"github.com/eventix/ticketing/internal/middleware"
	"github.com/eventix/ticketing/internal/model"
)

// RegisterOrganizer registers catalog management endpoints under /v1.
// All routes require a valid JWT and the ORGANIZER or ADMIN role.
// Listing events and venues is handled by the public API; only mutations
// live here.
func RegisterOrganizer(e *echo.Echo, o *handler.OrganizerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleOrganizer, model.RoleAdmin),
	)

	// ---- Events ----
	g.POST("/events", o.CreateEvent)
	g.PUT("/events/:id", o.UpdateEvent)
	g.DELETE("/events/:id", o.DeleteEvent)

	// ---- Venues ----
	g.POST("/venues", o.CreateVenue)
	g.PUT("/venues/:id", o.UpdateVenue)
	g.DELETE("/venues/:id", o.DeleteVenue)

	// ---- Occurrences ----
	g.POST("/occurrences", o.ScheduleOccurrence)
	g.DELETE("/occurrences/:id", o.DeleteOccurrence)
}
