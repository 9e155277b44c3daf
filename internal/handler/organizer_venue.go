package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/repository"
)

type venueReq struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Capacity uint32 `json:"capacity"`
}

func (r *venueReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return "name required"
	}
	if r.Capacity == 0 {
		return "capacity must be positive"
	}
	return ""
}

// CreateVenue adds a venue.
func (h *OrganizerHandler) CreateVenue(c echo.Context) error {
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v := &model.Venue{Name: req.Name, Address: req.Address, Capacity: req.Capacity}
	if err := h.Venues.Create(ctx, v); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create venue failed"})
	}
	return c.JSON(http.StatusCreated, venueResp{ID: v.ID, Name: v.Name, Address: v.Address, Capacity: v.Capacity})
}

// UpdateVenue replaces a venue's fields.  Shrinking the capacity below
// the active ticket count of any hosted occurrence is refused, otherwise
// already-sold occurrences would appear oversold.
func (h *OrganizerHandler) UpdateVenue(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	var req venueReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	v := &model.Venue{ID: id, Name: req.Name, Address: req.Address, Capacity: req.Capacity}
	if err := h.Venues.Update(ctx, v); err != nil {
		switch {
		case errors.Is(err, repository.ErrVenueNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below sold tickets"})
		case errors.Is(err, repository.ErrBusy):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update venue failed"})
	}
	return c.JSON(http.StatusOK, venueResp{ID: v.ID, Name: v.Name, Address: v.Address, Capacity: v.Capacity})
}

// DeleteVenue removes a venue without active tickets.
func (h *OrganizerHandler) DeleteVenue(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Venues.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrVenueNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "venue has active tickets"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete venue failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
