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

// OrganizerHandler bundles the repositories organizers use to manage the
// catalog.  Role enforcement happens in the router; these handlers only
// validate input and map repository errors.
type OrganizerHandler struct {
	Events      *repository.EventRepo
	Venues      *repository.VenueRepo
	Occurrences *repository.OccurrenceRepo
}

func NewOrganizerHandler(e *repository.EventRepo, v *repository.VenueRepo, o *repository.OccurrenceRepo) *OrganizerHandler {
	if e == nil || v == nil || o == nil {
		panic("nil repository passed to NewOrganizerHandler")
	}
	return &OrganizerHandler{Events: e, Venues: v, Occurrences: o}
}

type eventReq struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

func (r *eventReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return "title required"
	}
	if r.StartsAt.IsZero() || r.EndsAt.IsZero() {
		return "starts_at and ends_at required"
	}
	if !r.EndsAt.After(r.StartsAt) {
		return "ends_at must be after starts_at"
	}
	return ""
}

// CreateEvent adds an event to the catalog.
func (h *OrganizerHandler) CreateEvent(c echo.Context) error {
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e := &model.Event{Title: req.Title, Description: req.Description, StartsAt: req.StartsAt.UTC(), EndsAt: req.EndsAt.UTC()}
	if err := h.Events.Create(ctx, e); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create event failed"})
	}
	return c.JSON(http.StatusCreated, toEventResp(*e))
}

// UpdateEvent replaces an event's fields.
func (h *OrganizerHandler) UpdateEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	var req eventReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e := &model.Event{ID: id, Title: req.Title, Description: req.Description, StartsAt: req.StartsAt.UTC(), EndsAt: req.EndsAt.UTC()}
	if err := h.Events.Update(ctx, e); err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update event failed"})
	}
	return c.JSON(http.StatusOK, toEventResp(*e))
}

// DeleteEvent removes an event.  Events with active tickets on any
// occurrence cannot be deleted.
func (h *OrganizerHandler) DeleteEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Events.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event has active tickets"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete event failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
