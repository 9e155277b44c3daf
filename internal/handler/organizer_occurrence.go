package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/repository"
)

type occurrenceReq struct {
	EventID   uint64 `json:"event_id"`
	VenueID   uint64 `json:"venue_id"`
	EventDate string `json:"event_date"` // YYYY-MM-DD
	Price     string `json:"price"`      // decimal string, e.g. "49.90"
}

// ScheduleOccurrence books an event into a venue on a date.  The same
// (event, venue, date) triple can exist only once.
func (h *OrganizerHandler) ScheduleOccurrence(c echo.Context) error {
	var req occurrenceReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.EventID == 0 || req.VenueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id and venue_id required"})
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.EventDate))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_date must be YYYY-MM-DD"})
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || price.IsNegative() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must be a non-negative decimal"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o := &model.EventVenue{EventID: req.EventID, VenueID: req.VenueID, EventDate: date, Price: price}
	if err := h.Occurrences.Create(ctx, o); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		case errors.Is(err, repository.ErrVenueNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		case errors.Is(err, repository.ErrDuplicateOccurrence):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event already scheduled at this venue on this date"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "schedule occurrence failed"})
	}
	return c.JSON(http.StatusCreated, toOccurrenceResp(*o))
}

// DeleteOccurrence removes an occurrence without active tickets.
func (h *OrganizerHandler) DeleteOccurrence(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurrence id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Occurrences.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrOccurrenceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "occurrence not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "occurrence has active tickets"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete occurrence failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
