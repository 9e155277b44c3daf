package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/eventix/ticketing/internal/model"
	"github.com/eventix/ticketing/internal/repository"
)

// PublicHandler serves the unauthenticated catalog: events, venues,
// occurrences and live availability.
type PublicHandler struct {
	Events      *repository.EventRepo
	Venues      *repository.VenueRepo
	Occurrences *repository.OccurrenceRepo
}

func NewPublicHandler(e *repository.EventRepo, v *repository.VenueRepo, o *repository.OccurrenceRepo) *PublicHandler {
	return &PublicHandler{Events: e, Venues: v, Occurrences: o}
}

type eventResp struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
}

type venueResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Capacity uint32 `json:"capacity"`
}

type occurrenceResp struct {
	ID        uint64          `json:"id"`
	EventID   uint64          `json:"event_id"`
	VenueID   uint64          `json:"venue_id"`
	EventDate string          `json:"event_date"`
	Price     decimal.Decimal `json:"price"`
}

func toEventResp(e model.Event) eventResp {
	return eventResp{ID: e.ID, Title: e.Title, Description: e.Description, StartsAt: e.StartsAt, EndsAt: e.EndsAt}
}

func toOccurrenceResp(o model.EventVenue) occurrenceResp {
	return occurrenceResp{ID: o.ID, EventID: o.EventID, VenueID: o.VenueID, EventDate: o.EventDate.Format("2006-01-02"), Price: o.Price}
}

// ListEvents returns the catalog, optionally filtered by a title
// substring (?title=) and restricted to upcoming events (?upcoming=true).
func (h *PublicHandler) ListEvents(c echo.Context) error {
	title := strings.TrimSpace(c.QueryParam("title"))
	upcoming := strings.EqualFold(c.QueryParam("upcoming"), "true")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	events, err := h.Events.List(ctx, title, upcoming)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list events failed"})
	}
	out := make([]eventResp, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResp(e))
	}
	return c.JSON(http.StatusOK, echo.Map{"events": out})
}

// GetEvent returns one event with its scheduled occurrences.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	e, err := h.Events.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrEventNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load event failed"})
	}
	occs, err := h.Occurrences.ListByEvent(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load occurrences failed"})
	}
	outOccs := make([]occurrenceResp, 0, len(occs))
	for _, o := range occs {
		outOccs = append(outOccs, toOccurrenceResp(o))
	}
	return c.JSON(http.StatusOK, echo.Map{"event": toEventResp(*e), "occurrences": outOccs})
}

// ListVenues returns all venues.
func (h *PublicHandler) ListVenues(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	venues, err := h.Venues.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list venues failed"})
	}
	out := make([]venueResp, 0, len(venues))
	for _, v := range venues {
		out = append(out, venueResp{ID: v.ID, Name: v.Name, Address: v.Address, Capacity: v.Capacity})
	}
	return c.JSON(http.StatusOK, echo.Map{"venues": out})
}

// GetAvailability returns the live seat count for one occurrence.  The
// numbers are a consistent snapshot but can be stale by the time the
// client acts on them; only the reservation transaction is authoritative.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid occurrence id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	av, err := h.Occurrences.GetAvailability(ctx, id)
	if err != nil {
		switch err {
		case repository.ErrOccurrenceNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "occurrence not found"})
		case repository.ErrCapacityCorrupt:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capacity accounting error"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load availability failed"})
	}
	return c.JSON(http.StatusOK, av)
}
