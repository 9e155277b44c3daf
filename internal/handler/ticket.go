package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/eventix/ticketing/internal/repository"
	"github.com/eventix/ticketing/internal/service"
)

// TicketHandler exposes the attendee-facing reservation endpoints.
type TicketHandler struct {
	Reservations *service.ReservationService
	Tickets      *repository.TicketRepo
}

func NewTicketHandler(svc *service.ReservationService, repo *repository.TicketRepo) *TicketHandler {
	return &TicketHandler{Reservations: svc, Tickets: repo}
}

type reserveReq struct {
	EventVenueID uint64 `json:"event_venue_id"`
}

type ticketResp struct {
	ID            uint64          `json:"id"`
	EventVenueID  uint64          `json:"event_venue_id"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	HoldExpiresAt time.Time       `json:"hold_expires_at"`
}

// Reserve books one ticket for the caller on an occurrence.  Consistency
// conflicts come back as 409 with a reason; the winner of a concurrent
// race gets 201 and everyone else gets a conflict, never a partial write.
func (h *TicketHandler) Reserve(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil || req.EventVenueID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_venue_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	t, err := h.Reservations.Reserve(ctx, uid, req.EventVenueID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrOccurrenceNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "occurrence not found"})
		case errors.Is(err, repository.ErrEventClosed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "event closed"})
		case errors.Is(err, repository.ErrCapacityExceeded):
			return c.JSON(http.StatusConflict, echo.Map{"error": "sold out"})
		case errors.Is(err, repository.ErrAlreadyRegistered):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already registered for this event"})
		case errors.Is(err, repository.ErrBusy):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry"})
		case errors.Is(err, repository.ErrCapacityCorrupt):
			c.Logger().Errorf("reserve: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "capacity accounting error"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reserve failed"})
	}
	return c.JSON(http.StatusCreated, ticketResp{
		ID: t.ID, EventVenueID: t.EventVenueID, Price: t.Price,
		Status: t.Status, HoldExpiresAt: t.HoldExpiresAt,
	})
}

// MyTickets lists the caller's tickets, newest first.
func (h *TicketHandler) MyTickets(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tickets, err := h.Tickets.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list tickets failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": tickets})
}

// GetTicket returns one of the caller's tickets with event, venue and
// payment details.
func (h *TicketHandler) GetTicket(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Tickets.GetByIDForUser(ctx, id, uid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load ticket failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// CancelTicket releases one of the caller's RESERVED tickets.
func (h *TicketHandler) CancelTicket(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if err := h.Reservations.Cancel(ctx, uid, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrTicketAlreadyResolved):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already resolved"})
		case errors.Is(err, repository.ErrBusy):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
