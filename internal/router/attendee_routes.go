package router

import (
	"github.com/labstack/echo/v4"

	"github.com/eventix/ticketing/internal/handler"
	"github.com/eventix/ticketing/internal/middleware"
	"github.com/eventix/ticketing/internal/model"
)

// RegisterAttendee registers the ticket purchase endpoints under /v1.
// All routes require a valid JWT and the ATTENDEE role; this is the only
// place that check happens.
func RegisterAttendee(e *echo.Echo, t *handler.TicketHandler, p *handler.PaymentHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAttendee),
	)
	g.POST("/tickets", t.Reserve)
	g.GET("/my-tickets", t.MyTickets)
	g.GET("/tickets/:id", t.GetTicket)
	g.DELETE("/tickets/:id", t.CancelTicket)
	g.POST("/tickets/:id/payment", p.StartPayment)
}
