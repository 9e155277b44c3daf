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
	"github.com/eventix/ticketing/internal/service"
)

// PaymentHandler exposes payment initiation for attendees and the
// callback endpoint the gateway posts outcomes to.
type PaymentHandler struct {
	Payments *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: svc}
}

type startPaymentReq struct {
	Method string `json:"method"` // CC | PP | BT | OT
}

type paymentResp struct {
	ID            uint64          `json:"id"`
	TicketID      uint64          `json:"ticket_id"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        string          `json:"status"`
}

// StartPayment creates a PENDING payment for the caller's reserved
// ticket and hands back the transaction ID the gateway will echo in its
// callback.
func (h *PaymentHandler) StartPayment(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ticketID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid ticket id"})
	}
	var req startPaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if !model.ValidMethod(method) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "method must be one of CC, PP, BT, OT"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p, err := h.Payments.Start(ctx, uid, ticketID, method)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTicketNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ticket not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrTicketAlreadyResolved):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket already resolved"})
		case errors.Is(err, repository.ErrHoldExpired):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation hold expired"})
		case errors.Is(err, repository.ErrPaymentExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "payment already started"})
		case errors.Is(err, repository.ErrBusy):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "start payment failed"})
	}
	return c.JSON(http.StatusCreated, paymentResp{
		ID: p.ID, TicketID: p.TicketID, TransactionID: p.TransactionID,
		Amount: p.Amount, Method: p.Method, Status: p.Status,
	})
}

type callbackReq struct {
	TransactionID string `json:"transaction_id"`
	Outcome       string `json:"outcome"` // PAID | FAILED
}

// GatewayCallback records a payment outcome reported by the gateway.
//
// The endpoint is idempotent per (transaction, outcome): replays return
// 200 just like the first delivery, so the gateway can retry safely.  A
// contradictory outcome gets 409 and changes nothing, as does a paid
// callback that lost the race against hold expiry.
func (h *PaymentHandler) GatewayCallback(c echo.Context) error {
	var req callbackReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	outcome := strings.ToUpper(strings.TrimSpace(req.Outcome))
	if req.TransactionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction_id required"})
	}
	if outcome != model.PaymentPaid && outcome != model.PaymentFailed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be PAID or FAILED"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	err := h.Payments.RecordGatewayResult(ctx, req.TransactionID, outcome == model.PaymentPaid)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrPaymentNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "unknown transaction"})
		case errors.Is(err, repository.ErrPaymentConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "conflicting outcome already recorded"})
		case errors.Is(err, repository.ErrTicketAlreadyResolved):
			return c.JSON(http.StatusConflict, echo.Map{"error": "ticket no longer reserved"})
		case errors.Is(err, repository.ErrBusy):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy, retry"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "record outcome failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "recorded"})
}
