package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// Callback validation happens before the service is touched, so a nil
// service is fine here.
func callbackCtx(t *testing.T, body string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/callback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestGatewayCallbackValidation(t *testing.T) {
	h := NewPaymentHandler(nil)

	t.Run("malformed body", func(t *testing.T) {
		rec, c := callbackCtx(t, "{not json")
		require.NoError(t, h.GatewayCallback(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing transaction id", func(t *testing.T) {
		rec, c := callbackCtx(t, `{"outcome":"PAID"}`)
		require.NoError(t, h.GatewayCallback(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown outcome", func(t *testing.T) {
		rec, c := callbackCtx(t, `{"transaction_id":"abc","outcome":"MAYBE"}`)
		require.NoError(t, h.GatewayCallback(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestStartPaymentValidation(t *testing.T) {
	h := NewPaymentHandler(nil)
	e := echo.New()

	newCtx := func(body string) (*httptest.ResponseRecorder, echo.Context) {
		req := httptest.NewRequest(http.MethodPost, "/v1/tickets/1/payment", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		c.Set("user_id", uint64(7))
		return rec, c
	}

	t.Run("invalid method", func(t *testing.T) {
		rec, c := newCtx(`{"method":"CASH"}`)
		require.NoError(t, h.StartPayment(c))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/tickets/1/payment", strings.NewReader(`{"method":"CC"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("id")
		c.SetParamValues("1")
		require.NoError(t, h.StartPayment(c))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
