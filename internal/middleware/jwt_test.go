package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/eventix/ticketing/internal/utils"
)

const testSecret = "test-secret"

func doRequest(t *testing.T, mw []echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	require.NoError(t, h(c))
	return rec, c
}

func TestJWTAuth(t *testing.T) {
	t.Run("missing header", func(t *testing.T) {
		rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer not-a-jwt")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := utils.NewAccessToken("other-secret", 7, "ATTENDEE", 5)
		require.NoError(t, err)
		rec, _ := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+tok.Token)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token populates context", func(t *testing.T) {
		tok, err := utils.NewAccessToken(testSecret, 7, "ATTENDEE", 5)
		require.NoError(t, err)
		rec, c := doRequest(t, []echo.MiddlewareFunc{JWTAuth(testSecret)}, "Bearer "+tok.Token)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, uint64(7), c.Get(CtxUserID))
		require.Equal(t, "ATTENDEE", c.Get(CtxRole))
	})
}

func TestRequireRole(t *testing.T) {
	token := func(role string) string {
		tok, err := utils.NewAccessToken(testSecret, 7, role, 5)
		require.NoError(t, err)
		return "Bearer " + tok.Token
	}

	t.Run("allowed role passes", func(t *testing.T) {
		rec, _ := doRequest(t,
			[]echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole("ORGANIZER", "ADMIN")},
			token("ORGANIZER"))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other role is forbidden", func(t *testing.T) {
		rec, _ := doRequest(t,
			[]echo.MiddlewareFunc{JWTAuth(testSecret), RequireRole("ORGANIZER", "ADMIN")},
			token("ATTENDEE"))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing auth is forbidden", func(t *testing.T) {
		rec, _ := doRequest(t, []echo.MiddlewareFunc{RequireRole("ORGANIZER")}, "")
		require.Equal(t, http.StatusForbidden, rec.Code)
	})
}
