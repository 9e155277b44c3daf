package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/eventix/ticketing/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}, "X-Foo": {"a", "b"}}
	body := []byte(`{"events":[]}`)

	payload, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(payload)
	require.True(t, ok)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, hdr, gotHdr)
	require.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsTruncated(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{1, 2, 3})
	require.False(t, ok)
}

func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		Enabled:      true,
		Methods:      map[string]bool{"GET": true},
		TTL:          time.Minute,
		KeyStrategy:  "route_query",
		Prefix:       "cache",
		MaxBodyBytes: 1 << 20,
	}
}

func TestRedisCacheHit(t *testing.T) {
	cfg := testCacheConfig()
	rdb, mock := redismock.NewClientMock()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/events")

	cached, err := encodePayload(http.StatusOK, http.Header{"Content-Type": {"application/json"}}, []byte(`{"events":[]}`))
	require.NoError(t, err)
	mock.ExpectGet(cacheKeyFrom(cfg, c)).SetVal(string(cached))

	handlerCalled := false
	mw := NewRedisCache(cfg, rdb)
	h := mw(func(c echo.Context) error {
		handlerCalled = true
		return c.String(http.StatusOK, "fresh")
	})

	require.NoError(t, h(c))
	require.False(t, handlerCalled, "hit must not reach the handler")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	require.Equal(t, `{"events":[]}`, rec.Body.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheSkipsNonCachedMethods(t *testing.T) {
	cfg := testCacheConfig()
	rdb, mock := redismock.NewClientMock()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/tickets", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/tickets")

	mw := NewRedisCache(cfg, rdb)
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })

	require.NoError(t, h(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheDisabled(t *testing.T) {
	cfg := testCacheConfig()
	cfg.Enabled = false

	mw := NewRedisCache(cfg, nil)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error { return c.String(http.StatusOK, "fresh") })
	require.NoError(t, h(c))
	require.Equal(t, "fresh", rec.Body.String())
	require.Empty(t, rec.Header().Get("X-Cache"))
}
