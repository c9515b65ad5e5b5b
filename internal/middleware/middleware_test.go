package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-facility-booking/internal/auth"
	"github.com/iliyamo/sports-facility-booking/internal/config"
)

func whoami(c echo.Context) error {
	cl, ok := Claims(c)
	if !ok {
		return c.String(http.StatusOK, "guest")
	}
	return c.JSON(http.StatusOK, cl)
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := echo.New()
	e.GET("/me", whoami, JWTAuth(auth.NewVerifier("k"), logger))

	tok, err := auth.Sign("k", 42, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	rec := serve(e, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sub":42}`, rec.Body.String())

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad, err := auth.Sign("other", 42, time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+bad)
	rec = serve(e, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestRequestLogAssignsAndKeepsIDs(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(RequestLog(logger))
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, RequestID(c)) })

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/ping", nil))
	minted := rec.Header().Get(echo.HeaderXRequestID)
	assert.Len(t, minted, 36)
	assert.Equal(t, minted, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	rec = serve(e, req)
	assert.Equal(t, "abc", rec.Header().Get(echo.HeaderXRequestID))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "abc", entry.Data["request_id"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
	assert.Equal(t, "guest", entry.Data["user"])
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	logger, _ := test.NewNullLogger()

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.GET("/x", whoami, NewTokenBucket(cfg, rdb, logger))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.1.1.1:5555"
		last = serve(e, req)
		codes = append(codes, last.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
	assert.True(t, mr.Exists("rl:ip:10.1.1.1"))

	// Another client has its own bucket.
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.2.2.2:5555"
	assert.Equal(t, http.StatusOK, serve(e, req).Code)
}

func TestTokenBucketFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	logger, hook := test.NewNullLogger()
	mr.Close()

	e := echo.New()
	e.GET("/x", whoami, NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1,
		RefillInterval: time.Second, TTL: time.Minute, Prefix: "rl"}, rdb, logger))

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "ratelimit")
}

func TestTokenBucketDisabledWithoutRedis(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := echo.New()
	e.GET("/x", whoami, NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, logger))
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
}
