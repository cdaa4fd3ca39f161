package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/top-movies/internal/config"
	"github.com/iliyamo/top-movies/internal/utils"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestCacheKeyChangesWithGeneration(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "movies:resp", KeyStrategy: "route_query"}
	c, _ := newContext(http.MethodGet, "/v1/movies?page=1")
	c.SetPath("/v1/movies")

	k0 := cacheKeyFrom(cfg, c, 0)
	k1 := cacheKeyFrom(cfg, c, 1)

	assert.NotEqual(t, k0, k1)
	assert.Contains(t, k0, "movies:resp:0:")
	assert.Equal(t, k0, cacheKeyFrom(cfg, c, 0))
}

func TestCacheKeyStrategies(t *testing.T) {
	c1, _ := newContext(http.MethodGet, "/v1/movies?a=1")
	c1.SetPath("/v1/movies")
	c2, _ := newContext(http.MethodGet, "/v1/movies?a=2")
	c2.SetPath("/v1/movies")

	byRoute := config.CacheConfig{Prefix: "p", KeyStrategy: "route"}
	assert.Equal(t, cacheKeyFrom(byRoute, c1, 0), cacheKeyFrom(byRoute, c2, 0))

	byQuery := config.CacheConfig{Prefix: "p", KeyStrategy: "route_query"}
	assert.NotEqual(t, cacheKeyFrom(byQuery, c1, 0), cacheKeyFrom(byQuery, c2, 0))
}

func TestPayloadEncoding(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"items":[]}`, string(body))

	_, _, _, ok = decodePayload(bs[:6])
	assert.False(t, ok)
	_, _, _, ok = decodePayload(bs[:10])
	assert.False(t, ok)
}

func TestCaptureWriterLimit(t *testing.T) {
	cw := &captureWriter{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.overflowed())
	_, _ = cw.Write([]byte("de"))
	assert.True(t, cw.overflowed())
	assert.Equal(t, "abc", cw.buf.String())
}

func TestResponseCacheDisabledPassesThrough(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil, nil)
	require.NoError(t, rc.Invalidate(context.Background()))

	c, rec := newContext(http.MethodGet, "/v1/movies")
	h := rc.Middleware()(func(c echo.Context) error { return c.String(http.StatusOK, "fresh") })
	require.NoError(t, h(c))
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))

	var nilCache *ResponseCache
	assert.NoError(t, nilCache.Invalidate(context.Background()))
}

func TestParseBucketResult(t *testing.T) {
	res, ok := parseBucketResult([]interface{}{int64(1), int64(9), int64(0)})
	require.True(t, ok)
	assert.True(t, res.allowed)
	assert.EqualValues(t, 9, res.remaining)

	res, ok = parseBucketResult([]interface{}{int64(0), int64(0), int64(1500)})
	require.True(t, ok)
	assert.False(t, res.allowed)
	assert.Equal(t, 2, retryAfterSeconds(res.retryMs))

	_, ok = parseBucketResult("nope")
	assert.False(t, ok)
	assert.Equal(t, 0, retryAfterSeconds(-10))
}

func TestBuildRateKey(t *testing.T) {
	c, _ := newContext(http.MethodPost, "/add")
	c.SetPath("/add")
	c.Request().RemoteAddr = "10.0.0.7:5555"

	cfg := config.RateLimitConfig{Prefix: "movies:rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "movies:rl:ip:10.0.0.7:route:POST /add", buildRateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "movies:rl:user:anon", buildRateKey(cfg, c))
	c.Set(ContextSubject, "admin")
	assert.Equal(t, "movies:rl:user:admin", buildRateKey(cfg, c))
}

func TestRateKeyUsesPeerAddress(t *testing.T) {
	e := echo.New()
	e.IPExtractor = echo.ExtractIPDirect()
	keyFor := func(forwarded string) string {
		req := httptest.NewRequest(http.MethodPost, "/add", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		req.Header.Set(echo.HeaderXForwardedFor, forwarded)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/add")
		return buildRateKey(config.RateLimitConfig{Prefix: "movies:rl", KeyStrategy: "ip_route"}, c)
	}

	assert.Equal(t, "movies:rl:ip:10.0.0.7:route:POST /add", keyFor("1.1.1.1"))
	assert.Equal(t, keyFor("1.1.1.1"), keyFor("2.2.2.2"))
}

func TestLookupBucketSharedAcrossRoutes(t *testing.T) {
	cfg := config.RateLimitConfig{Prefix: "movies:rl", KeyStrategy: "ip_route", Capacity: 60, LookupCapacity: 10}.Lookup()

	add, _ := newContext(http.MethodPost, "/add")
	add.SetPath("/add")
	add.Request().RemoteAddr = "10.0.0.7:5555"
	search, _ := newContext(http.MethodGet, "/v1/search")
	search.SetPath("/v1/search")
	search.Request().RemoteAddr = "10.0.0.7:5555"

	assert.Equal(t, "movies:rl:lookup:ip:10.0.0.7", buildRateKey(cfg, add))
	assert.Equal(t, buildRateKey(cfg, add), buildRateKey(cfg, search))
}

func TestJWTAuthAndRole(t *testing.T) {
	protected := JWTAuth("secret")(RequireRole(RoleOwner)(func(c echo.Context) error {
		return c.String(http.StatusOK, subject(c))
	}))

	c, rec := newContext(http.MethodDelete, "/v1/movies/1")
	require.NoError(t, protected(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newContext(http.MethodDelete, "/v1/movies/1")
	c.Request().Header.Set("Authorization", "Bearer not.a.token")
	require.NoError(t, protected(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	wrong, err := utils.NewAccessToken("other", "admin", RoleOwner, 5)
	require.NoError(t, err)
	c, rec = newContext(http.MethodDelete, "/v1/movies/1")
	c.Request().Header.Set("Authorization", "Bearer "+wrong.Token)
	require.NoError(t, protected(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	guest, err := utils.NewAccessToken("secret", "bob", "guest", 5)
	require.NoError(t, err)
	c, rec = newContext(http.MethodDelete, "/v1/movies/1")
	c.Request().Header.Set("Authorization", "Bearer "+guest.Token)
	require.NoError(t, protected(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	owner, err := utils.NewAccessToken("secret", "admin", RoleOwner, 5)
	require.NoError(t, err)
	c, rec = newContext(http.MethodDelete, "/v1/movies/1")
	c.Request().Header.Set("Authorization", "Bearer "+owner.Token)
	require.NoError(t, protected(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}
