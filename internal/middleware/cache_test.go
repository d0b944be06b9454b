package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inmoservicios/backend/internal/config"
)

// Same degradation contract as the limiter: no Redis means no caching, never
// an error.
func TestRedisCachePassThrough(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.CacheConfig
		rdb  *redis.Client
	}{
		{name: "nil redis", cfg: config.CacheConfig{Enabled: true}, rdb: nil},
		{name: "disabled", cfg: config.CacheConfig{Enabled: false},
			rdb: redis.NewClient(&redis.Options{Addr: "localhost:0"})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			called := false
			h := NewRedisCache(tc.cfg, tc.rdb)(func(c echo.Context) error {
				called = true
				return c.String(http.StatusOK, "ok")
			})
			require.NoError(t, h(c))

			assert.True(t, called)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Empty(t, rec.Header().Get("X-Cache"))
		})
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	body := []byte(`{"providers":[]}`)

	bs, err := encodePayload(http.StatusOK, hdr, body)
	require.NoError(t, err)

	status, gotHdr, gotBody, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, body, gotBody)
}

func TestDecodePayloadRejectsShortInput(t *testing.T) {
	_, _, _, ok := decodePayload([]byte{0, 0, 1})
	assert.False(t, ok)
}

func TestCacheKeyFrom(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()

	key := func(target string) string {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/api/providers")
		return cacheKeyFrom(cfg, c)
	}

	// Stable per route+query, distinct across queries.
	assert.Equal(t, key("/api/providers?category=plumbing"), key("/api/providers?category=plumbing"))
	assert.NotEqual(t, key("/api/providers?category=plumbing"), key("/api/providers?category=hvac"))
}
