package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopbots/admin-dashboard/internal/instrumentation"
	"github.com/shopbots/admin-dashboard/internal/ratelimit"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testRequestRateLimiter hands out a fixed number of allowed requests per key
type testRequestRateLimiter struct {
	// key to remaining allowance
	Limits map[string]int
}

func (l *testRequestRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error) {
	res := ratelimit.Result{
		Limit:      limit,
		ResetAfter: window,
	}
	if l.Limits[key] <= 0 {
		res.RetryAfter = window
		return res, nil
	}
	l.Limits[key]--
	res.Allowed = true
	res.Remaining = l.Limits[key]
	return res, nil
}

func TestRateLimitMiddleware(t *testing.T) {
	instr := instrumentation.NewTestInstrumentation()
	limiter := &testRequestRateLimiter{
		Limits: map[string]int{"global||203.0.113.7": 2},
	}

	handler := RateLimit(limiter, "global", 100, 15*time.Minute, instr)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	doRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	rr := doRequest()
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "100", rr.Header().Get("RateLimit-Limit"))
	assert.Equal(t, "1", rr.Header().Get("RateLimit-Remaining"))
	assert.NotEmpty(t, rr.Header().Get("RateLimit-Reset"))
	// draft-standard headers only
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))

	rr = doRequest()
	require.Equal(t, http.StatusOK, rr.Code)

	// allowance exhausted
	rr = doRequest()
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, tooManyRequestsMessage, strings.TrimSpace(rr.Body.String()))
	assert.Equal(t, "0", rr.Header().Get("RateLimit-Remaining"))
	assert.Equal(t, float64(1), testutil.ToFloat64(instr.CounterRateLimitedRequests))
}

func TestRateLimitMiddleware_ScopesDoNotShareBuckets(t *testing.T) {
	// one real limiter behind two middleware instances, the way the global
	// and the login limiters are wired
	limiter := ratelimit.NewMemoryLimiter()
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	globalHandler := RateLimit(limiter, "global", 100, 15*time.Minute, nil)(okHandler)
	loginHandler := RateLimit(limiter, "login", 2, 15*time.Minute, nil)(okHandler)

	// well past the login allowance, same client address
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "203.0.113.7:51234"
		rr := httptest.NewRecorder()
		globalHandler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// the login bucket is untouched
	req := httptest.NewRequest("POST", "/api/admin/login", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	rr := httptest.NewRecorder()
	loginHandler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("RateLimit-Remaining"))
}

func TestRateLimitMiddleware_KeyedByForwardedClient(t *testing.T) {
	limiter := &testRequestRateLimiter{
		Limits: map[string]int{"global||203.0.113.7": 1},
	}

	handler := RateLimit(limiter, "global", 100, 15*time.Minute, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	// the proxy hop address must not be used for counting
	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "10.0.0.1:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
}
