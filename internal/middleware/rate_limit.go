package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopbots/admin-dashboard/internal/instrumentation"
	"github.com/shopbots/admin-dashboard/internal/ratelimit"
	"github.com/shopbots/admin-dashboard/pkg"

	log "github.com/sirupsen/logrus"
)

const tooManyRequestsMessage = "Too many requests from this IP, please try again later."

// RateLimit counts requests per client address and rejects everything above
// the limit within the window. The scope name keeps the buckets of different
// limiters apart, so the tighter login allowance and the global one never
// share a counter for the same address. Draft-standard RateLimit-* headers
// only, the legacy X-RateLimit-* family is not sent.
func RateLimit(
	limiter ratelimit.Limiter,
	scope string,
	limit int,
	window time.Duration,
	instr *instrumentation.Instrumentation,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientAddr, err := pkg.ReadUserIP(r)
			if err != nil {
				log.Warnf("rate limit, read client addr: %s", err)
				clientAddr = r.RemoteAddr
			}

			res, err := limiter.Allow(r.Context(), scope+"||"+clientAddr, limit, window)
			if err != nil {
				log.Errorf("rate limit, allow check: %s", err)
				http.Error(w, "rate limit internal error", http.StatusInternalServerError)
				return
			}

			w.Header().Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			w.Header().Set("RateLimit-Reset", strconv.Itoa(int(res.ResetAfter.Seconds())))

			if !res.Allowed {
				if instr != nil {
					instr.CounterRateLimitedRequests.Inc()
				}
				http.Error(w, tooManyRequestsMessage, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
