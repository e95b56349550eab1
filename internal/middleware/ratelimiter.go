package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/haguru/eduquest/internal/interfaces"
	"github.com/haguru/eduquest/internal/models/dto"
	"golang.org/x/time/rate"
)

const MsgTooManyRequests = "Too many requests. Please try again later."

// RateLimitMiddleware answers 429 once limiter runs out of tokens.
// A nil limiter disables limiting. When metrics is set, rejections increment counter.
func RateLimitMiddleware(limiter *rate.Limiter, metrics interfaces.Metrics, counter string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				if metrics != nil {
					metrics.IncCounter(counter)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				resp := dto.RateLimitResponse{Message: MsgTooManyRequests}
				_ = json.NewEncoder(w).Encode(resp)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// NewLimiter builds a limiter from a requests-per-second rate and burst.
// A non-positive rate returns nil, which RateLimitMiddleware treats as unlimited.
func NewLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
