package ratelimit

import (
	"net/http"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/aloxstore/storefront/internal/common"
)

// New builds a Redis-backed limiter from a formatted rate such as "120-M".
func New(client *goredis.Client, formatted string) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: "ratelimit",
	})
	if err != nil {
		return nil, err
	}
	return limiter.New(store, rate), nil
}

// Middleware enforces a per-client-IP request rate. Limiter backend errors
// fail open; throttling must never take the store down with it.
type Middleware struct {
	Limiter *limiter.Limiter
	OnError func(error)
}

// Handler implements the chi middleware contract.
func (m Middleware) Handler(next http.Handler) http.Handler {
	if m.Limiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lctx, err := m.Limiter.Get(r.Context(), common.ClientIP(r))
		if err != nil {
			if m.OnError != nil {
				m.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
