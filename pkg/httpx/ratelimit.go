package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/cradle/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: RequestsPerWindow refill over Window,
// with up to Burst available at once.
type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
	Burst             int
}

var (
	// StrictLimit guards credential-bearing endpoints: login, register and
	// biometric unlock.
	StrictLimit = RateLimitConfig{RequestsPerWindow: 5, Window: time.Minute, Burst: 5}

	// ModerateLimit is for everything else that touches the session.
	ModerateLimit = RateLimitConfig{RequestsPerWindow: 60, Window: time.Minute, Burst: 20}
)

// KeyExtractor picks the bucket a request is charged to. An empty key is
// never limited.
type KeyExtractor func(*http.Request) string

// IPKeyExtractor uses the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKeyExtractor uses the authenticated subject, if any.
func UserIDKeyExtractor(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

// CompositeKeyExtractor joins the non-empty keys of several extractors.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     rate.Limit
	burst    int
	idle     time.Duration

	lastSweep time.Time
}

func (rl *rateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.sweep(now)

	e, ok := rl.limiters[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := e.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// sweep drops buckets that have been idle long enough to be full again.
func (rl *rateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	rl.lastSweep = now
	for k, e := range rl.limiters {
		if now.Sub(e.lastSeen) >= rl.idle {
			delete(rl.limiters, k)
		}
	}
}

// RateLimitMiddleware rejects requests over config with 429 and a
// Retry-After header.
func RateLimitMiddleware(config RateLimitConfig, keyExtractor KeyExtractor) Middleware {
	rl := &rateLimiter{
		limiters:  make(map[string]*limiterEntry),
		rate:      rate.Limit(float64(config.RequestsPerWindow) / config.Window.Seconds()),
		burst:     config.Burst,
		idle:      max(config.Window, time.Minute),
		lastSweep: time.Now(),
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyExtractor(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := rl.allow(key, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(delay.Round(time.Second).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(config.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", config.Window.String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)

			WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limit_exceeded",
				"error_description": "Too many requests. Please try again later.",
			})
		})
	}
}

// RateLimitByIP limits by client address only.
func RateLimitByIP(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, IPKeyExtractor)
}

// RateLimitByUser limits by subject and address, falling back to address
// alone for anonymous requests.
func RateLimitByUser(config RateLimitConfig) Middleware {
	return RateLimitMiddleware(config, CompositeKeyExtractor(":", UserIDKeyExtractor, IPKeyExtractor))
}
