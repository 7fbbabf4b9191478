package playapi

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterCacheSize = 16384
	limiterIdleTTL   = 10 * time.Minute
)

// clientLimiter keeps one token bucket per client IP. Idle buckets age out of the LRU.
type clientLimiter struct {
	rps   rate.Limit
	burst int
	cache *expirable.LRU[string, *rate.Limiter]
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	return &clientLimiter{
		rps:   rate.Limit(rps),
		burst: burst,
		cache: expirable.NewLRU[string, *rate.Limiter](limiterCacheSize, nil, limiterIdleTTL),
	}
}

// allow reports whether the client may proceed, and otherwise how long to wait.
func (l *clientLimiter) allow(ip net.IP, now time.Time) (bool, time.Duration) {
	if ip == nil {
		return true, 0
	}
	key := ip.String()

	lim, ok := l.cache.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.cache.Add(key, lim)
	}

	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Second
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

func (h *Handler) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		ip := clientIP(r, h.cfg.TrustProxy)
		if ok, retryAfter := h.limiter.allow(ip, time.Now()); !ok {
			h.log.Warn("play.rate_limited", "ip", ip.String(), "path", r.URL.Path)
			writeRateLimited(w, retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
}
