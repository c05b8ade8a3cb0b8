package httpapi

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const rateLimitSweepThreshold = 1024

type rateWindow struct {
	start time.Time
	count int
}

// rateLimiter is a per-client fixed-window counter.
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*rateWindow
	now     func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

// take records one request for key. It returns whether the request is
// allowed, the remaining budget and when the window resets.
func (l *rateLimiter) take(key string) (bool, int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.clients) >= rateLimitSweepThreshold {
		for k, w := range l.clients {
			if now.Sub(w.start) >= l.window {
				delete(l.clients, k)
			}
		}
	}
	w, ok := l.clients[key]
	if !ok || now.Sub(w.start) >= l.window {
		w = &rateWindow{start: now}
		l.clients[key] = w
	}
	reset := w.start.Add(l.window)
	if w.count >= l.limit {
		return false, 0, reset
	}
	w.count++
	return true, l.limit - w.count, reset
}

func (l *rateLimiter) middleware(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, reset := l.take(c.ClientIP())
		resetSeconds := int(reset.Sub(l.now()).Round(time.Second) / time.Second)
		if resetSeconds < 0 {
			resetSeconds = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(l.limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			respondFail(c, http.StatusTooManyRequests, message, "")
			return
		}
		c.Next()
	}
}
