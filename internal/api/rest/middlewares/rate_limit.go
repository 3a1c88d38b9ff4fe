package middlewares

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/CameronXie/order-management/internal/api/rest/response"
	"github.com/CameronXie/order-management/internal/apperror"
	"github.com/CameronXie/order-management/internal/clock"
)

const rateLimitedMessage = "too many requests, please try again later"

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware allows each client IP up to max requests per window.
type RateLimitMiddleware struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	window    time.Duration
	lastSweep time.Time
	clock     clock.Clock
	logger    *slog.Logger
}

func (m *RateLimitMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		now := m.clock.Now()

		if !m.limiter(ip, now).AllowN(now, 1) {
			m.logger.WarnContext(r.Context(), "rate limit exceeded", "client_ip", ip)
			w.Header().Set("Retry-After", strconv.Itoa(m.retryAfter()))
			response.Failure(w, apperror.CodeRateLimited, rateLimitedMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// retryAfter is the number of whole seconds needed to earn back one request.
func (m *RateLimitMiddleware) retryAfter() int {
	interval := m.window / time.Duration(m.burst)
	return max(int((interval+time.Second-1)/time.Second), 1)
}

// limiter returns the limiter of ip. Entries idle for two windows are dropped.
func (m *RateLimitMiddleware) limiter(ip string, now time.Time) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) > m.window {
		for key, l := range m.limiters {
			if now.Sub(l.lastSeen) > 2*m.window {
				delete(m.limiters, key)
			}
		}
		m.lastSweep = now
	}

	if l, ok := m.limiters[ip]; ok {
		l.lastSeen = now
		return l.limiter
	}

	l := &ipLimiter{limiter: rate.NewLimiter(m.limit, m.burst), lastSeen: now}
	m.limiters[ip] = l
	return l.limiter
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// NewRateLimitMiddleware refills max tokens evenly over window.
func NewRateLimitMiddleware(window time.Duration, maxRequests int, c clock.Clock, logger *slog.Logger) *RateLimitMiddleware {
	maxRequests = max(maxRequests, 1)
	return &RateLimitMiddleware{
		limiters:  make(map[string]*ipLimiter),
		limit:     rate.Every(window / time.Duration(maxRequests)),
		burst:     maxRequests,
		window:    window,
		lastSweep: c.Now(),
		clock:     c,
		logger:    logger,
	}
}
