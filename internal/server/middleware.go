package server

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/abhisek/rounds/internal/metrics"
)

const userKey = "rounds_user_id"

// requireUser takes the user id from "Authorization: Bearer <user id>".
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "unauthorized", "Missing authorization header")
			return
		}
		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || token == "" || strings.Contains(token, " ") {
			respondError(c, http.StatusUnauthorized, "unauthorized", "Invalid authorization format")
			return
		}
		if !strings.EqualFold(scheme, "bearer") {
			respondError(c, http.StatusUnauthorized, "unauthorized", "Invalid authorization scheme")
			return
		}
		c.Set(userKey, token)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(userKey)
}

// userLimiter hands out one token bucket per user.
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	limiterIdle  = 10 * time.Minute
	limiterSweep = 1024
)

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	return &userLimiter{limit: rate.Limit(perSecond), burst: burst, limiters: make(map[string]*limiterEntry)}
}

func (l *userLimiter) allow(user string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.limiters) >= limiterSweep {
		for k, e := range l.limiters {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(l.limiters, k)
			}
		}
	}

	e, ok := l.limiters[user]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[user] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// rateLimit must run after requireUser.
func rateLimit(l *userLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(userID(c), time.Now()) {
			respondError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Slow down and try again.")
			return
		}
		c.Next()
	}
}

// observe records request latency and logs each request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(route, c.Request.Method, strconv.Itoa(status), elapsed)
		s.log.Debug("http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"latency_ms", elapsed.Milliseconds(),
			"user_id", userID(c),
		)
	}
}

func maxBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
