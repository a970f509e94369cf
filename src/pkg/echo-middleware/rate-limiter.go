package echomw

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP. Buckets are dropped a
// minute after they were created.
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*rate.Limiter
	rateLimit int // Number of requests per second
	burst     int // Burst size (how many requests are allowed instantly)
	ttl       time.Duration
}

func NewRateLimiter(rateLimit, burst int) *RateLimiter {
	return &RateLimiter{
		clients:   make(map[string]*rate.Limiter),
		rateLimit: rateLimit,
		burst:     burst,
		ttl:       time.Minute,
	}
}

// getLimiter returns the rate limiter for the given IP address.
func (l *RateLimiter) getLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.clients[ip]
	if !exists {
		// Create a new rate limiter for the client
		limiter = rate.NewLimiter(rate.Limit(l.rateLimit), l.burst)
		l.clients[ip] = limiter

		go func() {
			time.Sleep(l.ttl)
			l.mu.Lock()
			delete(l.clients, ip)
			l.mu.Unlock()
		}()
	}
	return limiter
}

// Middleware limits requests based on client IP address
func (l *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP() // Get the client's IP address
		limiter := l.getLimiter(ip)

		// Check if the request is allowed by the rate limiter
		if !limiter.Allow() {
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "too many requests",
			})
		}
		return next(c)
	}
}
