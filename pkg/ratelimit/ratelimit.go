package ratelimit

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Config holds token-bucket limiter configuration.
type Config struct {
	// Rate is the number of requests allowed per second.
	Rate float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
	// CleanupInterval is how often stale client entries are removed.
	CleanupInterval time.Duration
	// MaxAge is how long a client entry is kept after its last request.
	MaxAge time.Duration
}

// DefaultReadConfig returns the default limits for read endpoints.
// Task listings are polled by dashboards, so the limits are generous.
func DefaultReadConfig() Config {
	return Config{
		Rate:            100,
		Burst:           200,
		CleanupInterval: time.Minute,
		MaxAge:          5 * time.Minute,
	}
}

// DefaultMutationConfig returns the default limits for status updates
// and overdue-reason submissions.
func DefaultMutationConfig() Config {
	return Config{
		Rate:            10,
		Burst:           20,
		CleanupInterval: time.Minute,
		MaxAge:          5 * time.Minute,
	}
}

// client holds the token bucket and last access time for one remote address.
type client struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// Limiter applies per-client-IP rate limiting with automatic cleanup.
type Limiter struct {
	mu      sync.RWMutex
	clients map[string]*client
	config  Config
	done    chan struct{}
}

// New creates a per-IP limiter and starts its cleanup goroutine.
func New(cfg Config) *Limiter {
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 5 * time.Minute
	}

	l := &Limiter{
		clients: make(map[string]*client),
		config:  cfg,
		done:    make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// Allow reports whether a request from the given address should proceed.
func (l *Limiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.clients[addr]
	if !ok {
		c = &client{
			bucket: rate.NewLimiter(rate.Limit(l.config.Rate), l.config.Burst),
		}
		l.clients[addr] = c
	}
	c.lastSeen = time.Now()

	return c.bucket.Allow()
}

// Middleware returns a Gin middleware applying per-IP rate limiting.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.admit(c) {
			return
		}
		c.Next()
	}
}

// PerMethod returns middleware that sends safe methods through the read
// limiter and every other method through the mutation limiter.
func PerMethod(read, mutation *Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		l := read
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			l = mutation
		}
		if !l.admit(c) {
			return
		}
		c.Next()
	}
}

func (l *Limiter) admit(c *gin.Context) bool {
	if l.Allow(c.ClientIP()) {
		return true
	}
	c.JSON(http.StatusTooManyRequests, gin.H{
		"error": "rate limit exceeded, retry later",
		"code":  "RATE_LIMITED",
	})
	c.Abort()
	return false
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	close(l.done)
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.dropStale()
		}
	}
}

func (l *Limiter) dropStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for addr, c := range l.clients {
		if now.Sub(c.lastSeen) > l.config.MaxAge {
			delete(l.clients, addr)
		}
	}
}

// Len returns the number of tracked client addresses.
func (l *Limiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.clients)
}

// Config returns a copy of the limiter configuration.
func (l *Limiter) Config() Config {
	return l.config
}
