package middleware

import (
	"strconv"
	"sync"
	"time"

	"dreamui/backend/pkg/errors"
	"dreamui/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiterOptions configures the rate limiter
type RateLimiterOptions struct {
	// Limit defines requests per second
	Limit rate.Limit
	// Burst defines maximum burst size allowed
	Burst int
	// ExpiryDuration defines how long to keep client state in memory
	ExpiryDuration time.Duration
	// KeyFunc extracts the limiting key from a request
	KeyFunc func(*gin.Context) string
	// Skip exempts requests from limiting, e.g. health probes
	Skip func(*gin.Context) bool
}

// DefaultRateLimiterOptions returns sensible defaults
func DefaultRateLimiterOptions() RateLimiterOptions {
	return RateLimiterOptions{
		Limit:          20,
		Burst:          40,
		ExpiryDuration: time.Hour,
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	}
}

// client represents a rate limiter client
type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client key with a token bucket each
type RateLimiter struct {
	mu      sync.Mutex
	options RateLimiterOptions
	clients map[string]*client
	logger  *logger.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop. Call Close to stop it.
func NewRateLimiter(log *logger.Logger, options ...RateLimiterOptions) *RateLimiter {
	opts := DefaultRateLimiterOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	if opts.KeyFunc == nil {
		opts.KeyFunc = DefaultRateLimiterOptions().KeyFunc
	}
	if opts.ExpiryDuration <= 0 {
		opts.ExpiryDuration = time.Hour
	}
	if log == nil {
		log = logger.GetGlobal()
	}

	r := &RateLimiter{
		options: opts,
		clients: make(map[string]*client),
		logger:  log,
		stop:    make(chan struct{}),
	}
	go r.cleanup()
	return r
}

// Middleware returns a Gin middleware for rate limiting
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	limit := strconv.Itoa(r.options.Burst)

	return func(c *gin.Context) {
		if r.options.Skip != nil && r.options.Skip(c) {
			c.Next()
			return
		}

		key := r.options.KeyFunc(c)
		if !r.getLimiter(key).Allow() {
			r.logger.Warn("Rate limit exceeded",
				"client", key,
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)

			c.Header("Retry-After", "1")
			c.Header("X-RateLimit-Limit", limit)
			_ = c.Error(errors.NewRateLimitError("Too many requests. Please try again later."))
			c.Abort()
			return
		}

		c.Next()
	}
}

// Close stops the cleanup loop
func (r *RateLimiter) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// getLimiter returns a rate limiter for the given key
func (r *RateLimiter) getLimiter(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, exists := r.clients[key]
	if !exists {
		limiter := rate.NewLimiter(r.options.Limit, r.options.Burst)
		r.clients[key] = &client{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup removes old entries from the clients map
func (r *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.mu.Lock()
			for k, v := range r.clients {
				if time.Since(v.lastSeen) > r.options.ExpiryDuration {
					delete(r.clients, k)
				}
			}
			r.mu.Unlock()
		case <-r.stop:
			return
		}
	}
}
