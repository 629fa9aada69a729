package middleware

import (
	"net/http"
	"sync"
	"time"

	"colmena/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const purgeInterval = 5 * time.Minute

// ipLimiters keeps one token bucket per client IP.
type ipLimiters struct {
	mu        sync.Mutex
	entries   map[string]*ipEntry
	limit     rate.Limit
	burst     int
	lastPurge time.Time
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiters allows perMinute requests per IP, all of them in a burst.
func newIPLimiters(perMinute int) *ipLimiters {
	if perMinute < 1 {
		perMinute = 1
	}
	return &ipLimiters{
		entries:   make(map[string]*ipEntry),
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		lastPurge: time.Now(),
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPurge) > purgeInterval {
		l.purgeLocked(now)
	}
	e, ok := l.entries[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// purgeLocked drops IPs idle for longer than purgeInterval.
func (l *ipLimiters) purgeLocked(now time.Time) {
	purged := 0
	for ip, e := range l.entries {
		if now.Sub(e.lastSeen) > purgeInterval {
			delete(l.entries, ip)
			purged++
		}
	}
	l.lastPurge = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(l.entries)).Msg("rate limiter entries purged")
	}
}

// LoginRateLimiter limits login and register attempts to 20 per minute per IP.
func LoginRateLimiter() gin.HandlerFunc {
	l := newIPLimiters(20)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiados intentos de inicio de sesión. Intente en 1 minuto."))
			return
		}
		c.Next()
	}
}

// RateLimiter limits every client IP to perMinute requests per minute.
func RateLimiter(perMinute int) gin.HandlerFunc {
	l := newIPLimiters(perMinute)
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}
