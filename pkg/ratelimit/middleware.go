package ratelimit

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
)

// EndpointLimit overrides the per-IP limit for one routed endpoint,
// keyed as "METHOD /path" (the path as routed, after any mount prefix).
type EndpointLimit struct {
	Capacity   int
	RefillRate float64
}

// Config controls which limiters run and how fast their buckets refill.
type Config struct {
	PerIPEnabled    bool
	PerIPCapacity   int
	PerIPRefillRate float64

	PerAccountEnabled    bool
	PerAccountCapacity   int
	PerAccountRefillRate float64

	EndpointLimits map[string]EndpointLimit

	BucketTTL time.Duration
}

// DefaultConfig rate-limits per IP at 100 requests a minute and per
// authenticated account at 200 a minute. Credential endpoints should
// be tightened further through EndpointLimits.
func DefaultConfig() *Config {
	return &Config{
		PerIPEnabled:    true,
		PerIPCapacity:   100,
		PerIPRefillRate: 100.0 / 60.0,

		PerAccountEnabled:    true,
		PerAccountCapacity:   200,
		PerAccountRefillRate: 200.0 / 60.0,

		EndpointLimits: make(map[string]EndpointLimit),

		BucketTTL: time.Hour,
	}
}

// CredentialEndpointLimit is a tight limit suited to sign-in, sign-up
// and password-reset endpoints: 10 attempts a minute per IP.
func CredentialEndpointLimit() EndpointLimit {
	return EndpointLimit{Capacity: 10, RefillRate: 10.0 / 60.0}
}

// Middleware applies the configured limits to incoming requests.
type Middleware struct {
	config           *Config
	ipLimiter        *Limiter
	accountLimiter   *Limiter
	endpointLimiters map[string]*Limiter
}

func NewMiddleware(config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}

	m := &Middleware{
		config:           config,
		endpointLimiters: make(map[string]*Limiter),
	}

	if config.PerIPEnabled {
		m.ipLimiter = NewLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL)
	}
	if config.PerAccountEnabled {
		m.accountLimiter = NewLimiter(config.PerAccountCapacity, config.PerAccountRefillRate, config.BucketTTL)
	}
	for endpoint, limit := range config.EndpointLimits {
		m.endpointLimiters[endpoint] = NewLimiter(limit.Capacity, limit.RefillRate, config.BucketTTL)
	}

	return m
}

// Handler wraps next with the per-IP and per-endpoint checks. It runs
// before token verification; the per-account check lives in AccountHandler.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		if m.ipLimiter != nil && ip != "" && !m.ipLimiter.Allow(ip) {
			m.limited(w, r, "ip")
			return
		}

		endpointKey := r.Method + " " + r.URL.Path
		if limiter, ok := m.endpointLimiters[endpointKey]; ok {
			if !limiter.Allow(ip + ":" + endpointKey) {
				m.limited(w, r, "endpoint")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// AccountHandler wraps next with the per-account check. It must be mounted
// after the token verifier; requests without verified claims pass through
// untouched.
func (m *Middleware) AccountHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := tokenSubject(r)
		if m.accountLimiter != nil && subject != "" && !m.accountLimiter.Allow(subject) {
			m.limited(w, r, "account")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) limited(w http.ResponseWriter, r *http.Request, limitType string) {
	slog.Warn("rate limit exceeded",
		"channel", "security",
		"limit", limitType,
		"ip", clientIP(r),
		"method", r.Method,
		"path", r.URL.Path,
	)

	w.Header().Set("Retry-After", "60")
	render.Status(r, http.StatusTooManyRequests)
	render.JSON(w, r, map[string]string{
		"code":    "rate_limited",
		"message": "too many requests, try again later",
	})
}

// clientIP prefers proxy-set headers over RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}

// tokenSubject returns the JWT subject when the request carries a
// verified token, empty otherwise.
func tokenSubject(r *http.Request) string {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil || claims == nil {
		return ""
	}
	if sub, ok := claims["sub"].(string); ok {
		return sub
	}
	return ""
}
