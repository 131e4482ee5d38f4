// Package ratelimit implements the AIS HTTP boundary's per-IP rate limiter
// (C12): a sustained-rate/burst token bucket keyed by client IP, with
// forwarded-for extraction gated behind an explicit trust-proxy flag.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRatePerSecond is the sustained request rate (C12's "R") applied
// when Config.RatePerSecond is unset.
const DefaultRatePerSecond = 2.0

// DefaultBurst is the token-bucket burst capacity (C12's "B") applied when
// Config.Burst is unset.
const DefaultBurst = 100

// visitorTTL bounds how long an idle visitor's bucket is retained before
// being evicted, mirroring the teacher's per-visitor cleanup goroutine but
// on a shared ticker rather than one goroutine per visitor.
const visitorTTL = 5 * time.Minute

// Config configures a Limiter.
type Config struct {
	RatePerSecond float64
	Burst         int

	// TrustProxy, when true, honors X-Forwarded-For/X-Real-IP in preference
	// to RemoteAddr. Per §4.9 this must only be set true when the deployment
	// actually sits behind a trusted reverse proxy — left false, a spoofed
	// forwarded-for header cannot be used to evade the limiter.
	TrustProxy bool
}

func (c Config) ratePerSecond() float64 {
	if c.RatePerSecond > 0 {
		return c.RatePerSecond
	}
	return DefaultRatePerSecond
}

func (c Config) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return DefaultBurst
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a per-IP token-bucket rate limiter, safe for concurrent use.
type Limiter struct {
	cfg Config

	mu       sync.Mutex
	visitors map[string]*visitor
	nowFn    func() time.Time
}

// New constructs a Limiter and starts its background eviction loop, which
// runs for the life of the process; there is no way to stop it.
func New(cfg Config) *Limiter {
	l := &Limiter{cfg: cfg, visitors: make(map[string]*visitor), nowFn: time.Now}
	go l.evictLoop()
	return l
}

func (l *Limiter) now() time.Time {
	if l.nowFn != nil {
		return l.nowFn()
	}
	return time.Now()
}

func (l *Limiter) evictLoop() {
	ticker := time.NewTicker(visitorTTL)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := l.now().Add(-visitorTTL)
		l.mu.Lock()
		for key, v := range l.visitors {
			if v.lastSeen.Before(cutoff) {
				delete(l.visitors, key)
			}
		}
		l.mu.Unlock()
	}
}

// Allow reports whether a request from ip may proceed.
func (l *Limiter) Allow(ip string) bool {
	return l.limiterFor(ip).AllowN(l.now(), 1)
}

func (l *Limiter) limiterFor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.visitors[ip]; ok {
		v.lastSeen = l.now()
		return v.limiter
	}
	lim := rate.NewLimiter(rate.Limit(l.cfg.ratePerSecond()), l.cfg.burst())
	l.visitors[ip] = &visitor{limiter: lim, lastSeen: l.now()}
	return lim
}

// Middleware wraps next, rejecting requests over budget with a bare 429
// (no payload), per §4.9's "advisory, no bandwidth beyond header reads".
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ip := l.clientIP(req)
		if !l.Allow(ip) {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// clientIP extracts the request's client IP, honoring forwarded-for headers
// only when Config.TrustProxy is set.
func (l *Limiter) clientIP(req *http.Request) string {
	if l.cfg.TrustProxy {
		if ip := strings.TrimSpace(req.Header.Get("X-Real-IP")); ip != "" {
			if parsed := net.ParseIP(ip); parsed != nil {
				return parsed.String()
			}
		}
		if fwd := req.Header.Get("X-Forwarded-For"); fwd != "" {
			first := fwd
			if comma := strings.IndexByte(fwd, ','); comma >= 0 {
				first = fwd[:comma]
			}
			if parsed := net.ParseIP(strings.TrimSpace(first)); parsed != nil {
				return parsed.String()
			}
		}
	}

	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
