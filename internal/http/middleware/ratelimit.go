package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/httprate"
	"github.com/straye-as/proposal-api/internal/auth"
	"github.com/straye-as/proposal-api/internal/config"
	"github.com/straye-as/proposal-api/internal/domain"
	"go.uber.org/zap"
)

// RateLimiter throttles pricing API callers. Anonymous requests are keyed by
// client IP, authenticated ones by actor ID. The system actor is exempt.
type RateLimiter struct {
	cfg            *config.RateLimitConfig
	logger         *zap.Logger
	ipLimiter      func(http.Handler) http.Handler
	actorLimiter   func(http.Handler) http.Handler
	writeLimiter   func(http.Handler) http.Handler
	whitelistIPs   map[string]bool
	whitelistPaths []string
	trustedProxies []netip.Prefix
	systemCaller   func(*http.Request) bool
}

// NewRateLimiter creates a new rate limiter with the given configuration
func NewRateLimiter(cfg *config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	rl := &RateLimiter{
		cfg:            cfg,
		logger:         logger,
		whitelistIPs:   make(map[string]bool, len(cfg.WhitelistIPs)),
		whitelistPaths: cfg.WhitelistPaths,
	}
	for _, ip := range cfg.WhitelistIPs {
		rl.whitelistIPs[ip] = true
	}
	for _, entry := range cfg.TrustedProxies {
		prefix, err := parseProxy(entry)
		if err != nil {
			logger.Warn("ignoring invalid trusted proxy", zap.String("proxy", entry), zap.Error(err))
			continue
		}
		rl.trustedProxies = append(rl.trustedProxies, prefix)
	}

	rl.ipLimiter = rl.newLimiter(cfg.RequestsPerMinute, rl.keyByClientIP)
	rl.actorLimiter = rl.newLimiter(cfg.RequestsPerMinuteAuth, keyByActor)
	if cfg.WritesPerMinute > 0 {
		rl.writeLimiter = rl.newLimiter(cfg.WritesPerMinute, keyByActor)
	}

	logger.Info("Rate limiter initialized",
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("requests_per_minute_auth", cfg.RequestsPerMinuteAuth),
		zap.Int("writes_per_minute", cfg.WritesPerMinute),
		zap.Int("trusted_proxies", len(rl.trustedProxies)),
	)
	return rl
}

func (rl *RateLimiter) newLimiter(perMinute int, key httprate.KeyFunc) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(key),
		httprate.WithLimitHandler(rl.rateLimitExceededHandler),
	)
}

// Limit applies per-actor limits after authentication. Unauthenticated
// requests fall back to the IP limiter.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt(r) {
			next.ServeHTTP(w, r)
			return
		}

		actor := auth.ActorFromContext(r.Context())
		switch {
		case actor.ID == domain.SystemActorID:
			next.ServeHTTP(w, r)
		case actor.IsZero():
			rl.ipLimiter(next).ServeHTTP(w, r)
		case rl.writeLimiter != nil && isPricingWrite(r.Method):
			rl.actorLimiter(rl.writeLimiter(next)).ServeHTTP(w, r)
		default:
			rl.actorLimiter(next).ServeHTTP(w, r)
		}
	})
}

// ExemptSystemCallers lets requests matching fn, such as ones carrying the
// service API key, skip the IP limiter that runs before authentication.
func (rl *RateLimiter) ExemptSystemCallers(fn func(*http.Request) bool) {
	rl.systemCaller = fn
}

// LimitByIP returns IP-based rate limiting middleware for use before auth
func (rl *RateLimiter) LimitByIP(next http.Handler) http.Handler {
	if !rl.cfg.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.exempt(r) || (rl.systemCaller != nil && rl.systemCaller(r)) {
			next.ServeHTTP(w, r)
			return
		}
		rl.ipLimiter(next).ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) exempt(r *http.Request) bool {
	return rl.whitelistIPs[rl.clientIP(r)] || rl.isPathWhitelisted(r.URL.Path)
}

func (rl *RateLimiter) isPathWhitelisted(path string) bool {
	for _, wp := range rl.whitelistPaths {
		if wp == path {
			return true
		}
		if prefix, ok := strings.CutSuffix(wp, "/*"); ok && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// isPricingWrite reports whether the method changes stored prices
func isPricingWrite(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete
}

func keyByActor(r *http.Request) (string, error) {
	return "actor:" + auth.ActorFromContext(r.Context()).ID, nil
}

func (rl *RateLimiter) keyByClientIP(r *http.Request) (string, error) {
	return "ip:" + rl.clientIP(r), nil
}

// clientIP returns the peer address unless the peer is a trusted proxy. Behind
// one, the rightmost X-Forwarded-For hop that is not itself a trusted proxy
// wins, then X-Real-IP.
func (rl *RateLimiter) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !rl.isTrustedProxy(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !rl.isTrustedProxy(hop) {
				return hop
			}
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return peer
}

func (rl *RateLimiter) isTrustedProxy(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range rl.trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseProxy accepts a CIDR or a single address
func parseProxy(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		prefix, err := netip.ParsePrefix(entry)
		return prefix.Masked(), err
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	addr = addr.Unmap()
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func (rl *RateLimiter) rateLimitExceededHandler(w http.ResponseWriter, r *http.Request) {
	rl.logger.Warn("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
		zap.String("client_ip", rl.clientIP(r)),
		zap.String("actor_id", auth.ActorFromContext(r.Context()).ID),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", "60")
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   domain.ErrorTypeRateLimited,
		Title:  http.StatusText(http.StatusTooManyRequests),
		Status: http.StatusTooManyRequests,
		Detail: "Too many pricing requests. Please try again later.",
	})
}
