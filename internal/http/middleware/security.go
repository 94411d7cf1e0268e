package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/straye-as/proposal-api/internal/config"
)

// swaggerPrefix serves HTML and scripts, so the API's default-src 'none' policy is not applied there
const swaggerPrefix = "/swagger/"

// SecurityHeaders returns a middleware that adds security headers to responses.
// The header set is built once from cfg.
func SecurityHeaders(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	static := map[string]string{
		"X-Content-Type-Options": "nosniff",
	}
	if cfg.FrameOptions != "" {
		static["X-Frame-Options"] = cfg.FrameOptions
	}
	if cfg.ReferrerPolicy != "" {
		static["Referrer-Policy"] = cfg.ReferrerPolicy
	}
	if cfg.EnableHSTS {
		hsts := fmt.Sprintf("max-age=%d", cfg.HSTSMaxAge)
		if cfg.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
		static["Strict-Transport-Security"] = hsts
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for k, v := range static {
				h.Set(k, v)
			}
			if cfg.ContentSecurityPolicy != "" && !strings.HasPrefix(r.URL.Path, swaggerPrefix) {
				h.Set("Content-Security-Policy", cfg.ContentSecurityPolicy)
			}
			if hasAnyPrefix(r.URL.Path, cfg.NoStorePrefixes) {
				h.Set("Cache-Control", "no-store")
				h.Set("Pragma", "no-cache")
			}
			h.Del("X-Powered-By")
			h.Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
