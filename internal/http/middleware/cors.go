package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/cors"
	"github.com/straye-as/proposal-api/internal/config"
	"go.uber.org/zap"
)

// Headers the editor sends on every pricing call: bearer or API-key auth and request correlation
var pricingRequestHeaders = []string{"Authorization", "Content-Type", "X-API-Key", "X-Request-ID"}

var pricingMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}

// CORS admits the proposal editor origins plus any extra allowed origins.
// Outside development a wildcard is ignored and an empty origin list denies all cross-origin calls.
func CORS(cfg *config.CORSConfig, environment string, logger *zap.Logger) func(http.Handler) http.Handler {
	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = pricingMethods
	}
	options := cors.Options{
		AllowedMethods:   methods,
		AllowedHeaders:   mergeHeaders(cfg.AllowedHeaders, pricingRequestHeaders...),
		ExposedHeaders:   mergeHeaders(cfg.ExposedHeaders, "X-Request-ID"),
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}

	origins := append(slices.Clone(cfg.EditorOrigins), cfg.AllowedOrigins...)
	wildcard := slices.Contains(origins, "*")
	origins = slices.DeleteFunc(origins, func(o string) bool { return o == "*" || o == "" })
	development := isDevelopment(environment)

	switch {
	case development && (wildcard || len(origins) == 0):
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return origin != "" }
		logger.Info("CORS allows all origins in development")
	case len(origins) == 0:
		// an empty AllowedOrigins list means "*" to go-chi/cors
		options.AllowOriginFunc = func(r *http.Request, origin string) bool { return false }
		logger.Warn("CORS has no allowed origins, cross-origin requests are denied",
			zap.String("environment", environment), zap.Bool("wildcard_ignored", wildcard))
	default:
		options.AllowedOrigins = origins
		if wildcard {
			logger.Warn("CORS wildcard origin ignored outside development", zap.String("environment", environment))
		}
		logger.Info("CORS configured", zap.Strings("origins", origins))
	}

	return cors.Handler(options)
}

func isDevelopment(environment string) bool {
	return environment == "development" || environment == "local" || environment == ""
}

// mergeHeaders appends required headers missing from configured, ignoring case
func mergeHeaders(configured []string, required ...string) []string {
	merged := slices.Clone(configured)
	for _, header := range required {
		if !slices.ContainsFunc(merged, func(h string) bool { return strings.EqualFold(h, header) }) {
			merged = append(merged, header)
		}
	}
	return merged
}
