package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/proposal-api/internal/pricing"
	"github.com/straye-as/proposal-api/internal/secrets"
	"go.uber.org/zap"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Pricing   PricingConfig
	Auth      AuthConfig
	Secrets   SecretsConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Jobs      JobsConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// PricingConfig holds the rates the pricing engine applies.
// Rates are percentages kept as strings so they parse exactly into decimals.
type PricingConfig struct {
	ServiceVATRate   string
	FoodVATRate      string
	RateTableVersion string
}

// AuthConfig holds credentials accepted by the authentication middleware
type AuthConfig struct {
	// APIKey authenticates server-to-server callers as the system actor
	APIKey string
	// JWTSecret is the HS256 signing key for user tokens
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
}

// JobsConfig holds configuration for background jobs
type JobsConfig struct {
	// RecalculationEnabled turns the stale totals recalculation job on
	RecalculationEnabled bool
	// RecalculationCron is a six-field cron expression (seconds first)
	RecalculationCron string
	// RecalculationStaleAfter is how old (minutes) stored totals may get before recalculation
	RecalculationStaleAfter int
	// RecalculationTimeout bounds a single run (seconds)
	RecalculationTimeout int
	// RecalculationBatchSize caps the proposals handled per run
	RecalculationBatchSize int
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration.
// EditorOrigins are the proposal editor frontends; AllowedOrigins adds any other callers.
// "*" is honoured only in development.
type CORSConfig struct {
	EditorOrigins    []string
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// SecurityConfig holds the response headers of a JSON pricing API.
// Responses under NoStorePrefixes carry Cache-Control: no-store so prices and
// margins are never kept by shared caches.
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int // seconds
	HSTSIncludeSubdomains bool
	ContentSecurityPolicy string
	FrameOptions          string
	ReferrerPolicy        string
	NoStorePrefixes       []string
}

// RateLimitConfig holds rate limiting configuration.
// Anonymous callers are limited per IP and authenticated actors per actor ID.
// WritesPerMinute additionally caps each actor's recalculating calls (POST, PUT, DELETE).
// The system actor (API key callers) is never limited.
// X-Forwarded-For and X-Real-IP are only read when the peer is in TrustedProxies.
type RateLimitConfig struct {
	Enabled               bool
	RequestsPerMinute     int
	RequestsPerMinuteAuth int
	WritesPerMinute       int
	WhitelistIPs          []string
	WhitelistPaths        []string // exact paths, or prefixes ending in /*
	TrustedProxies        []string // IPs or CIDRs of reverse proxies in front of the API
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// StaleAfterDuration returns the recalculation staleness threshold as duration
func (j *JobsConfig) StaleAfterDuration() time.Duration {
	return time.Duration(j.RecalculationStaleAfter) * time.Minute
}

// TimeoutDuration returns the recalculation run timeout as duration
func (j *JobsConfig) TimeoutDuration() time.Duration {
	return time.Duration(j.RecalculationTimeout) * time.Second
}

// RateTable builds the pricing rate table from the configured VAT rates and the given tiers
func (p *PricingConfig) RateTable(tiers []pricing.Tier) (*pricing.RateTable, error) {
	serviceVAT, err := pricing.ParsePercentage(p.ServiceVATRate)
	if err != nil {
		return nil, fmt.Errorf("pricing.serviceVATRate: %w", err)
	}
	foodVAT, err := pricing.ParsePercentage(p.FoodVATRate)
	if err != nil {
		return nil, fmt.Errorf("pricing.foodVATRate: %w", err)
	}
	return pricing.NewRateTable(p.RateTableVersion, serviceVAT, foodVAT, tiers)
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from config file
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load auth settings from environment if not in config
	if cfg.Auth.APIKey == "" {
		cfg.Auth.APIKey = v.GetString("ADMIN_API_KEY")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}

	// Load Azure Key Vault name from environment if not in config
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	if _, err := cfg.Pricing.RateTable(nil); err != nil {
		return nil, fmt.Errorf("invalid pricing config: %w", err)
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves the pricing API's credentials.
// secrets.source selects the store; USE_AZURE_KEY_VAULT=true forces Key Vault.
// Vault mode fails when the API key or JWT signing secret cannot be resolved.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	source := secrets.SecretSource(cfg.Secrets.Source)
	if strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true" {
		source = secrets.SourceVault
	}

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       source,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider: %w", err)
	}

	creds, err := provider.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve secrets: %w", err)
	}
	applyCredentials(cfg, creds)

	// Database name and SSL mode vary per environment and are not stored in the vault
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	logger.Info("Secrets resolved",
		zap.String("source", string(provider.Source())),
		zap.String("environment", cfg.App.Environment),
	)
	return cfg, nil
}

// applyCredentials overrides config values with the resolved secrets that are set
func applyCredentials(cfg *Config, creds *secrets.Credentials) {
	overrides := []struct {
		dst   *string
		value string
	}{
		{&cfg.Database.Host, creds.DatabaseHost},
		{&cfg.Database.User, creds.DatabaseUser},
		{&cfg.Database.Password, creds.DatabasePassword},
		{&cfg.Auth.APIKey, creds.APIKey},
		{&cfg.Auth.JWTSecret, creds.JWTSecret},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.dst = o.value
		}
	}
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Proposal Pricing API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "proposals")
	v.SetDefault("database.user", "proposals_user")
	v.SetDefault("database.password", "proposals_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Pricing defaults: reduced rate for services, general rate for food
	v.SetDefault("pricing.serviceVATRate", "10")
	v.SetDefault("pricing.foodVATRate", "21")
	v.SetDefault("pricing.rateTableVersion", "2024-01")

	// Auth defaults
	v.SetDefault("auth.jwtIssuer", "proposal-api")

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300) // 5 minutes

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	// In development, you may want to override with specific origins
	v.SetDefault("cors.editorOrigins", []string{})
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300) // 5 minutes

	// Security header defaults - secure by default
	v.SetDefault("security.enableHSTS", false) // enable in production behind HTTPS
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'none'; frame-ancestors 'none'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.referrerPolicy", "no-referrer")
	v.SetDefault("security.noStorePrefixes", []string{"/api/"})

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)      // 60 requests per minute for unauthenticated
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 120) // 120 requests per minute for authenticated users
	v.SetDefault("rateLimit.writesPerMinute", 30)
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/metrics"})
	v.SetDefault("rateLimit.trustedProxies", []string{})

	// Job defaults
	v.SetDefault("jobs.recalculationEnabled", true)
	v.SetDefault("jobs.recalculationCron", "0 */15 * * * *") // every 15 minutes
	v.SetDefault("jobs.recalculationStaleAfter", 24*60)      // one day
	v.SetDefault("jobs.recalculationTimeout", 120)
	v.SetDefault("jobs.recalculationBatchSize", 100)
}
