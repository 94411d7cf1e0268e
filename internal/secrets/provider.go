package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SecretSource defines where secrets are loaded from
type SecretSource string

const (
	SourceEnvironment SecretSource = "environment"
	SourceVault       SecretSource = "vault"
	// SourceAuto picks the environment in development and the vault elsewhere
	SourceAuto SecretSource = "auto"
)

// store is a named secret lookup; *VaultClient is the production implementation
type store interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

type envStore struct{}

func (envStore) GetSecret(_ context.Context, name string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return "", fmt.Errorf("environment variable '%s' not set", name)
	}
	return value, nil
}

// Provider resolves the pricing API's credentials from the environment or Key Vault
type Provider struct {
	source SecretSource
	store  store
	logger *zap.Logger
}

// ProviderConfig holds configuration for the secrets provider
type ProviderConfig struct {
	Source       SecretSource
	VaultName    string
	Environment  string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Credentials are the values the pricing API reads from the secret store.
// Database fields are empty when neither the store nor the environment has them.
type Credentials struct {
	DatabaseHost     string
	DatabaseUser     string
	DatabasePassword string
	APIKey           string
	JWTSecret        string
}

// NewProvider creates a provider for the configured source
func NewProvider(cfg *ProviderConfig, logger *zap.Logger) (*Provider, error) {
	source := resolveSource(cfg.Source, cfg.Environment)

	if source != SourceVault {
		if source != SourceEnvironment {
			return nil, fmt.Errorf("unknown secret source: %s", source)
		}
		return newProvider(source, envStore{}, logger), nil
	}

	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name required when using vault secret source")
	}
	vaultClient, err := NewVaultClient(&VaultConfig{
		VaultName:    cfg.VaultName,
		CacheEnabled: cfg.CacheEnabled,
		CacheTTL:     cfg.CacheTTL,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return newProvider(source, vaultClient, logger), nil
}

func newProvider(source SecretSource, s store, logger *zap.Logger) *Provider {
	logger.Info("Secrets provider initialized", zap.String("source", string(source)))
	return &Provider{source: source, store: s, logger: logger}
}

func resolveSource(source SecretSource, environment string) SecretSource {
	if source != SourceAuto && source != "" {
		return source
	}
	switch environment {
	case "development", "local", "test", "":
		return SourceEnvironment
	default:
		return SourceVault
	}
}

// GetSecret retrieves a secret by name from the configured source
func (p *Provider) GetSecret(ctx context.Context, secretName string) (string, error) {
	return p.store.GetSecret(ctx, secretName)
}

// GetSecretOrEnv returns envName when it is set, otherwise secretName from the configured source
func (p *Provider) GetSecretOrEnv(ctx context.Context, secretName, envName string) (string, error) {
	if envValue := os.Getenv(envName); envValue != "" {
		p.logger.Debug("Using environment variable override", zap.String("env_name", envName))
		return envValue, nil
	}
	return p.GetSecret(ctx, secretName)
}

// Credentials resolves every pricing API secret. In vault mode a missing API key
// or JWT signing secret is an error, since the API cannot authenticate callers without them.
func (p *Provider) Credentials(ctx context.Context) (*Credentials, error) {
	var missing []string
	lookup := func(b binding) string {
		value, err := p.GetSecretOrEnv(ctx, b.secret, b.env)
		if err != nil {
			if b.required && p.IsVaultEnabled() {
				missing = append(missing, b.secret)
			}
			p.logger.Debug("Secret not resolved",
				zap.String("secret_name", b.secret),
				zap.String("env_name", b.env),
			)
			return ""
		}
		return value
	}

	creds := &Credentials{
		DatabaseHost:     lookup(databaseHostBinding),
		DatabaseUser:     lookup(databaseUserBinding),
		DatabasePassword: lookup(databasePasswordBinding),
		APIKey:           lookup(apiKeyBinding),
		JWTSecret:        lookup(jwtSecretBinding),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required secrets not found in %s: %s", p.source, strings.Join(missing, ", "))
	}
	return creds, nil
}

// Source returns the resolved secret source
func (p *Provider) Source() SecretSource {
	return p.source
}

// IsVaultEnabled returns true if secrets are loaded from vault
func (p *Provider) IsVaultEnabled() bool {
	return p.source == SourceVault
}
