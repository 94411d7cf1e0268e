package secrets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"go.uber.org/zap"
)

// VaultClient wraps Azure Key Vault client for secret retrieval
type VaultClient struct {
	client       *azsecrets.Client
	vaultName    string
	logger       *zap.Logger
	mu           sync.RWMutex
	cache        map[string]cachedSecret
	cacheTTL     time.Duration
	cacheEnabled bool
}

type cachedSecret struct {
	value     string
	expiresAt time.Time
}

// VaultConfig holds configuration for the vault client
type VaultConfig struct {
	VaultName    string
	CacheEnabled bool
	CacheTTL     time.Duration
}

// NewVaultClient creates a Key Vault client authenticated with DefaultAzureCredential
// (managed identity in Azure, environment or Azure CLI credentials locally)
func NewVaultClient(cfg *VaultConfig, logger *zap.Logger) (*VaultClient, error) {
	if cfg.VaultName == "" {
		return nil, fmt.Errorf("vault name is required")
	}

	logger.Info("Initializing Azure Key Vault client",
		zap.String("vault_name", cfg.VaultName),
		zap.Bool("cache_enabled", cfg.CacheEnabled),
	)

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		logger.Error("Failed to create Azure credential", zap.Error(err))
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	vaultURL := fmt.Sprintf("https://%s.vault.azure.net/", cfg.VaultName)

	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		logger.Error("Failed to create Key Vault client", zap.Error(err))
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}

	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	logger.Info("Azure Key Vault client initialized successfully",
		zap.String("vault_url", vaultURL),
	)

	return &VaultClient{
		client:       client,
		vaultName:    cfg.VaultName,
		logger:       logger,
		cache:        make(map[string]cachedSecret),
		cacheTTL:     cacheTTL,
		cacheEnabled: cfg.CacheEnabled,
	}, nil
}

// GetSecret retrieves a secret from Azure Key Vault. Disabled, expired or
// blank secrets are errors: a credential the API cannot use is not returned.
func (v *VaultClient) GetSecret(ctx context.Context, secretName string) (string, error) {
	if value, ok := v.cached(secretName); ok {
		v.logger.Debug("Secret retrieved from cache", zap.String("secret_name", secretName))
		return value, nil
	}

	resp, err := v.client.GetSecret(ctx, secretName, "", nil)
	if err != nil {
		v.logger.Error("Failed to get secret from Key Vault",
			zap.String("secret_name", secretName),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to get secret '%s': %w", secretName, err)
	}

	now := time.Now()
	value, expiresAt, err := usableSecret(secretName, resp.Secret, now, v.cacheTTL)
	if err != nil {
		return "", err
	}

	if v.cacheEnabled {
		v.mu.Lock()
		v.cache[secretName] = cachedSecret{value: value, expiresAt: expiresAt}
		v.mu.Unlock()
	}

	version := ""
	if resp.ID != nil {
		version = resp.ID.Version()
	}
	v.logger.Debug("Secret retrieved from Key Vault",
		zap.String("secret_name", secretName),
		zap.String("version", version),
	)
	return value, nil
}

// usableSecret extracts the value of s and how long it may be cached:
// ttl from now, cut short by the secret's own expiry.
func usableSecret(name string, s azsecrets.Secret, now time.Time, ttl time.Duration) (string, time.Time, error) {
	if attrs := s.Attributes; attrs != nil {
		if attrs.Enabled != nil && !*attrs.Enabled {
			return "", time.Time{}, fmt.Errorf("secret '%s' is disabled", name)
		}
		if attrs.Expires != nil && !attrs.Expires.After(now) {
			return "", time.Time{}, fmt.Errorf("secret '%s' expired at %s", name, attrs.Expires.Format(time.RFC3339))
		}
	}
	if s.Value == nil || strings.TrimSpace(*s.Value) == "" {
		return "", time.Time{}, fmt.Errorf("secret '%s' has no value", name)
	}

	expiresAt := now.Add(ttl)
	if s.Attributes != nil && s.Attributes.Expires != nil && s.Attributes.Expires.Before(expiresAt) {
		expiresAt = *s.Attributes.Expires
	}
	return *s.Value, expiresAt, nil
}

func (v *VaultClient) cached(secretName string) (string, bool) {
	if !v.cacheEnabled {
		return "", false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	entry, ok := v.cache[secretName]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}
