package secrets

// Key Vault secret names for the pricing API and the environment variables that override them
const (
	DatabaseHostSecret     = "PRICING-DB-HOST"
	DatabaseUserSecret     = "PRICING-DB-USER"
	DatabasePasswordSecret = "PRICING-DB-PASSWORD"
	APIKeySecret           = "pricing-api-key"
	JWTSecretSecret        = "pricing-jwt-signing-secret"

	DatabaseHostEnv     = "DATABASE_HOST"
	DatabaseUserEnv     = "DATABASE_USER"
	DatabasePasswordEnv = "DATABASE_PASSWORD"
	APIKeyEnv           = "ADMIN_API_KEY"
	JWTSecretEnv        = "JWT_SECRET"
)

// binding pairs a Key Vault secret with its environment override.
// Required bindings must resolve in vault mode.
type binding struct {
	secret   string
	env      string
	required bool
}

var (
	databaseHostBinding     = binding{secret: DatabaseHostSecret, env: DatabaseHostEnv}
	databaseUserBinding     = binding{secret: DatabaseUserSecret, env: DatabaseUserEnv}
	databasePasswordBinding = binding{secret: DatabasePasswordSecret, env: DatabasePasswordEnv}
	apiKeyBinding           = binding{secret: APIKeySecret, env: APIKeyEnv, required: true}
	jwtSecretBinding        = binding{secret: JWTSecretSecret, env: JWTSecretEnv, required: true}
)
