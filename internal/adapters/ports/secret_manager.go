package ports

import "context"

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value    string            // The secret value (e.g., the callback signing key)
	Version  string            // Secret version identifier
	Metadata map[string]string // Additional secret metadata
}

// SecretManager defines the port for retrieving secrets from a secret
// management service. Backends: environment variables (development),
// AWS Secrets Manager, HashiCorp Vault.
//
// Path format depends on implementation:
//   - env:   the environment variable name, e.g. "SIGN_KEY"
//   - AWS:   "gateway-bridge/sign-key"
//   - Vault: KV v2 path under the mount, e.g. "gateway-bridge/sign-key"
type SecretManager interface {
	// GetSecret retrieves a secret by its path/name. Returns an error
	// if the secret does not exist, permissions are insufficient, or
	// the backend is unreachable.
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// PutSecret creates or updates a secret and returns the new
	// version identifier. Used by operational tooling, not by the
	// request path.
	PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (version string, err error)
}
