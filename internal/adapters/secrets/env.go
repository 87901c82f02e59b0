package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
)

// envAdapter serves secrets from environment variables. Development
// backend; the path is the variable name.
type envAdapter struct{}

// NewEnvAdapter creates an environment-variable secret backend
func NewEnvAdapter() ports.SecretManager {
	return &envAdapter{}
}

func (a *envAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	value := os.Getenv(path)
	if value == "" {
		return nil, fmt.Errorf("environment variable %s is not set", path)
	}
	return &ports.Secret{
		Value:    value,
		Version:  "env",
		Metadata: map[string]string{"source": "environment"},
	}, nil
}

func (a *envAdapter) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	return "", fmt.Errorf("environment backend is read-only")
}
