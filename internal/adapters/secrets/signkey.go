package secrets

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
	"github.com/relaypay/gateway-bridge/internal/services/relay"
)

// LoadSignKey fetches the callback signing key from the configured
// backend and decodes it. The stored value is either the raw 32-byte
// key or its standard base64 encoding.
func LoadSignKey(ctx context.Context, manager ports.SecretManager, name string) ([]byte, error) {
	secret, err := manager.GetSecret(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}
	return DecodeSignKey(secret.Value)
}

// DecodeSignKey normalizes a stored signing key value to key bytes
func DecodeSignKey(value string) ([]byte, error) {
	if len(value) == relay.SignKeySize {
		return []byte(value), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("signing key is neither %d raw bytes nor base64: %w", relay.SignKeySize, err)
	}
	if len(decoded) != relay.SignKeySize {
		return nil, fmt.Errorf("decoded signing key is %d bytes, want %d", len(decoded), relay.SignKeySize)
	}
	return decoded, nil
}
