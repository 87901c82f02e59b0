package secrets

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/relaypay/gateway-bridge/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for the HashiCorp Vault backend.
// Only KV v2 and token or AppRole auth are supported.
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// AuthMethod is "token" or "approle"
	AuthMethod string
	Token      string
	RoleID     string
	SecretID   string

	// MountPath is the KV v2 mount (default "secret")
	MountPath string

	CacheTTL    time.Duration
	EnableCache bool
}

// DefaultVaultConfig returns default configuration
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:     address,
		AuthMethod:  "token",
		MountPath:   "secret",
		CacheTTL:    5 * time.Minute,
		EnableCache: true,
	}
}

type vaultAdapter struct {
	client *vault.Client
	config *VaultConfig
	logger *zap.Logger
	cache  *secretCache
}

// NewVaultAdapter creates a HashiCorp Vault backend
func NewVaultAdapter(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (ports.SecretManager, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if err := authenticate(client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault backend initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath))

	return &vaultAdapter{
		client: client,
		config: cfg,
		logger: logger,
		cache:  newSecretCache(cfg.EnableCache, cfg.CacheTTL),
	}, nil
}

func authenticate(client *vault.Client, cfg *VaultConfig) error {
	switch cfg.AuthMethod {
	case "token":
		if cfg.Token == "" {
			return fmt.Errorf("token is required for token auth")
		}
		client.SetToken(cfg.Token)
		return nil

	case "approle":
		if cfg.RoleID == "" || cfg.SecretID == "" {
			return fmt.Errorf("role_id and secret_id are required for AppRole auth")
		}
		resp, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

func (a *vaultAdapter) GetSecret(ctx context.Context, path string) (*ports.Secret, error) {
	if cached := a.cache.get(path); cached != nil {
		return cached, nil
	}

	kv := a.client.KVv2(a.config.MountPath)
	result, err := kv.Get(ctx, path)
	if err != nil {
		a.logger.Error("failed to retrieve secret", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to get secret %s: %w", path, err)
	}

	value, ok := result.Data["value"].(string)
	if !ok {
		return nil, fmt.Errorf("secret %s has no string field %q", path, "value")
	}

	secret := &ports.Secret{
		Value:    value,
		Version:  fmt.Sprintf("%d", result.VersionMetadata.Version),
		Metadata: map[string]string{"mount": a.config.MountPath},
	}

	a.cache.set(path, secret)
	return secret, nil
}

func (a *vaultAdapter) PutSecret(ctx context.Context, path string, value string, metadata map[string]string) (string, error) {
	data := map[string]interface{}{"value": value}
	for key, val := range metadata {
		data[key] = val
	}

	kv := a.client.KVv2(a.config.MountPath)
	result, err := kv.Put(ctx, path, data)
	if err != nil {
		a.logger.Error("failed to write secret", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("failed to put secret %s: %w", path, err)
	}

	a.cache.invalidate(path)
	return fmt.Sprintf("%d", result.VersionMetadata.Version), nil
}
