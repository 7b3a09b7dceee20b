package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/book-market-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for the HashiCorp Vault source
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Authentication method: "token" or "approle"
	AuthMethod string

	Token string

	// AppRole credentials
	RoleID   string
	SecretID string

	// Vault Enterprise namespace
	Namespace string

	// KV secrets engine mount path (default: "secret")
	MountPath string

	// KV version: "v1" or "v2" (default: "v2")
	KVVersion string

	CacheTTL time.Duration
}

// DefaultVaultConfig returns default configuration for the Vault source
func DefaultVaultConfig(address string) *VaultConfig {
	return &VaultConfig{
		Address:    address,
		AuthMethod: "token",
		MountPath:  "secret",
		KVVersion:  "v2",
		CacheTTL:   5 * time.Minute,
	}
}

// logicalReader is the subset of the Vault logical client in use
type logicalReader interface {
	ReadWithContext(ctx context.Context, path string) (*vault.Secret, error)
}

// Vault reads secrets from a KV secrets engine
type Vault struct {
	logical logicalReader
	config  *VaultConfig
	logger  *zap.Logger
	cache   *secretCache
}

var _ ports.SecretSource = (*Vault)(nil)

// NewVault creates and authenticates a Vault client
func NewVault(ctx context.Context, cfg *VaultConfig, logger *zap.Logger) (*Vault, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	if err := authenticateVault(ctx, client, cfg); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	logger.Info("Vault secret source initialized",
		zap.String("address", cfg.Address),
		zap.String("auth_method", cfg.AuthMethod),
		zap.String("mount_path", cfg.MountPath),
		zap.String("kv_version", cfg.KVVersion),
	)

	return newVault(client.Logical(), cfg, logger), nil
}

func newVault(logical logicalReader, cfg *VaultConfig, logger *zap.Logger) *Vault {
	return &Vault{
		logical: logical,
		config:  cfg,
		logger:  logger,
		cache:   newSecretCache(cfg.CacheTTL),
	}
}

func authenticateVault(ctx context.Context, client *vault.Client, cfg *VaultConfig) error {
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
		resp, err := client.Logical().WriteWithContext(ctx, "auth/approle/login", map[string]interface{}{
			"role_id":   cfg.RoleID,
			"secret_id": cfg.SecretID,
		})
		if err != nil {
			return fmt.Errorf("AppRole login failed: %w", err)
		}
		if resp == nil || resp.Auth == nil {
			return fmt.Errorf("AppRole login returned no auth info")
		}
		client.SetToken(resp.Auth.ClientToken)
		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", cfg.AuthMethod)
	}
}

// GetSecret reads path below the mount. The "value" key is used unless
// "path#field" names another one.
func (v *Vault) GetSecret(ctx context.Context, name string) (*ports.Secret, error) {
	if cached := v.cache.get(name); cached != nil {
		v.logger.Debug("Secret retrieved from cache", zap.String("name", name))
		return cached, nil
	}

	path, field := splitField(name)
	if field == "" {
		field = "value"
	}

	fullPath := fmt.Sprintf("%s/%s", v.config.MountPath, path)
	if v.config.KVVersion == "v2" {
		fullPath = fmt.Sprintf("%s/data/%s", v.config.MountPath, path)
	}

	resp, err := v.logical.ReadWithContext(ctx, fullPath)
	if err != nil {
		v.logger.Error("Failed to retrieve secret from Vault",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, path)
	}

	data := resp.Data
	version := "1"
	if v.config.KVVersion == "v2" {
		inner, ok := resp.Data["data"].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("invalid secret format from Vault")
		}
		data = inner
		if metadata, ok := resp.Data["metadata"].(map[string]interface{}); ok {
			if n, ok := metadata["version"].(json.Number); ok {
				version = n.String()
			}
		}
	}

	value, ok := data[field].(string)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s has no field %q", ports.ErrSecretNotFound, path, field)
	}

	secret := &ports.Secret{Value: value, Version: version}
	v.cache.set(name, secret)
	return secret, nil
}
