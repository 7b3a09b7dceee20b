package main

import (
	"context"
	"fmt"

	"github.com/kevin07696/book-market-service/internal/adapters/ports"
	"github.com/kevin07696/book-market-service/internal/adapters/secrets"
	"github.com/kevin07696/book-market-service/internal/config"
	"go.uber.org/zap"
)

// initSecretSource builds the secret backend selected by SECRET_MANAGER:
//   - env (default): environment variables
//   - local: files under SECRETS_PATH (development only)
//   - aws: AWS Secrets Manager, credentials from the default chain
//   - vault: HashiCorp Vault KV engine
func initSecretSource(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretSource, error) {
	switch cfg.Backend {
	case "env":
		return secrets.Env{}, nil

	case "local":
		logger.Warn("Using local file secrets - NOT for production use",
			zap.String("path", cfg.LocalPath),
		)
		return secrets.NewLocalFiles(cfg.LocalPath, logger), nil

	case "aws":
		awsCfg := secrets.DefaultAWSSecretsManagerConfig(cfg.AWSRegion)
		awsCfg.Profile = cfg.AWSProfile
		awsCfg.Endpoint = cfg.AWSEndpoint
		return secrets.NewAWSSecretsManager(ctx, awsCfg, logger)

	case "vault":
		vaultCfg := secrets.DefaultVaultConfig(cfg.VaultAddress)
		vaultCfg.AuthMethod = cfg.VaultAuthMethod
		vaultCfg.Token = cfg.VaultToken
		vaultCfg.RoleID = cfg.VaultRoleID
		vaultCfg.SecretID = cfg.VaultSecretID
		vaultCfg.MountPath = cfg.VaultMountPath
		return secrets.NewVault(ctx, vaultCfg, logger)

	default:
		return nil, fmt.Errorf("unsupported secret manager %q", cfg.Backend)
	}
}

// resolveAPIKey returns the inline key, or reads it from the secret source
func resolveAPIKey(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	if cfg.Gateway.APIKey != "" {
		return cfg.Gateway.APIKey, nil
	}

	source, err := initSecretSource(ctx, cfg.Secrets, logger)
	if err != nil {
		return "", fmt.Errorf("init secret source: %w", err)
	}

	secret, err := source.GetSecret(ctx, cfg.Gateway.APIKeyName)
	if err != nil {
		return "", fmt.Errorf("read payment network API key: %w", err)
	}

	logger.Info("Payment network API key loaded from secret source",
		zap.String("backend", cfg.Secrets.Backend),
		zap.String("version", secret.Version),
	)
	return secret.Value, nil
}
