package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/book-market-service/internal/adapters/ports"
	"go.uber.org/zap"
)

// LocalFiles reads secrets from files below a base directory.
// Development only. Use AWS Secrets Manager or Vault in production.
type LocalFiles struct {
	basePath string
	logger   *zap.Logger
}

var _ ports.SecretSource = (*LocalFiles)(nil)

// NewLocalFiles creates a filesystem secret source
func NewLocalFiles(basePath string, logger *zap.Logger) *LocalFiles {
	return &LocalFiles{basePath: basePath, logger: logger}
}

// GetSecret reads basePath/name. Files may hold plain text or {"value": "..."}.
func (m *LocalFiles) GetSecret(ctx context.Context, name string) (*ports.Secret, error) {
	filePath := filepath.Join(m.basePath, filepath.Clean("/"+name))

	m.logger.Debug("Reading secret from filesystem", zap.String("name", name))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, name)
		}
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	var doc struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &doc); err == nil && doc.Value != "" {
		return &ports.Secret{Value: doc.Value, Version: "local"}, nil
	}

	return &ports.Secret{Value: strings.TrimSpace(string(data)), Version: "local"}, nil
}

// Env reads secrets from environment variables
type Env struct{}

var _ ports.SecretSource = Env{}

// GetSecret returns the value of the environment variable name
func (Env) GetSecret(ctx context.Context, name string) (*ports.Secret, error) {
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return nil, fmt.Errorf("%w: %s", ports.ErrSecretNotFound, name)
	}
	return &ports.Secret{Value: value, Version: "env"}, nil
}
