package ports

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned when the named secret does not exist
var ErrSecretNotFound = errors.New("secret not found")

// Secret represents a retrieved secret with metadata
type Secret struct {
	Value   string
	Version string
}

// SecretSource resolves credentials such as the payment network API key.
//
// Name format depends on the backend:
//   - env:   environment variable name, e.g. "PI_API_KEY"
//   - local: file path relative to the secrets directory
//   - aws:   secret id or ARN, optionally "name#field" for JSON secrets
//   - vault: KV path below the mount, optionally "path#field"
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (*Secret, error)
}
