package ports

import (
	"context"
	"errors"
)

var ErrSecretNotFound = errors.New("secret not found")

// SecretStore is the credential backend capability. Get returns an error
// wrapping ErrSecretNotFound for unknown keys.
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}

// Prober is implemented by backends that may be unavailable on a host.
type Prober interface {
	Probe(ctx context.Context) error
}
