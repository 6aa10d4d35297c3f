package ports

import (
	"context"

	"github.com/hashicorp/vault/api"
)

// SecretsRepository reads and writes Vault's logical backend on behalf of the config loader.
type SecretsRepository interface {
	SetToken(token string)
	SetNamespace(namespace string)
	Read(ctx context.Context, path string) (*api.Secret, error)
	Write(ctx context.Context, path string, data map[string]any) (*api.Secret, error)
}
