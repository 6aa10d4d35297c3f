package repos

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
)

// VaultRepository exposes the subset of the Vault client the config loader needs.
type VaultRepository struct {
	client *api.Client
}

func NewVaultRepository(client *api.Client) *VaultRepository {
	return &VaultRepository{client: client}
}

// NewVaultClient builds a Vault API client for address.
func NewVaultClient(address string, tlsSkipVerify bool) (*api.Client, error) {
	cfg := api.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("failed to read vault environment: %w", cfg.Error)
	}

	cfg.Address = address
	// Retries are driven by the config loader.
	cfg.MaxRetries = 0

	if tlsSkipVerify {
		if err := cfg.ConfigureTLS(&api.TLSConfig{Insecure: true}); err != nil {
			return nil, fmt.Errorf("failed to configure vault TLS: %w", err)
		}
	}

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	return client, nil
}

func (r *VaultRepository) SetToken(token string) {
	r.client.SetToken(token)
}

func (r *VaultRepository) SetNamespace(namespace string) {
	r.client.SetNamespace(namespace)
}

func (r *VaultRepository) Read(ctx context.Context, path string) (*api.Secret, error) {
	secret, err := r.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret at %s: %w", path, err)
	}

	return secret, nil
}

func (r *VaultRepository) Write(ctx context.Context, path string, data map[string]any) (*api.Secret, error) {
	secret, err := r.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to write secret at %s: %w", path, err)
	}

	return secret, nil
}
