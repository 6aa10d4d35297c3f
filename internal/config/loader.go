package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/architeacher/devicely/internal/ports"
	"github.com/architeacher/devicely/pkg/logger"
	"github.com/cenkalti/backoff/v5"
	"github.com/hashicorp/vault/api"
	"github.com/kelseyhightower/envconfig"
)

const (
	AuthMethodToken   = "token"
	AuthMethodAppRole = "approle"

	secretsPathFormat = "apps/data/%s"
)

var (
	ErrSecretsStorageDisabled = errors.New("secrets storage is not enabled")
	ErrInvalidSecretFormat    = errors.New("invalid secret format")
)

func Init() (*ServiceConfig, error) {
	cfg := &ServiceConfig{}

	err := envconfig.Process("", cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service configuration: %w", err)
	}

	if len(ServiceVersion) != 0 {
		cfg.App.ServiceVersion = ServiceVersion
	}

	if len(CommitSHA) != 0 {
		cfg.App.CommitSHA = CommitSHA
	}

	if err := cfg.Pagination.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (p Pagination) validate() error {
	switch {
	case p.MaxPageSize == 0:
		return errors.New("PAGINATION_MAX_PAGE_SIZE must be positive")
	case p.DefaultPageSize == 0 || p.DefaultPageSize > p.MaxPageSize:
		return fmt.Errorf("PAGINATION_DEFAULT_PAGE_SIZE must be between 1 and %d", p.MaxPageSize)
	case p.DefaultPageNumber == 0:
		return errors.New("PAGINATION_DEFAULT_PAGE_NUMBER must be positive")
	}

	return nil
}

// Loader overlays secrets stored in Vault on top of the environment based
// configuration and reloads them on SIGHUP.
type Loader struct {
	cfg         *ServiceConfig
	secretsRepo ports.SecretsRepository
	log         logger.Logger
	out         io.Writer
	newBackOff  func() backoff.BackOff
	signals     chan os.Signal
	lastVersion uint
}

func NewLoader(cfg *ServiceConfig, secretsRepo ports.SecretsRepository, log logger.Logger) *Loader {
	return &Loader{
		cfg:         cfg,
		secretsRepo: secretsRepo,
		log:         log.Component("config_loader"),
		out:         os.Stdout,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		signals: make(chan os.Signal, 1),
	}
}

// Load authenticates against Vault, reads the service secrets and applies
// them to the configuration. It returns the secret version that was applied.
func (l *Loader) Load(ctx context.Context) (uint, error) {
	if !l.cfg.SecretsStorage.Enabled {
		return 0, ErrSecretsStorageDisabled
	}

	if l.cfg.SecretsStorage.Namespace != "" {
		l.secretsRepo.SetNamespace(l.cfg.SecretsStorage.Namespace)
	}

	if err := l.authenticate(ctx); err != nil {
		return 0, fmt.Errorf("failed to authenticate with Vault: %w", err)
	}

	secret, err := l.readSecret(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	data, metadata, err := splitSecret(secret, l.secretsPath())
	if err != nil {
		return 0, err
	}

	applied := l.applySecrets(data)

	version, err := secretVersion(metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to get secret version: %w", err)
	}

	l.lastVersion = version

	l.log.Info().
		Uint("version", version).
		Strs("keys", applied).
		Msg("secrets applied to configuration")

	return version, nil
}

// WatchConfigSignals reloads secrets on SIGHUP and dumps the configuration on
// SIGUSR1 until ctx is done.
func (l *Loader) WatchConfigSignals(ctx context.Context) {
	signal.Notify(l.signals, syscall.SIGHUP, syscall.SIGUSR1)

	go func() {
		defer signal.Stop(l.signals)

		for {
			select {
			case <-ctx.Done():
				return

			case sig := <-l.signals:
				switch sig {
				case syscall.SIGHUP:
					l.reload(ctx)

				case syscall.SIGUSR1:
					l.DumpConfig()
				}
			}
		}
	}()
}

// DumpConfig writes the configuration as JSON. Credentials are excluded by
// their json tags.
func (l *Loader) DumpConfig() {
	configJSON, err := json.MarshalIndent(l.cfg, "", "  ")
	if err != nil {
		l.log.Error().Err(err).Msg("failed to marshal configuration")

		return
	}

	_, _ = fmt.Fprintf(l.out, "\n=== Configuration Dump ===\n%s\n=== End Configuration ===\n\n", configJSON)
}

func (l *Loader) reload(ctx context.Context) {
	previous := l.lastVersion

	version, err := l.Load(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("configuration reload failed")

		return
	}

	if version == previous {
		l.log.Debug().Uint("version", version).Msg("secrets unchanged")
	}
}

func (l *Loader) authenticate(ctx context.Context) error {
	storage := l.cfg.SecretsStorage

	switch strings.ToLower(storage.AuthMethod) {
	case AuthMethodToken:
		if storage.Token == "" {
			return errors.New("token is required for token auth method")
		}

		l.secretsRepo.SetToken(storage.Token)

		return nil

	case AuthMethodAppRole:
		if storage.RoleID == "" || storage.SecretID == "" {
			return errors.New("role_id and secret_id are required for approle auth method")
		}

		resp, err := l.secretsRepo.Write(ctx, "auth/approle/login", map[string]any{
			"role_id":   storage.RoleID,
			"secret_id": storage.SecretID,
		})
		if err != nil {
			return fmt.Errorf("failed to authenticate via approle: %w", err)
		}

		if resp == nil || resp.Auth == nil {
			return errors.New("no auth info returned from Vault")
		}

		l.secretsRepo.SetToken(resp.Auth.ClientToken)

		return nil

	default:
		return fmt.Errorf("unsupported auth method: %s", storage.AuthMethod)
	}
}

func (l *Loader) secretsPath() string {
	return fmt.Sprintf(secretsPathFormat, l.cfg.SecretsStorage.MountPath)
}

func (l *Loader) readSecret(ctx context.Context) (*api.Secret, error) {
	path := l.secretsPath()

	if l.cfg.SecretsStorage.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, l.cfg.SecretsStorage.Timeout)
		defer cancel()
	}

	secret, err := backoff.Retry(ctx, func() (*api.Secret, error) {
		return l.secretsRepo.Read(ctx, path)
	},
		backoff.WithBackOff(l.newBackOff()),
		backoff.WithMaxTries(l.cfg.SecretsStorage.MaxRetries+1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read from path %s after %d retries: %w", path, l.cfg.SecretsStorage.MaxRetries, err)
	}

	return secret, nil
}

// splitSecret separates a KV v2 response into its data and metadata maps.
func splitSecret(secret *api.Secret, path string) (map[string]any, map[string]any, error) {
	if secret == nil || secret.Data == nil {
		return nil, nil, nil
	}

	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("%w at path %s, missing 'data' key", ErrInvalidSecretFormat, path)
	}

	metadata, _ := secret.Data["metadata"].(map[string]any)

	return data, metadata, nil
}

func secretVersion(metadata map[string]any) (uint, error) {
	if metadata == nil {
		return 0, nil
	}

	version, ok := metadata["version"]
	if !ok {
		return 0, nil
	}

	switch v := version.(type) {
	case float64:
		return uint(v), nil
	case int:
		return uint(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("failed to parse version: %w", err)
		}

		return uint(n), nil
	default:
		return 0, fmt.Errorf("unexpected version type: %T", version)
	}
}

// applySecrets copies known keys into the configuration and returns the keys
// that were applied. Unknown and empty values are ignored.
func (l *Loader) applySecrets(data map[string]any) []string {
	applied := make([]string, 0, len(data))

	for key, value := range data {
		strValue, ok := value.(string)
		if !ok || strValue == "" {
			continue
		}

		if l.applySecret(key, strValue) {
			applied = append(applied, key)
		}
	}

	return applied
}

func (l *Loader) applySecret(key, value string) bool {
	switch key {
	case "POSTGRES_HOST":
		l.cfg.Database.Host = value
	case "POSTGRES_DATABASE":
		l.cfg.Database.Database = value
	case "POSTGRES_USERNAME":
		l.cfg.Database.Username = value
	case "POSTGRES_PASSWORD":
		l.cfg.Database.Password = value
	case "CACHE_ADDRESS":
		l.cfg.Cache.Address = value
	case "CACHE_PASSWORD":
		l.cfg.Cache.Password = value
	default:
		return false
	}

	return true
}
