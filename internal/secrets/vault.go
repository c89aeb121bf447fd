package secrets

import (
	"context"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// VaultSource reads private keys from a HashiCorp Vault KV v2 mount. It is
// the alternative backend for deployments that keep App keys in Vault
// instead of Secrets Manager.
type VaultSource struct {
	client *vault.Client
}

// NewVaultSource creates a Vault source authenticated via approle. The
// address and role credentials come from VAULT_ADDR, VAULT_ROLE_ID and
// VAULT_SECRET_ID.
func NewVaultSource() (*VaultSource, error) {
	logger.Info().Msg("Initializing Vault client")

	vaultAddr := os.Getenv("VAULT_ADDR")
	if vaultAddr == "" {
		vaultAddr = "http://127.0.0.1:8200"
		logger.Debug().Str("vault_addr", vaultAddr).Msg("Using default Vault address")
	} else {
		logger.Debug().Str("vault_addr", vaultAddr).Msg("Using configured Vault address")
	}

	config := vault.DefaultConfig()
	config.Address = vaultAddr

	client, err := vault.NewClient(config)
	if err != nil {
		logger.Error().Err(err).Str("vault_addr", vaultAddr).Msg("Failed to create Vault client")
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")

	if roleID == "" || secretID == "" {
		logger.Error().
			Bool("role_id_set", roleID != "").
			Bool("secret_id_set", secretID != "").
			Msg("Required Vault credentials not set")
		return nil, fmt.Errorf("VAULT_ROLE_ID and VAULT_SECRET_ID must be set")
	}

	logger.Debug().
		Str("role_id", maskString(roleID)).
		Str("secret_id", maskString(secretID)).
		Msg("Vault credentials found, attempting authentication")

	loginSecret, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		logger.Error().
			Err(err).
			Str("role_id", maskString(roleID)).
			Str("vault_addr", vaultAddr).
			Msg("Failed to authenticate with Vault")
		return nil, fmt.Errorf("failed to login to vault: %w", err)
	}

	client.SetToken(loginSecret.Auth.ClientToken)
	logger.Info().
		Str("vault_addr", vaultAddr).
		Time("token_expiry", time.Unix(int64(loginSecret.Auth.LeaseDuration), 0)).
		Msg("Vault client initialized successfully")
	return &VaultSource{client: client}, nil
}

// PrivateKey reads the App private key stored at the given KV path. The PEM
// lives under the "private_key" field.
func (s *VaultSource) PrivateKey(ctx context.Context, name string) (string, error) {
	fullPath := fmt.Sprintf("kv/data/%s", name)

	logger.Debug().
		Str("path", name).
		Str("full_path", fullPath).
		Msg("Retrieving private key from Vault")

	secret, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		logger.Error().
			Err(err).
			Str("path", name).
			Msg("Failed to read secret from Vault")
		return "", &StoreError{Name: name, Err: err}
	}

	if secret == nil || secret.Data == nil {
		logger.Warn().Str("path", name).Msg("Secret not found in Vault")
		return "", &StoreError{Name: name, Err: fmt.Errorf("secret not found: %s", name)}
	}

	// For KV v2, the data is nested under the "data" key
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		logger.Error().Str("path", name).Msg("Invalid secret data format")
		return "", &StoreError{Name: name, Err: fmt.Errorf("invalid secret data format")}
	}

	if key, ok := data["private_key"].(string); ok {
		return key, nil
	}

	logger.Error().Str("path", name).Msg("Private key field missing from secret")
	return "", &StoreError{Name: name, Err: fmt.Errorf("private_key field missing from secret %s", name)}
}

// GetSecret returns the full KV v2 data map at a path. Used by the config
// loader for non-key configuration stored in Vault.
func (s *VaultSource) GetSecret(path string) (map[string]interface{}, error) {
	fullPath := fmt.Sprintf("kv/data/%s", path)

	secret, err := s.client.Logical().Read(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret data format")
	}

	return data, nil
}
