package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vaultTestServer speaks just enough of the Vault HTTP API for the approle
// login and a single KV v2 secret.
func vaultTestServer(t *testing.T, secretData map[string]interface{}) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/approle/login", func(w http.ResponseWriter, r *http.Request) {
		var login map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&login))
		assert.Equal(t, "test-role-id", login["role_id"])
		assert.Equal(t, "test-secret-id", login["secret_id"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"auth": {"client_token": "test-token", "lease_duration": 3600}}`))
	})
	mux.HandleFunc("/v1/kv/data/github/app-key", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.Header.Get("X-Vault-Token"))

		body, err := json.Marshal(map[string]interface{}{
			"data": map[string]interface{}{"data": secretData},
		})
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
	mux.HandleFunc("/v1/kv/data/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"errors": []}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestVaultSource(t *testing.T, addr string) *VaultSource {
	t.Helper()

	t.Setenv("VAULT_ADDR", addr)
	t.Setenv("VAULT_ROLE_ID", "test-role-id")
	t.Setenv("VAULT_SECRET_ID", "test-secret-id")

	source, err := NewVaultSource()
	require.NoError(t, err)
	return source
}

func TestVaultSource_PrivateKey(t *testing.T) {
	srv := vaultTestServer(t, map[string]interface{}{"private_key": testPEM})
	source := newTestVaultSource(t, srv.URL)

	pem, err := source.PrivateKey(context.Background(), "github/app-key")
	require.NoError(t, err)
	assert.Equal(t, testPEM, pem)
}

func TestVaultSource_PrivateKey_FieldMissing(t *testing.T) {
	// The lookup is strict: a secret without a private_key field is an
	// error even when it holds a single string field under another name.
	srv := vaultTestServer(t, map[string]interface{}{"ssh_key": testPEM})
	source := newTestVaultSource(t, srv.URL)

	_, err := source.PrivateKey(context.Background(), "github/app-key")
	require.Error(t, err)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Contains(t, storeErr.Error(), "private_key field missing")
}

func TestVaultSource_PrivateKey_NotFound(t *testing.T) {
	srv := vaultTestServer(t, map[string]interface{}{"private_key": testPEM})
	source := newTestVaultSource(t, srv.URL)

	_, err := source.PrivateKey(context.Background(), "github/missing")
	require.Error(t, err)

	var storeErr *StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "github/missing", storeErr.Name)
}

func TestVaultSource_GetSecret(t *testing.T) {
	srv := vaultTestServer(t, map[string]interface{}{"app_id": "12345", "port": "9090"})
	source := newTestVaultSource(t, srv.URL)

	data, err := source.GetSecret("github/app-key")
	require.NoError(t, err)
	assert.Equal(t, "12345", data["app_id"])
	assert.Equal(t, "9090", data["port"])
}

func TestNewVaultSource_MissingCredentials(t *testing.T) {
	t.Setenv("VAULT_ADDR", "http://127.0.0.1:8200")
	t.Setenv("VAULT_ROLE_ID", "")
	t.Setenv("VAULT_SECRET_ID", "")

	_, err := NewVaultSource()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VAULT_ROLE_ID")
}
