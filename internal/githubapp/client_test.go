package githubapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListWorkflows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/octo-org/octo-repo/actions/workflows", r.URL.Path)
		assert.Equal(t, "Bearer ghs_tok", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"total_count": 2,
			"workflows": [
				{"id": 1, "name": "Deploy", "path": ".github/workflows/deploy.yml", "state": "active"},
				{"id": 2, "name": "CI", "path": ".github/workflows/ci.yaml", "state": "active"}
			]
		}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewInstallationClient(ctx, "ghs_tok", srv.URL)
	require.NoError(t, err)

	workflows, err := ListWorkflows(ctx, client, "octo-org", "octo-repo")
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	assert.Equal(t, int64(1), workflows[0].ID)
	assert.Equal(t, "Deploy", workflows[0].Name)
	assert.Equal(t, "deploy.yml", workflows[0].File)
	assert.Equal(t, "active", workflows[0].State)
	assert.Equal(t, "ci.yaml", workflows[1].File)
}

func TestListWorkflows_APIFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewInstallationClient(ctx, "ghs_tok", srv.URL)
	require.NoError(t, err)

	_, err = ListWorkflows(ctx, client, "octo-org", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list workflows")
}
