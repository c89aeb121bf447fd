package githubapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultAPIBaseURL is the public GitHub REST endpoint.
	DefaultAPIBaseURL = "https://api.github.com"

	acceptHeader     = "application/vnd.github+json"
	apiVersion       = "2022-11-28"
	apiVersionHeader = "X-GitHub-Api-Version"

	// The app JWT is backdated 60 seconds for clock drift and valid for
	// 10 minutes from issue.
	jwtDriftTolerance = 60 * time.Second
	jwtLifetime       = 10 * time.Minute
)

// AppCredential identifies a GitHub App installation together with the
// App's signing key. Held in memory for one invocation only.
type AppCredential struct {
	AppID          string
	InstallationID string
	PrivateKeyPEM  string
}

// Authenticator exchanges App credentials for an installation access token.
type Authenticator interface {
	InstallationToken(ctx context.Context, cred AppCredential) (string, error)
}

// TokenExchangeError reports a non-2xx response from the installation
// access-token endpoint. Status and body are preserved for the caller.
type TokenExchangeError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("failed to get installation token: %s - %s", e.Status, e.Body)
}

// DefaultAuthenticator talks to the GitHub REST API over plain HTTP.
type DefaultAuthenticator struct {
	APIBaseURL string
	Client     *http.Client

	// now is swappable for claim tests.
	now func() time.Time
}

// NewAuthenticator creates an authenticator against the given API base URL.
// An empty base URL means the public GitHub API.
func NewAuthenticator(apiBaseURL string) *DefaultAuthenticator {
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	return &DefaultAuthenticator{
		APIBaseURL: apiBaseURL,
		Client:     &http.Client{},
		now:        time.Now,
	}
}

// InstallationToken mints a signed App JWT and exchanges it for an
// installation access token.
func (a *DefaultAuthenticator) InstallationToken(ctx context.Context, cred AppCredential) (string, error) {
	jwtToken, err := a.signAppJWT(cred.AppID, cred.PrivateKeyPEM)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/app/installations/%s/access_tokens", a.APIBaseURL, cred.InstallationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set(apiVersionHeader, apiVersion)

	resp, err := a.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to request installation token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", &TokenExchangeError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Token == "" {
		return "", fmt.Errorf("token missing from access-token response")
	}

	return result.Token, nil
}

// signAppJWT builds the App identity assertion and signs it with RS256.
func (a *DefaultAuthenticator) signAppJWT(appID, privateKeyPEM string) (string, error) {
	now := a.now()
	claims := jwt.MapClaims{
		"iat": now.Add(-jwtDriftTolerance).Unix(),
		"exp": now.Add(jwtLifetime).Unix(),
		"iss": appID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("failed to parse private key: %w", err)
	}

	signed, err := token.SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign JWT: %w", err)
	}

	return signed, nil
}

// BuildRemoteURL creates a token-authenticated HTTPS clone URL.
func BuildRemoteURL(token, owner, repo, host string) string {
	return fmt.Sprintf("https://x-access-token:%s@%s/%s/%s.git", token, host, owner, repo)
}
