package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"workflow-dispatcher/internal/githubapp"
	"workflow-dispatcher/internal/secrets"
)

const (
	// DefaultRegion is used when the event does not name one.
	DefaultRegion = "us-east-1"

	acceptHeader     = "application/vnd.github+json"
	apiVersion       = "2022-11-28"
	apiVersionHeader = "X-GitHub-Api-Version"
)

// Dispatcher triggers GitHub Actions workflow runs on behalf of a GitHub
// App. Each Trigger call is self-contained: secret fetch, token exchange and
// dispatch run inline with nothing retained between invocations.
type Dispatcher struct {
	APIBaseURL string
	Client     *http.Client
	Auth       githubapp.Authenticator
	Secrets    secrets.SourceFactory
	Refs       RefLister
	Logger     zerolog.Logger
}

// New creates a Dispatcher with the production wiring: Secrets Manager as
// the key store and the public GitHub API as the target.
func New(apiBaseURL string) *Dispatcher {
	if apiBaseURL == "" {
		apiBaseURL = githubapp.DefaultAPIBaseURL
	}
	return &Dispatcher{
		APIBaseURL: apiBaseURL,
		Client:     &http.Client{},
		Auth:       githubapp.NewAuthenticator(apiBaseURL),
		Secrets: func(ctx context.Context, region string) (secrets.Source, error) {
			return secrets.NewManagerSource(ctx, region)
		},
		Refs:   NewRefLister(),
		Logger: log.With().Str("component", "dispatch").Logger(),
	}
}

// Trigger authenticates as the App named in the event and dispatches the
// workflow. It always returns a well-formed Result; no failure escapes as
// an error.
func (d *Dispatcher) Trigger(ctx context.Context, event Event) Result {
	logger := d.Logger.With().
		Str("repo", event.RepoOwner+"/"+event.RepoName).
		Str("workflow_file", event.WorkflowFile).
		Str("ref", event.Ref).
		Logger()

	region := event.RegionName
	if region == "" {
		region = DefaultRegion
	}

	source, err := d.Secrets(ctx, region)
	if err != nil {
		return d.failure(logger, err)
	}

	pem, err := source.PrivateKey(ctx, event.SecretName)
	if err != nil {
		return d.failure(logger, err)
	}

	token, err := d.Auth.InstallationToken(ctx, githubapp.AppCredential{
		AppID:          event.AppID,
		InstallationID: event.InstallationID,
		PrivateKeyPEM:  pem,
	})
	if err != nil {
		return d.failure(logger, err)
	}

	if event.VerifyRef && d.Refs != nil {
		exists, err := d.Refs.RefExists(ctx, token, event.RepoOwner, event.RepoName, event.Ref)
		if err != nil {
			return d.failure(logger, err)
		}
		if !exists {
			logger.Warn().Msg("Ref not found in repository")
			return Result{
				Success:    false,
				StatusCode: http.StatusUnprocessableEntity,
				Message:    fmt.Sprintf("Ref '%s' not found in %s/%s", event.Ref, event.RepoOwner, event.RepoName),
			}
		}
	}

	result, err := d.sendDispatch(ctx, token, event)
	if err != nil {
		return d.failure(logger, err)
	}

	if result.Success {
		logger.Info().Int("status_code", result.StatusCode).Msg("Workflow triggered")
	} else {
		logger.Warn().
			Int("status_code", result.StatusCode).
			Str("message", result.Message).
			Msg("Workflow dispatch rejected")
	}

	return result
}

// sendDispatch issues the workflow_dispatch POST and normalizes the
// response. 204 means triggered; anything else is an API-reported failure
// carrying whatever message and errors GitHub returned.
func (d *Dispatcher) sendDispatch(ctx context.Context, token string, event Event) (Result, error) {
	body := dispatchBody{Ref: event.Ref}
	if len(event.WorkflowInputs) > 0 {
		body.Inputs = event.WorkflowInputs
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to encode dispatch payload: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/actions/workflows/%s/dispatches",
		d.APIBaseURL, event.RepoOwner, event.RepoName, event.WorkflowFile)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set(apiVersionHeader, apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send dispatch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return Result{
			Success:    true,
			StatusCode: http.StatusNoContent,
			Message:    fmt.Sprintf("Workflow '%s' triggered successfully on ref '%s'", event.WorkflowFile, event.Ref),
		}, nil
	}

	raw, _ := io.ReadAll(resp.Body)

	detail := apiError{Errors: []interface{}{}}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &detail); err != nil {
			return Result{}, fmt.Errorf("failed to decode dispatch response: %w", err)
		}
	}
	if detail.Message == "" {
		detail.Message = string(raw)
	}
	if detail.Errors == nil {
		detail.Errors = []interface{}{}
	}

	return Result{
		Success:    false,
		StatusCode: resp.StatusCode,
		Message:    detail.Message,
		Errors:     detail.Errors,
	}, nil
}

// failure maps an error from any step into the Result taxonomy: token
// exchange failures keep their upstream status, everything else collapses
// to 500.
func (d *Dispatcher) failure(logger zerolog.Logger, err error) Result {
	var exchangeErr *githubapp.TokenExchangeError
	if errors.As(err, &exchangeErr) {
		status := exchangeErr.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		logger.Error().
			Int("status_code", status).
			Str("body", exchangeErr.Body).
			Msg("Token exchange failed")
		return Result{
			Success:    false,
			StatusCode: status,
			Message:    exchangeErr.Error(),
		}
	}

	var storeErr *secrets.StoreError
	if errors.As(err, &storeErr) {
		logger.Error().Err(err).Str("secret_name", storeErr.Name).Msg("Secret retrieval failed")
	} else {
		logger.Error().Err(err).Msg("Workflow trigger failed")
	}

	return Result{
		Success:    false,
		StatusCode: http.StatusInternalServerError,
		Message:    fmt.Sprintf("Unexpected error: %s", err),
	}
}
