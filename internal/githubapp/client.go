package githubapp

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/go-github/v55/github"
	"golang.org/x/oauth2"
)

// Workflow is the subset of workflow metadata exposed by the listing
// endpoint.
type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	File  string `json:"file"`
	State string `json:"state"`
}

// NewInstallationClient builds a go-github client authenticated with an
// installation access token.
func NewInstallationClient(ctx context.Context, token, apiBaseURL string) (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	client := github.NewClient(oauth2.NewClient(ctx, ts))

	if apiBaseURL != "" && apiBaseURL != DefaultAPIBaseURL {
		base, err := url.Parse(strings.TrimSuffix(apiBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid API base URL: %w", err)
		}
		client.BaseURL = base
	}

	return client, nil
}

// ListWorkflows returns the workflows defined in a repository. The File
// field is the bare filename usable in a dispatch call.
func ListWorkflows(ctx context.Context, client *github.Client, owner, repo string) ([]Workflow, error) {
	workflows, _, err := client.Actions.ListWorkflows(ctx, owner, repo, &github.ListOptions{PerPage: 100})
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	result := make([]Workflow, 0, len(workflows.Workflows))
	for _, wf := range workflows.Workflows {
		result = append(result, Workflow{
			ID:    wf.GetID(),
			Name:  wf.GetName(),
			File:  path.Base(wf.GetPath()),
			State: wf.GetState(),
		})
	}

	return result, nil
}
