package dispatch

import (
	"context"
	"fmt"

	git "gopkg.in/src-d/go-git.v4"
	gitconfig "gopkg.in/src-d/go-git.v4/config"
	"gopkg.in/src-d/go-git.v4/storage/memory"

	"workflow-dispatcher/internal/githubapp"
)

// RefLister checks whether a ref exists in a remote repository.
type RefLister interface {
	RefExists(ctx context.Context, token, owner, repo, ref string) (bool, error)
}

// gitRefLister lists remote refs over token-authenticated HTTPS without
// cloning.
type gitRefLister struct {
	host string
}

// NewRefLister returns a RefLister against github.com.
func NewRefLister() RefLister {
	return &gitRefLister{host: "github.com"}
}

func (l *gitRefLister) RefExists(ctx context.Context, token, owner, repo, ref string) (bool, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{githubapp.BuildRemoteURL(token, owner, repo, l.host)},
	})

	refs, err := remote.List(&git.ListOptions{})
	if err != nil {
		return false, fmt.Errorf("failed to list refs for %s/%s: %w", owner, repo, err)
	}

	for _, r := range refs {
		if r.Name().String() == ref || r.Name().Short() == ref {
			return true, nil
		}
	}

	return false, nil
}
