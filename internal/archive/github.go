package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/pavelanni/reviewer/internal/model"
)

// GitHubSink commits documents to a repository through the contents API.
type GitHubSink struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

// NewGitHubSink creates a sink for repo given as "owner/name". An empty
// branch commits to the repository's default branch.
func NewGitHubSink(token, repo, branch string) (*GitHubSink, error) {
	if token == "" {
		return nil, fmt.Errorf("github archive: token is required")
	}
	return newGitHubSink(github.NewClient(nil).WithAuthToken(token), repo, branch)
}

func newGitHubSink(client *github.Client, repo, branch string) (*GitHubSink, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("github archive: repository must be owner/name, got %q", repo)
	}
	return &GitHubSink{client: client, owner: owner, repo: name, branch: branch}, nil
}

func (g *GitHubSink) Name() string { return "github" }

func (g *GitHubSink) Archive(ctx context.Context, folder string, doc model.Document) (string, error) {
	p := Path(folder, doc)
	opts := &github.RepositoryContentFileOptions{
		Message: github.String("Archive Session: " + folder),
		Content: doc.Data,
	}
	if g.branch != "" {
		opts.Branch = github.String(g.branch)
	}

	resp, _, err := g.client.Repositories.CreateFile(ctx, g.owner, g.repo, p, opts)
	if err != nil {
		return "", err
	}
	if resp != nil && resp.Content != nil && resp.Content.GetHTMLURL() != "" {
		return resp.Content.GetHTMLURL(), nil
	}
	return p, nil
}
