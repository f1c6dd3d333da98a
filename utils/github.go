package utils

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
)

// GitHubClient wraps the REST client used for label annotation and the
// issue/commit proxy endpoints. An empty token yields an unauthenticated
// client; reads still work at a lower rate limit, label writes will fail.
type GitHubClient struct {
	client *github.Client
}

func NewGitHubClient(token string) *GitHubClient {
	c := github.NewClient(HTTPClient)
	if token != "" {
		c = c.WithAuthToken(token)
	}
	return &GitHubClient{client: c}
}

// AddLabels attaches labels to an issue.
func (g *GitHubClient) AddLabels(ctx context.Context, owner, repo string, issueNumber int, labels []string) error {
	_, _, err := g.client.Issues.AddLabelsToIssue(ctx, owner, repo, issueNumber, labels)
	if err != nil {
		return fmt.Errorf("add labels to %s/%s#%d: %w", owner, repo, issueNumber, err)
	}
	return nil
}

// IssueDetails fetches a single issue.
func (g *GitHubClient) IssueDetails(ctx context.Context, owner, repo string, issueNumber int) (*github.Issue, error) {
	issue, _, err := g.client.Issues.Get(ctx, owner, repo, issueNumber)
	if err != nil {
		return nil, fmt.Errorf("get issue %s/%s#%d: %w", owner, repo, issueNumber, err)
	}
	return issue, nil
}

// SearchIssues runs an issue search query.
func (g *GitHubClient) SearchIssues(ctx context.Context, query, sort, order string, perPage int) (*github.IssuesSearchResult, error) {
	opts := &github.SearchOptions{
		Sort:        sort,
		Order:       order,
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	result, _, err := g.client.Search.Issues(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	return result, nil
}

// ListCommits lists recent commits for a repository.
func (g *GitHubClient) ListCommits(ctx context.Context, owner, repo string, perPage int) ([]*github.RepositoryCommit, error) {
	opts := &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: perPage},
	}
	commits, _, err := g.client.Repositories.ListCommits(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("list commits for %s/%s: %w", owner, repo, err)
	}
	return commits, nil
}
