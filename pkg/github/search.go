package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
)

// SearchResult is one code-search match. Identity is SHA plus Path.
type SearchResult struct {
	SHA                string `json:"sha"`
	Path               string `json:"path"`
	Name               string `json:"name"`
	RepositoryFullName string `json:"repositoryFullName"`
	OwnerLogin         string `json:"ownerLogin"`
	HTMLURL            string `json:"htmlUrl,omitempty"`
}

// Repo returns the repository name without the owner
func (r SearchResult) Repo() string {
	_, name, _ := strings.Cut(r.RepositoryFullName, "/")
	return name
}

// SearchCode runs a code search and follows pagination until maxResults
// matches are collected or the result set is exhausted. maxResults <= 0
// means no limit.
func (c *Client) SearchCode(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: searchPageSize},
	}

	var results []SearchResult
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := c.client.Search.Code(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search code: %w", err)
		}

		for _, cr := range page.CodeResults {
			results = append(results, SearchResult{
				SHA:                cr.GetSHA(),
				Path:               cr.GetPath(),
				Name:               cr.GetName(),
				RepositoryFullName: cr.GetRepository().GetFullName(),
				OwnerLogin:         cr.GetRepository().GetOwner().GetLogin(),
				HTMLURL:            cr.GetHTMLURL(),
			})
			if maxResults > 0 && len(results) >= maxResults {
				return results, nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		c.logger.Debug("Fetching search page %d", resp.NextPage)
	}

	return results, nil
}

// SearchRepositories lists the repositories owned by a user
func (c *Client) SearchRepositories(ctx context.Context, username string) ([]string, error) {
	opts := &github.SearchOptions{
		ListOptions: github.ListOptions{PerPage: searchPageSize},
	}

	var names []string
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, resp, err := c.client.Search.Repositories(ctx, "user:"+username, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to search repositories: %w", err)
		}
		for _, r := range page.Repositories {
			names = append(names, r.GetFullName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// ParseRepo splits "owner/repo", an HTTPS URL or an SSH URL into owner and repo
func ParseRepo(repoURL string) (owner, repo string, err error) {
	repoURL = strings.TrimSuffix(strings.TrimSpace(repoURL), ".git")

	// Handle SSH URLs (git@github.com:owner/repo)
	if strings.HasPrefix(repoURL, "git@github.com:") {
		repoURL = strings.TrimPrefix(repoURL, "git@github.com:")
	} else if strings.Contains(repoURL, "://") {
		u, err := url.Parse(repoURL)
		if err != nil {
			return "", "", fmt.Errorf("invalid URL: %w", err)
		}
		repoURL = u.Path
	}

	parts := strings.Split(strings.Trim(repoURL, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format %q", repoURL)
	}

	return parts[0], parts[1], nil
}
