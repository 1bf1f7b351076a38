package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/go-github/v57/github"
	"github.com/saint0x/ghscribe/pkg/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// searchPageSize is the largest page GitHub search accepts
	searchPageSize = 100
	// blobMode is the git file mode for a regular non-executable file
	blobMode = "100644"
)

// Client handles GitHub operations
type Client struct {
	client  *github.Client
	logger  *log.Logger
	limiter *rate.Limiter
}

// Option configures a Client
type Option func(*Client) error

// WithBaseURL points the client at a different API root (GitHub Enterprise, tests)
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		c.client.BaseURL = u
		return nil
	}
}

// WithRateLimit caps outgoing REST calls to rps requests per second
func WithRateLimit(rps float64) Option {
	return func(c *Client) error {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return nil
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)+1)
		return nil
	}
}

// New creates a new GitHub client authenticated with a bearer token
func New(logger *log.Logger, token string, opts ...Option) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	c := &Client{
		client:  github.NewClient(tc),
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// wait blocks until the limiter admits another request
func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// GetDefaultBranch gets the default branch for a repository
func (c *Client) GetDefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	repository, _, err := c.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("failed to get repository: %w", err)
	}
	if repository.GetDefaultBranch() == "" {
		return "", fmt.Errorf("repository %s/%s has no default branch", owner, repo)
	}
	return repository.GetDefaultBranch(), nil
}

// GetBranchHead returns the head commit SHA of a branch and the SHA of its tree
func (c *Client) GetBranchHead(ctx context.Context, owner, repo, branch string) (commitSHA, treeSHA string, err error) {
	if err := c.wait(ctx); err != nil {
		return "", "", err
	}
	b, _, err := c.client.Repositories.GetBranch(ctx, owner, repo, branch, 1)
	if err != nil {
		return "", "", fmt.Errorf("failed to get branch %s: %w", branch, err)
	}
	commitSHA = b.GetCommit().GetSHA()
	treeSHA = b.GetCommit().GetCommit().GetTree().GetSHA()
	if commitSHA == "" || treeSHA == "" {
		return "", "", fmt.Errorf("branch %s has no head commit", branch)
	}
	return commitSHA, treeSHA, nil
}

// GetFileContent fetches a file and decodes its base64 body
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	file, _, _, err := c.client.Repositories.GetContents(ctx, owner, repo, path, &github.RepositoryContentGetOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to get contents of %s: %w", path, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s is a directory", path)
	}
	decoded, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return decoded, nil
}

// CreateTree writes a single-blob tree on top of baseTree and returns its SHA
func (c *Client) CreateTree(ctx context.Context, owner, repo, baseTree, path, content string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	tree, _, err := c.client.Git.CreateTree(ctx, owner, repo, baseTree, []*github.TreeEntry{{
		Path:    github.String(path),
		Mode:    github.String(blobMode),
		Type:    github.String("blob"),
		Content: github.String(content),
	}})
	if err != nil {
		return "", fmt.Errorf("failed to create tree for %s: %w", path, err)
	}
	return tree.GetSHA(), nil
}

// CreateCommit writes a commit for tree with a single parent and returns its SHA
func (c *Client) CreateCommit(ctx context.Context, owner, repo, message, treeSHA, parentSHA string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	commit, _, err := c.client.Git.CreateCommit(ctx, owner, repo, &github.Commit{
		Message: github.String(message),
		Tree:    &github.Tree{SHA: github.String(treeSHA)},
		Parents: []*github.Commit{{SHA: github.String(parentSHA)}},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create commit: %w", err)
	}
	return commit.GetSHA(), nil
}

// CreateBranch creates refs/heads/<branch> pointing at sha
func (c *Client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	ref, _, err := c.client.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create branch %s: %w", branch, err)
	}
	return ref.GetRef(), nil
}

// CreatePR creates a new pull request and returns its HTML URL
func (c *Client) CreatePR(ctx context.Context, owner, repo, title, body, head, base string) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	pr, _, err := c.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Body:  github.String(body),
		Head:  github.String(head),
		Base:  github.String(base),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create PR: %w", err)
	}
	return pr.GetHTMLURL(), nil
}
