package pullrequest

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/saint0x/ghscribe/pkg/ai"
	"github.com/saint0x/ghscribe/pkg/log"
)

// Result messages
const (
	ResultAborted   = "pull request aborted"
	ResultFailed    = "Pull request submission failed"
	ResultSubmitted = "Pull request submitted successfully!"
)

// Defaults substituted for empty metadata
const (
	DefaultCommitMessage = "Default commit message from github search saas"
	DefaultBranchName    = "default-branch-name"
	DefaultTitle         = "Generated output from github search saas"
	DefaultBody          = "This is the generated output from github search saas"
)

var unsafeBranchChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// GitAPI is the subset of the GitHub client used to build a pull request
type GitAPI interface {
	GetDefaultBranch(ctx context.Context, owner, repo string) (string, error)
	GetBranchHead(ctx context.Context, owner, repo, branch string) (commitSHA, treeSHA string, err error)
	CreateTree(ctx context.Context, owner, repo, baseTree, path, content string) (string, error)
	CreateCommit(ctx context.Context, owner, repo, message, treeSHA, parentSHA string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, branch, sha string) (string, error)
	CreatePR(ctx context.Context, owner, repo, title, body, head, base string) (string, error)
}

// Metadata describes the commit and pull request wrapping a change set
type Metadata struct {
	CommitMessage string
	BranchName    string
	Title         string
	Body          string
}

// Result is the outcome of one submission. Errmsg accumulates warnings and
// may be non-empty on success.
type Result struct {
	Result string `json:"result"`
	Errmsg string `json:"errmsg,omitempty"`
	Branch string `json:"branch,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Submitted reports whether the pull request was opened
func (r Result) Submitted() bool {
	return r.Result == ResultSubmitted
}

// commitChain is the evolving state of one submission
type commitChain struct {
	defaultBranch string
	baseCommitSHA string
	treeSHA       string
	commitSHA     string
	branch        string
}

// Submitter turns file changes into a branch, commit and pull request
type Submitter struct {
	api    GitAPI
	logger *log.Logger
	now    func() time.Time

	mu        sync.Mutex
	lastStamp int64
}

// New creates a new Submitter
func New(logger *log.Logger, api GitAPI) *Submitter {
	return &Submitter{
		api:    api,
		logger: logger,
		now:    time.Now,
	}
}

// SanitizeBranchName replaces every character outside [A-Za-z0-9_-]
func SanitizeBranchName(name string) string {
	return unsafeBranchChars.ReplaceAllString(name, "-")
}

// stamp returns a millisecond timestamp that never repeats for this Submitter
func (s *Submitter) stamp() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := s.now().UnixMilli()
	if ts <= s.lastStamp {
		ts = s.lastStamp + 1
	}
	s.lastStamp = ts
	return ts
}

// Submit writes files to a new branch of owner/repo and opens a pull request
// against the default branch. It never returns an error; failures are
// reported through Result.
func (s *Submitter) Submit(ctx context.Context, owner, repo string, files []ai.FileChange, meta Metadata) Result {
	if len(files) == 0 {
		return Result{Result: ResultAborted, Errmsg: "error: no content to submit for pull request"}
	}
	for _, f := range files {
		if f.FilePath == "" || f.FileContent == "" {
			return Result{Result: ResultAborted, Errmsg: "error: file paths or file contents are empty"}
		}
	}

	var warnings string
	if meta.CommitMessage == "" {
		meta.CommitMessage = DefaultCommitMessage
		warnings += "error: default commit message used as no commit message provided\n"
	}
	meta.BranchName = SanitizeBranchName(meta.BranchName)
	if meta.BranchName == "" {
		meta.BranchName = DefaultBranchName
		warnings += "error: default branch name used as no branch name after sanitizing\n"
	}
	if meta.Title == "" {
		meta.Title = DefaultTitle
		warnings += "error: default pull request title used as no pull request title provided\n"
	}
	if meta.Body == "" {
		meta.Body = DefaultBody
		warnings += "error: default pull request body used as no pull request body provided\n"
	}
	if warnings != "" {
		s.logger.Warning("Using defaults for pull request metadata:\n%s", warnings)
	}

	chain, url, err := s.run(ctx, owner, repo, files, meta)
	if err != nil {
		s.logger.Error("Pull request submission failed: %v", err)
		return Result{
			Result: ResultFailed,
			Errmsg: warnings + "error: error when submitting pull request:" + err.Error(),
			Branch: chain.branch,
		}
	}

	s.logger.Success("Pull request opened: %s", url)
	return Result{Result: ResultSubmitted, Errmsg: warnings, Branch: chain.branch, URL: url}
}

// run performs the dependent REST sequence. Each step needs the SHA produced
// by the one before it, so nothing here runs in parallel.
func (s *Submitter) run(ctx context.Context, owner, repo string, files []ai.FileChange, meta Metadata) (commitChain, string, error) {
	var chain commitChain
	var err error

	s.logger.Git("Reading default branch of %s/%s", owner, repo)
	if chain.defaultBranch, err = s.api.GetDefaultBranch(ctx, owner, repo); err != nil {
		return chain, "", err
	}
	if chain.baseCommitSHA, chain.treeSHA, err = s.api.GetBranchHead(ctx, owner, repo, chain.defaultBranch); err != nil {
		return chain, "", err
	}

	for _, f := range files {
		s.logger.Git("Writing %s onto tree %s", f.FilePath, chain.treeSHA)
		if chain.treeSHA, err = s.api.CreateTree(ctx, owner, repo, chain.treeSHA, f.FilePath, f.FileContent); err != nil {
			return chain, "", fmt.Errorf("tree for %s: %w", f.FilePath, err)
		}
	}

	if chain.commitSHA, err = s.api.CreateCommit(ctx, owner, repo, meta.CommitMessage, chain.treeSHA, chain.baseCommitSHA); err != nil {
		return chain, "", err
	}

	chain.branch = meta.BranchName + strconv.FormatInt(s.stamp(), 10)
	s.logger.Branch("Creating branch %s at %s", chain.branch, chain.commitSHA)
	if _, err = s.api.CreateBranch(ctx, owner, repo, chain.branch, chain.commitSHA); err != nil {
		return chain, "", err
	}

	s.logger.PR("Opening pull request %q: %s -> %s", meta.Title, chain.branch, chain.defaultBranch)
	url, err := s.api.CreatePR(ctx, owner, repo, meta.Title, meta.Body, chain.branch, chain.defaultBranch)
	if err != nil {
		return chain, "", err
	}
	return chain, url, nil
}
