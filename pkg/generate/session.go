// Package generate wires search results, the content cache, the generation
// backend and the pull request submitter into the user-facing use cases.
package generate

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saint0x/ghscribe/pkg/ai"
	"github.com/saint0x/ghscribe/pkg/cache"
	"github.com/saint0x/ghscribe/pkg/contents"
	"github.com/saint0x/ghscribe/pkg/github"
	"github.com/saint0x/ghscribe/pkg/log"
	"github.com/saint0x/ghscribe/pkg/pullrequest"
)

const staleResultsWarning = "files loaded from search may not be up to date\n"

// GitHub is the repository API a session needs
type GitHub interface {
	contents.FileGetter
	pullrequest.GitAPI
	SearchCode(ctx context.Context, query string, maxResults int) ([]github.SearchResult, error)
}

// Session is the single-user state of one client: the selected repository,
// its search results and selection, the episode cache and the current output.
// Only one use case runs at a time.
type Session struct {
	logger    *log.Logger
	gh        GitHub
	generator *ai.Generator
	fetcher   *contents.Fetcher
	submitter *pullrequest.Submitter

	generationTimeout time.Duration
	submitTimeout     time.Duration

	busy atomic.Bool

	mu          sync.Mutex
	owner       string
	repo        string
	results     []github.SearchResult
	resultsRepo string
	selection   []github.SearchResult
	cache       *cache.Cache
	output      string
}

// Option configures a Session
type Option func(*Session)

// WithTimeouts bounds generation calls and pull request submissions. Zero
// disables the bound.
func WithTimeouts(generation, submit time.Duration) Option {
	return func(s *Session) {
		s.generationTimeout = generation
		s.submitTimeout = submit
	}
}

// WithFetchConcurrency sets how many files are downloaded at once
func WithFetchConcurrency(n int) Option {
	return func(s *Session) {
		s.fetcher = contents.NewFetcher(s.logger, s.gh, n)
	}
}

// NewSession creates a session with no repository selected
func NewSession(logger *log.Logger, gh GitHub, generator *ai.Generator, opts ...Option) *Session {
	s := &Session{
		logger:    logger,
		gh:        gh,
		generator: generator,
		fetcher:   contents.NewFetcher(logger, gh, 0),
		submitter: pullrequest.New(logger, gh),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectRepository starts a new episode for owner/repo. The cache, output
// and selection are reset; search results are kept but flagged as stale
// until the next search.
func (s *Session) SelectRepository(owner, repo string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.owner, s.repo = owner, repo
	s.cache = cache.New(owner + "/" + repo)
	s.selection = nil
	s.output = ""
	s.logger.Info("Selected repository %s/%s", owner, repo)
}

// Repository returns "owner/repo", or "" when nothing is selected
func (s *Session) Repository() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == "" {
		return ""
	}
	return s.owner + "/" + s.repo
}

// Search runs a code search scoped to the selected repository and makes
// the matches the current result set
func (s *Session) Search(ctx context.Context, query string, maxResults int) ([]github.SearchResult, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.busy.Store(false)

	repository := s.Repository()
	if repository == "" {
		return nil, ErrNoRepository
	}

	q := fmt.Sprintf("%s repo:%s", query, repository)
	s.logger.Step("Searching %q", q)
	results, err := s.gh.SearchCode(ctx, q, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to search code: %w", err)
	}

	s.mu.Lock()
	s.results = results
	s.resultsRepo = repository
	s.selection = nil
	s.mu.Unlock()

	s.logger.Success("Found %d files", len(results))
	return slices.Clone(results), nil
}

// Results returns the current result set
func (s *Session) Results() []github.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.results)
}

// Select marks paths from the current results for batch processing
func (s *Session) Select(paths []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	selection := make([]github.SearchResult, 0, len(paths))
	for _, p := range paths {
		i := slices.IndexFunc(s.results, func(r github.SearchResult) bool { return r.Path == p })
		if i < 0 {
			return fmt.Errorf("%s is not in the current search results", p)
		}
		selection = append(selection, s.results[i])
	}
	s.selection = selection
	return nil
}

// Selection returns the selected results
func (s *Session) Selection() []github.SearchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.selection)
}

// Output returns the currently displayed output
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.output
}

// ClearGeneratedContent drops the generated output, its prompt and the
// displayed output so the next use case regenerates
func (s *Session) ClearGeneratedContent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		s.cache.ClearGenerated()
		s.logger.Cache("Cleared generated content for %s", s.cache.Repository())
	}
	s.output = ""
}

// ClearRepoContent drops fetched file contents and the displayed output
func (s *Session) ClearRepoContent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		s.cache.ClearRepo()
		s.logger.Cache("Cleared repository content for %s", s.cache.Repository())
	}
	s.output = ""
}

// episode is a snapshot of session state taken when a use case starts
type episode struct {
	owner     string
	repo      string
	results   []github.SearchResult
	selection []github.SearchResult
	cache     *cache.Cache
	warnings  string
}

func (e *episode) repository() string {
	return e.owner + "/" + e.repo
}

// begin takes the re-entry gate and validates preconditions. Nothing is
// mutated when a precondition fails.
func (s *Session) begin(needSelection bool) (*episode, func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, nil, ErrBusy
	}
	release := func() { s.busy.Store(false) }

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo == "" || s.cache == nil {
		release()
		return nil, nil, ErrNoRepository
	}
	if len(s.results) == 0 {
		release()
		return nil, nil, ErrNoResults
	}
	if needSelection && len(s.selection) == 0 {
		release()
		return nil, nil, ErrNoSelection
	}

	ep := &episode{
		owner:     s.owner,
		repo:      s.repo,
		results:   slices.Clone(s.results),
		selection: slices.Clone(s.selection),
		cache:     s.cache,
	}
	if s.resultsRepo != ep.repository() {
		ep.warnings += staleResultsWarning
	}
	return ep, release, nil
}

// publish caches output for the episode and displays it, unless the
// repository changed while the use case was running
func (s *Session) publish(ep *episode, output string, cacheIt bool) {
	if cacheIt && output != "" {
		ep.cache.Set(cache.GeneratedContent, output)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache == ep.cache {
		s.output = output
	}
}

func (s *Session) generate(ctx context.Context, req ai.Request) (*ai.Response, error) {
	if s.generationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.generationTimeout)
		defer cancel()
	}
	return s.generator.Generate(ctx, req)
}

func (s *Session) submit(ctx context.Context, ep *episode, files []ai.FileChange, meta pullrequest.Metadata) pullrequest.Result {
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}
	return s.submitter.Submit(ctx, ep.owner, ep.repo, files, meta)
}
