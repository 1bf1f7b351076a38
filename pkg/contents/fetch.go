package contents

import (
	"context"
	"strings"

	"github.com/saint0x/ghscribe/pkg/github"
	"github.com/saint0x/ghscribe/pkg/log"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency bounds in-flight content requests per batch
const defaultConcurrency = 4

// FileGetter retrieves the decoded body of one repository file
type FileGetter interface {
	GetFileContent(ctx context.Context, owner, repo, path string) (string, error)
}

// Result is the aggregate of one fetch batch. Errmsg lists the paths that
// failed, joined with "; ", and is empty when every item succeeded.
type Result struct {
	FileContents   string
	FileContentMap map[string]string
	Failed         []string
	Errmsg         string
}

// Fetcher downloads file bodies for a set of search results
type Fetcher struct {
	getter      FileGetter
	logger      *log.Logger
	concurrency int
}

// NewFetcher creates a Fetcher. concurrency <= 0 uses the default.
func NewFetcher(logger *log.Logger, getter FileGetter, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{getter: getter, logger: logger, concurrency: concurrency}
}

type fetched struct {
	body string
	err  error
}

// Fetch retrieves every item. A failing item never aborts the batch; its
// path is recorded in Result.Failed and the remaining items still load.
// Aggregation follows input order regardless of completion order.
func (f *Fetcher) Fetch(ctx context.Context, items []github.SearchResult) Result {
	out := make([]fetched, len(items))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, item := range items {
		g.Go(func() error {
			body, err := f.getter.GetFileContent(ctx, item.OwnerLogin, item.Repo(), item.Path)
			out[i] = fetched{body: body, err: err}
			return nil
		})
	}
	_ = g.Wait()

	res := Result{FileContentMap: make(map[string]string, len(items))}
	var sb strings.Builder
	for i, item := range items {
		if out[i].err != nil {
			f.logger.Error("Error fetching file content for %s: %v", item.Path, out[i].err)
			res.Failed = append(res.Failed, item.Path)
			continue
		}
		sb.WriteString(item.Path)
		sb.WriteString("\n")
		sb.WriteString(out[i].body)
		sb.WriteString("\n\n")
		res.FileContentMap[item.Path] = out[i].body
	}
	res.FileContents = sb.String()
	res.Errmsg = strings.Join(res.Failed, "; ")

	f.logger.Debug("Fetched %d/%d files", len(res.FileContentMap), len(items))
	return res
}
