package contents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/saint0x/ghscribe/pkg/github"
	"github.com/saint0x/ghscribe/pkg/log"
)

type mockGetter struct {
	mu    sync.Mutex
	calls []string
	files map[string]string
}

func (m *mockGetter) GetFileContent(_ context.Context, owner, repo, path string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, owner+"/"+repo+"/"+path)
	m.mu.Unlock()

	body, ok := m.files[path]
	if !ok {
		return "", errors.New("404 Not Found")
	}
	return body, nil
}

func items(paths ...string) []github.SearchResult {
	out := make([]github.SearchResult, 0, len(paths))
	for _, p := range paths {
		out = append(out, github.SearchResult{
			Path:               p,
			RepositoryFullName: "acme/widgets",
			OwnerLogin:         "acme",
		})
	}
	return out
}

func TestFetchPartialFailure(t *testing.T) {
	getter := &mockGetter{files: map[string]string{
		"one.ts":   "first",
		"three.ts": "third",
	}}
	fetcher := NewFetcher(log.New(false), getter, 0)

	res := fetcher.Fetch(context.Background(), items("one.ts", "two.ts", "three.ts"))

	if len(res.FileContentMap) != 2 {
		t.Errorf("len(FileContentMap) = %d, want 2", len(res.FileContentMap))
	}
	if !strings.Contains(res.Errmsg, "two.ts") {
		t.Errorf("Errmsg = %q, want it to name two.ts", res.Errmsg)
	}
	for _, want := range []string{"one.ts\nfirst\n\n", "three.ts\nthird\n\n"} {
		if !strings.Contains(res.FileContents, want) {
			t.Errorf("FileContents missing %q: %q", want, res.FileContents)
		}
	}
	if len(getter.calls) != 3 {
		t.Errorf("expected one request per item, got %d", len(getter.calls))
	}
}

func TestFetchOrderAndRouting(t *testing.T) {
	getter := &mockGetter{files: map[string]string{
		"a.go": "A",
		"b.go": "B",
		"c.go": "C",
	}}
	fetcher := NewFetcher(log.New(false), getter, 2)

	res := fetcher.Fetch(context.Background(), items("c.go", "a.go", "b.go"))

	want := "c.go\nC\n\na.go\nA\n\nb.go\nB\n\n"
	if res.FileContents != want {
		t.Errorf("FileContents = %q, want %q", res.FileContents, want)
	}
	if res.Errmsg != "" || len(res.Failed) != 0 {
		t.Errorf("unexpected failures: %q", res.Errmsg)
	}
	for _, call := range getter.calls {
		if !strings.HasPrefix(call, "acme/widgets/") {
			t.Errorf("request routed to %q, want acme/widgets", call)
		}
	}
}

func TestFetchAllFail(t *testing.T) {
	fetcher := NewFetcher(log.New(false), &mockGetter{}, 1)

	res := fetcher.Fetch(context.Background(), items("x.go", "y.go"))
	if res.Errmsg != "x.go; y.go" {
		t.Errorf("Errmsg = %q, want %q", res.Errmsg, "x.go; y.go")
	}
	if res.FileContents != "" {
		t.Errorf("FileContents = %q, want empty", res.FileContents)
	}
}
