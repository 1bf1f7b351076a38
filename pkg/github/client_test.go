package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/saint0x/ghscribe/pkg/log"
)

func setupTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New(log.New(false), "test-token", WithBaseURL(srv.URL), WithRateLimit(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestParseRepo(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantError bool
	}{
		{
			name:      "HTTPS URL",
			url:       "https://github.com/owner/repo.git",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "SSH URL",
			url:       "git@github.com:owner/repo.git",
			wantOwner: "owner",
			wantRepo:  "repo",
		},
		{
			name:      "Full name",
			url:       "acme/widgets",
			wantOwner: "acme",
			wantRepo:  "widgets",
		},
		{
			name:      "Invalid URL",
			url:       "not-a-url",
			wantError: true,
		},
		{
			name:      "Invalid Path",
			url:       "https://github.com/invalid",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := ParseRepo(tt.url)

			if tt.wantError {
				if err == nil {
					t.Errorf("ParseRepo() error = nil, want error")
				}
				return
			}

			if err != nil {
				t.Fatalf("ParseRepo() error = %v, want nil", err)
			}
			if owner != tt.wantOwner {
				t.Errorf("ParseRepo() owner = %v, want %v", owner, tt.wantOwner)
			}
			if repo != tt.wantRepo {
				t.Errorf("ParseRepo() repo = %v, want %v", repo, tt.wantRepo)
			}
		})
	}
}

func TestNew(t *testing.T) {
	if _, err := New(log.New(false), ""); err == nil {
		t.Error("New() with empty token returned nil error")
	}
	if _, err := New(nil, "token"); err == nil {
		t.Error("New() with nil logger returned nil error")
	}

	client, err := New(log.New(false), "token")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.client == nil {
		t.Error("New() client.client is nil")
	}
}

func TestGetFileContent(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/contents/src/index.ts", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		fmt.Fprintf(w, `{"type":"file","encoding":"base64","path":"src/index.ts","content":%q}`,
			base64.StdEncoding.EncodeToString([]byte("const x = 1;\n")))
	})
	client := setupTestClient(t, mux)

	got, err := client.GetFileContent(context.Background(), "acme", "widgets", "src/index.ts")
	if err != nil {
		t.Fatalf("GetFileContent() error = %v", err)
	}
	if got != "const x = 1;\n" {
		t.Errorf("GetFileContent() = %q", got)
	}
}

func TestGetBranchHead(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"default_branch":"main"}`)
	})
	mux.HandleFunc("/repos/acme/widgets/branches/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"name":"main","commit":{"sha":"c0","commit":{"tree":{"sha":"t0"}}}}`)
	})
	client := setupTestClient(t, mux)

	ctx := context.Background()
	branch, err := client.GetDefaultBranch(ctx, "acme", "widgets")
	if err != nil {
		t.Fatalf("GetDefaultBranch() error = %v", err)
	}
	if branch != "main" {
		t.Errorf("GetDefaultBranch() = %q, want main", branch)
	}

	commit, tree, err := client.GetBranchHead(ctx, "acme", "widgets", branch)
	if err != nil {
		t.Fatalf("GetBranchHead() error = %v", err)
	}
	if commit != "c0" || tree != "t0" {
		t.Errorf("GetBranchHead() = (%q, %q), want (c0, t0)", commit, tree)
	}
}

func TestCreateTree(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/widgets/git/trees", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var body struct {
			BaseTree string `json:"base_tree"`
			Tree     []struct {
				Path    string `json:"path"`
				Mode    string `json:"mode"`
				Type    string `json:"type"`
				Content string `json:"content"`
			} `json:"tree"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.BaseTree != "t0" {
			t.Errorf("base_tree = %q, want t0", body.BaseTree)
		}
		if len(body.Tree) != 1 || body.Tree[0].Mode != "100644" || body.Tree[0].Type != "blob" {
			t.Errorf("unexpected tree entries: %+v", body.Tree)
		}
		fmt.Fprint(w, `{"sha":"t1"}`)
	})
	client := setupTestClient(t, mux)

	sha, err := client.CreateTree(context.Background(), "acme", "widgets", "t0", "README.md", "hi")
	if err != nil {
		t.Fatalf("CreateTree() error = %v", err)
	}
	if sha != "t1" {
		t.Errorf("CreateTree() = %q, want t1", sha)
	}
}

func TestSearchCodePagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/search/code", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "100" {
			t.Errorf("per_page = %q, want 100", got)
		}
		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("Link", fmt.Sprintf(`<%s/search/code?q=x&page=2>; rel="next"`, srvURL))
			fmt.Fprint(w, `{"total_count":2,"items":[{"name":"a.go","path":"a.go","sha":"s1","repository":{"full_name":"acme/widgets","owner":{"login":"acme"}}}]}`)
		case "2":
			fmt.Fprint(w, `{"total_count":2,"items":[{"name":"b.go","path":"pkg/b.go","sha":"s2","repository":{"full_name":"acme/widgets","owner":{"login":"acme"}}}]}`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	client, err := New(log.New(false), "test-token", WithBaseURL(srv.URL), WithRateLimit(0))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	got, err := client.SearchCode(context.Background(), "x repo:acme/widgets", 0)
	if err != nil {
		t.Fatalf("SearchCode() error = %v", err)
	}

	want := []SearchResult{
		{SHA: "s1", Path: "a.go", Name: "a.go", RepositoryFullName: "acme/widgets", OwnerLogin: "acme"},
		{SHA: "s2", Path: "pkg/b.go", Name: "b.go", RepositoryFullName: "acme/widgets", OwnerLogin: "acme"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchCode() mismatch (-want +got):\n%s", diff)
	}

	limited, err := client.SearchCode(context.Background(), "x", 1)
	if err != nil {
		t.Fatalf("SearchCode() error = %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("SearchCode() with max 1 returned %d results", len(limited))
	}
	if limited[0].Repo() != "widgets" {
		t.Errorf("Repo() = %q, want widgets", limited[0].Repo())
	}
}

func TestSearchRepositories(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/search/repositories", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "user:acme" {
			t.Errorf("q = %q, want user:acme", got)
		}
		fmt.Fprint(w, `{"total_count":2,"items":[{"full_name":"acme/widgets"},{"full_name":"acme/gadgets"}]}`)
	})
	client := setupTestClient(t, mux)

	got, err := client.SearchRepositories(context.Background(), "acme")
	if err != nil {
		t.Fatalf("SearchRepositories() error = %v", err)
	}
	if diff := cmp.Diff([]string{"acme/widgets", "acme/gadgets"}, got); diff != "" {
		t.Errorf("SearchRepositories() mismatch (-want +got):\n%s", diff)
	}
}
