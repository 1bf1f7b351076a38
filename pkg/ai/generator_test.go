package ai

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/saint0x/ghscribe/pkg/log"
)

// mockBackend implements Backend for testing
type mockBackend struct {
	responses []*Response
	errs      []error
	calls     int
	lastReq   Request
	lastCfg   Config
}

func (m *mockBackend) Name() string { return "mock" }

func (m *mockBackend) Generate(_ context.Context, req Request, cfg Config) (*Response, error) {
	i := m.calls
	m.calls++
	m.lastReq = req
	m.lastCfg = cfg
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(m.responses) {
		return m.responses[i], nil
	}
	return &Response{}, nil
}

func fastRetry() Option {
	return WithRetry(RetryConfig{MaxRetries: 2, BaseBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
}

func TestGenerateMergesDefaults(t *testing.T) {
	backend := &mockBackend{responses: []*Response{{Text: "# Widgets"}}}
	gen := New(log.New(false), backend, fastRetry())

	topK := float32(10)
	resp, err := gen.Generate(context.Background(), Request{
		Prompt:      "files",
		Temperature: 0.5,
		Overrides:   Overrides{TopK: &topK},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "# Widgets" {
		t.Errorf("Text = %q", resp.Text)
	}

	want := Config{Temperature: 0.5, TopP: 0.95, TopK: 10, MaxOutputTokens: 8192, ResponseMIMEType: "text/plain"}
	if diff := cmp.Diff(want, backend.lastCfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateClampsTemperature(t *testing.T) {
	tests := []struct {
		in, want float32
	}{
		{-0.5, 0},
		{0, 0},
		{0.7, 0.7},
		{2, 1},
	}
	for _, tt := range tests {
		backend := &mockBackend{}
		gen := New(log.New(false), backend, fastRetry())
		if _, err := gen.Generate(context.Background(), Request{Prompt: "p", Temperature: tt.in}); err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if backend.lastCfg.Temperature != tt.want {
			t.Errorf("temperature %v clamped to %v, want %v", tt.in, backend.lastCfg.Temperature, tt.want)
		}
	}
}

func TestGenerateEmptyPrompt(t *testing.T) {
	backend := &mockBackend{}
	gen := New(log.New(false), backend)
	if _, err := gen.Generate(context.Background(), Request{}); !errors.Is(err, ErrEmptyPrompt) {
		t.Errorf("error = %v, want ErrEmptyPrompt", err)
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for an empty prompt", backend.calls)
	}
}

func TestGenerateRetries(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "rate limit then success",
			errs:      []error{&StatusError{Code: http.StatusTooManyRequests, Err: errors.New("quota")}},
			wantCalls: 2,
		},
		{
			name: "server errors exhaust retries",
			errs: []error{
				&StatusError{Code: 503, Err: errors.New("overloaded")},
				&StatusError{Code: 500, Err: errors.New("internal")},
				&StatusError{Code: 502, Err: errors.New("bad gateway")},
			},
			wantCalls: 3,
			wantErr:   true,
		},
		{
			name:      "client error is not retried",
			errs:      []error{&StatusError{Code: 400, Err: errors.New("bad request")}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "plain error is not retried",
			errs:      []error{errors.New("dial tcp: refused")},
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &mockBackend{errs: tt.errs}
			gen := New(log.New(false), backend, fastRetry())
			_, err := gen.Generate(context.Background(), Request{Prompt: "p", Temperature: 1})
			if (err != nil) != tt.wantErr {
				t.Errorf("Generate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if backend.calls != tt.wantCalls {
				t.Errorf("backend calls = %d, want %d", backend.calls, tt.wantCalls)
			}
		})
	}
}

func TestGenerateRetryLogCountsAttempts(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(false)
	logger.SetOutput(&buf)

	backend := &mockBackend{errs: []error{
		&StatusError{Code: 503, Err: errors.New("overloaded")},
		&StatusError{Code: 503, Err: errors.New("overloaded")},
	}}
	gen := New(logger, backend, fastRetry())
	if _, err := gen.Generate(context.Background(), Request{Prompt: "p", Temperature: 1}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, want := range []string{"mock: attempt 1/3 failed", "mock: attempt 2/3 failed"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log missing %q:\n%s", want, buf.String())
		}
	}
}

func TestToolSchemas(t *testing.T) {
	tests := []struct {
		tool     *Tool
		name     string
		required []string
	}{
		{
			tool:     SubmitPullRequestTool(),
			name:     SubmitPullRequest,
			required: []string{"filePath", "commitMessage", "branchName", "pullRequestTitle", "pullRequestBody", "fileContent"},
		},
		{
			tool:     ParseFileObjectTool(),
			name:     ParseFileObject,
			required: []string{"fileContent", "explain"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.name {
				t.Errorf("Name = %q, want %q", tt.tool.Name, tt.name)
			}
			if diff := cmp.Diff(tt.required, tt.tool.Parameters.Required); diff != "" {
				t.Errorf("required mismatch (-want +got):\n%s", diff)
			}
			for _, field := range tt.required {
				prop, ok := tt.tool.Parameters.Properties.Get(field)
				if !ok {
					t.Errorf("missing property %q", field)
					continue
				}
				if prop.Type != "string" {
					t.Errorf("property %q type = %q, want string", field, prop.Type)
				}
			}
		})
	}
}
