package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"

	"github.com/saint0x/ghscribe/pkg/ai"
	"github.com/saint0x/ghscribe/pkg/log"
)

func setupTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(context.Background(), log.New(false), Options{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewRequiresKey(t *testing.T) {
	if _, err := New(context.Background(), log.New(false), Options{}); err == nil {
		t.Error("expected error without an API key")
	}
}

func TestGenerateText(t *testing.T) {
	var body map[string]any
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, DefaultModel+":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"# Widgets"}]}}]}`)
	})

	resp, err := client.Generate(context.Background(), ai.Request{
		Prompt:            "files",
		SystemInstruction: "Generate a README",
	}, ai.DefaultConfig())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Text != "# Widgets" {
		t.Errorf("Text = %q, want %q", resp.Text, "# Widgets")
	}
	if _, ok := body["systemInstruction"]; !ok {
		t.Error("system instruction was not sent")
	}
	gen, _ := body["generationConfig"].(map[string]any)
	if gen["maxOutputTokens"] != float64(8192) {
		t.Errorf("maxOutputTokens = %v, want 8192", gen["maxOutputTokens"])
	}
}

func TestGenerateFunctionCall(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"submit_pull_request","args":{"filePath":"README.md","fileContent":"# W"}}}]}}]}`)
	})

	resp, err := client.Generate(context.Background(), ai.Request{
		Prompt: "files",
		Tool:   ai.SubmitPullRequestTool(),
	}, ai.DefaultConfig())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := []ai.FunctionCall{{
		Name: "submit_pull_request",
		Args: map[string]any{"filePath": "README.md", "fileContent": "# W"},
	}}
	if diff := cmp.Diff(want, resp.FunctionCalls); diff != "" {
		t.Errorf("function calls mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateStatusError(t *testing.T) {
	client := setupTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`)
	})

	_, err := client.Generate(context.Background(), ai.Request{Prompt: "p"}, ai.DefaultConfig())
	var se *ai.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *ai.StatusError", err)
	}
	if se.Code != http.StatusTooManyRequests {
		t.Errorf("Code = %d, want 429", se.Code)
	}
	if !ai.IsRetryable(err) {
		t.Error("429 should be retryable")
	}
}

func TestConvertSchema(t *testing.T) {
	got := convertSchema(ai.ParseFileObjectTool().Parameters)

	if got.Type != genai.TypeObject {
		t.Errorf("Type = %q, want object", got.Type)
	}
	if diff := cmp.Diff([]string{"fileContent", "explain"}, got.PropertyOrdering); diff != "" {
		t.Errorf("property ordering mismatch (-want +got):\n%s", diff)
	}
	if got.Properties["explain"].Type != genai.TypeString {
		t.Errorf("explain type = %q, want string", got.Properties["explain"].Type)
	}
	if convertSchema(nil) != nil {
		t.Error("nil schema should convert to nil")
	}
}
