package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestProcessDefaults(t *testing.T) {
	env, err := process(context.Background(), envconfig.MapLookuper(map[string]string{
		"GITHUB_TOKEN": "gh-token",
	}))
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}

	if env.Backend != BackendGemini {
		t.Errorf("Backend = %q, want %q", env.Backend, BackendGemini)
	}
	if env.Port != "8080" {
		t.Errorf("Port = %q, want 8080", env.Port)
	}
	if env.GenerationTimeout != 5*time.Minute {
		t.Errorf("GenerationTimeout = %v, want 5m", env.GenerationTimeout)
	}
	if env.GitHubRateLimit != 10 {
		t.Errorf("GitHubRateLimit = %v, want 10", env.GitHubRateLimit)
	}
}

func TestProcessRejectsUnknownBackend(t *testing.T) {
	_, err := process(context.Background(), envconfig.MapLookuper(map[string]string{
		"GHSCRIBE_BACKEND": "llama",
	}))
	if err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestResolveGitHubToken(t *testing.T) {
	tests := []struct {
		name     string
		env      Environment
		override string
		want     string
		wantErr  bool
	}{
		{
			name:     "override wins",
			env:      Environment{GitHubToken: "env"},
			override: "user",
			want:     "user",
		},
		{
			name: "environment default",
			env:  Environment{GitHubToken: "env"},
			want: "env",
		},
		{
			name:    "neither",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.env.ResolveGitHubToken(tt.override)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingCredential) {
					t.Errorf("ResolveGitHubToken() error = %v, want ErrMissingCredential", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveGitHubToken() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveGitHubToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveGenerationKey(t *testing.T) {
	tests := []struct {
		name     string
		env      Environment
		override string
		want     string
		wantErr  bool
	}{
		{
			name:     "override wins",
			env:      Environment{Backend: BackendGemini, GeminiAPIKey: "primary"},
			override: "user",
			want:     "user",
		},
		{
			name: "gemini primary",
			env:  Environment{Backend: BackendGemini, GeminiAPIKey: "primary", GoogleAPIKey: "secondary"},
			want: "primary",
		},
		{
			name: "gemini falls back to secondary source",
			env:  Environment{Backend: BackendGemini, GoogleAPIKey: "secondary"},
			want: "secondary",
		},
		{
			name:    "gemini with no key",
			env:     Environment{Backend: BackendGemini},
			wantErr: true,
		},
		{
			name: "openai key",
			env:  Environment{Backend: BackendOpenAI, OpenAIKey: "sk"},
			want: "sk",
		},
		{
			name:    "openai ignores google key",
			env:     Environment{Backend: BackendOpenAI, GoogleAPIKey: "secondary"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.env.ResolveGenerationKey(tt.override)
			if tt.wantErr {
				if !errors.Is(err, ErrMissingCredential) {
					t.Errorf("ResolveGenerationKey() error = %v, want ErrMissingCredential", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveGenerationKey() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveGenerationKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
