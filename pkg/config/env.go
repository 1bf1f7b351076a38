package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/saint0x/ghscribe/pkg/log"
	"github.com/sethvargo/go-envconfig"
)

// Supported generation backends
const (
	BackendGemini = "gemini"
	BackendOpenAI = "openai"
)

// ErrMissingCredential is returned when neither an override nor an
// environment default is available for a credential.
var ErrMissingCredential = errors.New("missing credential")

// Environment holds validated environment configuration
type Environment struct {
	GitHubToken  string `env:"GITHUB_TOKEN"`
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GoogleAPIKey string `env:"GOOGLE_API_KEY"`
	OpenAIKey    string `env:"OPENAI_API_KEY"`

	Backend string `env:"GHSCRIBE_BACKEND, default=gemini"`
	Model   string `env:"GHSCRIBE_MODEL"`

	Port  string `env:"PORT, default=8080"`
	Debug bool   `env:"DEBUG, default=false"`

	GenerationTimeout time.Duration `env:"GHSCRIBE_GENERATION_TIMEOUT, default=5m"`
	SubmitTimeout     time.Duration `env:"GHSCRIBE_SUBMIT_TIMEOUT, default=2m"`
	GitHubRateLimit   float64       `env:"GHSCRIBE_GITHUB_RPS, default=10"`
}

// Load reads an optional .env file and processes the environment
func Load(ctx context.Context) (*Environment, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return process(ctx, envconfig.OsLookuper())
}

func process(ctx context.Context, lookuper envconfig.Lookuper) (*Environment, error) {
	var env Environment
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &env,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if env.Backend != BackendGemini && env.Backend != BackendOpenAI {
		return nil, fmt.Errorf("unsupported backend %q", env.Backend)
	}
	return &env, nil
}

// Validate checks that credentials needed at startup are resolvable
func (e *Environment) Validate(logger *log.Logger) error {
	if _, err := e.ResolveGitHubToken(""); err != nil {
		logger.Warning("No GITHUB_TOKEN configured, a token must be supplied per session")
	}
	if _, err := e.ResolveGenerationKey(""); err != nil {
		return err
	}
	return nil
}

// ResolveGitHubToken returns the override if set, else the environment token
func (e *Environment) ResolveGitHubToken(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if e.GitHubToken != "" {
		return e.GitHubToken, nil
	}
	return "", fmt.Errorf("%w: GITHUB_TOKEN not configured", ErrMissingCredential)
}

// ResolveGenerationKey returns the API key for the configured backend.
// An override wins; otherwise the primary key, then the secondary source.
func (e *Environment) ResolveGenerationKey(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	switch e.Backend {
	case BackendOpenAI:
		if e.OpenAIKey != "" {
			return e.OpenAIKey, nil
		}
		return "", fmt.Errorf("%w: OPENAI_API_KEY not configured", ErrMissingCredential)
	default:
		if e.GeminiAPIKey != "" {
			return e.GeminiAPIKey, nil
		}
		if e.GoogleAPIKey != "" {
			return e.GoogleAPIKey, nil
		}
		return "", fmt.Errorf("%w: GEMINI_API_KEY or GOOGLE_API_KEY not configured", ErrMissingCredential)
	}
}
